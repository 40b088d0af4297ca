package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the statelens ASCII art banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"      _        _       _                ", "#2dd4bf"},
		{"  ___| |_ __ _| |_ ___| | ___ _ __  ___ ", "#22d3ee"},
		{" / __| __/ _` | __/ _ \\ |/ _ \\ '_ \\/ __|", "#38bdf8"},
		{" \\__ \\ || (_| | ||  __/ |  __/ | | \\__ \\", "#60a5fa"},
		{" |___/\\__\\__,_|\\__\\___|_|\\___|_| |_|___/", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
