package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/statelens"
	"github.com/aretw0/statelens/internal/presentation/tui"
)

// RunSession loads the definition once and drives it from the REPL.
func RunSession(opts RunOptions) error {
	engine, err := NewEngine(opts, statelens.WithActionDispatcher(echoActions(opts.Out)))
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	source := NewFileSource(opts.Path, createLogger(opts.Debug))
	def, err := source.Read(sigCtx)
	if err != nil {
		return fmt.Errorf("error reading definition: %w", err)
	}

	sess, err := engine.NewSession(sigCtx, def)
	if err != nil {
		return err
	}
	defer sess.Close(context.Background())

	if !opts.Plain {
		tui.PrintBanner(opts.Out)
	}
	printSystemMessage(opts.Out, "statelens %s: machine '%s' loaded from %s.", strings.TrimSpace(statelens.Version), sess.Machine().ID(), opts.Path)

	repl := NewREPL(sess, opts.Out, opts.Plain, opts.HideRoot)
	err = repl.Run(sigCtx, Lines(opts.In))
	if sigCtx.Signal() != nil {
		fmt.Fprintln(opts.Out)
		printSystemMessage(opts.Out, "Interrupted.")
	}
	return handleExecutionError(err)
}
