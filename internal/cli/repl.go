package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/statelens/internal/presentation/diagram"
	"github.com/aretw0/statelens/internal/presentation/tui"
	"github.com/aretw0/statelens/internal/sanitize"
	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/session"
	"github.com/muesli/termenv"
)

const replHelp = `Type an event name or object ({type: go, amount: 2}) to send it.
Commands:
  :preview <event>   show where an event would lead
  :cancel            drop the preview
  :select <path>     select a node (empty path clears)
  :reset             restart the machine and clear history
  :state             show value, context, actions and event
  :graph             print the Mermaid diagram
  :help              this text
  q, quit, exit      leave`

// REPL drives one session from text commands.
type REPL struct {
	session  *session.Session
	out      io.Writer
	profile  termenv.Profile
	render   func(string) (string, error)
	hideRoot bool
}

// NewREPL creates a REPL writing to out. plain disables colours and styled markdown.
func NewREPL(sess *session.Session, out io.Writer, plain, hideRoot bool) *REPL {
	profile := termenv.ColorProfile()
	if plain {
		profile = termenv.Ascii
	}
	return &REPL{
		session:  sess,
		out:      out,
		profile:  profile,
		render:   tui.NewRenderer(plain),
		hideRoot: hideRoot,
	}
}

// Lines pumps r line by line. The channel is closed at EOF.
// A single pump is shared across reloads so there is only one reader of r.
func Lines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			ch <- scanner.Text()
		}
	}()
	return ch
}

// Run executes lines until a quit command (nil), the end of input (io.EOF)
// or the cancellation of ctx.
func (r *REPL) Run(ctx context.Context, lines <-chan string) error {
	r.Show()
	for {
		r.prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return io.EOF
			}
			if r.Exec(ctx, line) {
				return nil
			}
		}
	}
}

// Exec runs one line. It reports whether the REPL should stop.
func (r *REPL) Exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch cmd {
	case "":
		return false
	case "q", "quit", "exit":
		return true
	case ":help":
		fmt.Fprintln(r.out, replHelp)
		return false
	case ":state":
		r.showState()
		return false
	case ":graph":
		r.showGraph()
		return false
	case ":preview":
		err = r.preview(ctx, arg)
	case ":cancel":
		r.session.CancelPreview()
	case ":select":
		err = r.selectPath(arg)
	case ":reset":
		err = r.session.Reset(ctx)
	default:
		if strings.HasPrefix(cmd, ":") {
			printSystemMessage(r.out, "Unknown command %q. Type :help.", cmd)
			return false
		}
		err = r.send(ctx, line)
	}

	if err != nil {
		printSystemMessage(r.out, "Error: %v", err)
		return false
	}
	r.Show()
	return false
}

// Show prints the tree and the events the machine currently accepts.
func (r *REPL) Show() {
	v := r.session.Snapshot()
	fmt.Fprint(r.out, tui.RenderTree(v, tui.TreeOptions{HideRoot: r.hideRoot, Profile: r.profile}))
	if v.MachineID == "" {
		return
	}
	if len(v.AvailableEvents) > 0 {
		fmt.Fprintf(r.out, "events: %s\n", strings.Join(v.AvailableEvents, ", "))
	}
	if v.PreviewEvent != nil {
		fmt.Fprintf(r.out, "preview: %s\n", v.PreviewEvent.Type)
	}
}

func (r *REPL) prompt() {
	fmt.Fprint(r.out, r.profile.String("> ").Foreground(r.profile.Color("#22d3ee")).String())
}

func (r *REPL) send(ctx context.Context, line string) error {
	payload, err := sanitize.Event([]byte(line))
	if err != nil {
		return err
	}
	cfg, err := r.session.SendRaw(ctx, payload)
	if err != nil {
		return err
	}
	if !cfg.Changed {
		printSystemMessage(r.out, "No transition for %q.", strings.TrimSpace(string(payload)))
	}
	return nil
}

func (r *REPL) preview(ctx context.Context, arg string) error {
	payload, err := sanitize.Event([]byte(arg))
	if err != nil {
		return err
	}
	evt, err := domain.ParseEvent(payload)
	if err != nil {
		return err
	}
	_, err = r.session.Preview(ctx, evt)
	return err
}

func (r *REPL) selectPath(arg string) error {
	if arg == "" {
		r.session.ClearSelection()
		return nil
	}
	ok, err := r.session.SelectByPath(domain.ParsePath(arg))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no node at path %q", arg)
	}
	return nil
}

func (r *REPL) showState() {
	out, err := r.render(tui.StateMarkdown(r.session.Current()))
	if err != nil {
		printSystemMessage(r.out, "Error: %v", err)
		return
	}
	fmt.Fprint(r.out, out)
}

func (r *REPL) showGraph() {
	v := r.session.Snapshot()
	if v.Graph == nil {
		printSystemMessage(r.out, "Error: %v", domain.ErrNoMachine)
		return
	}
	fmt.Fprint(r.out, diagram.GenerateMermaid(v.Graph, diagram.OverlayFromView(v)))
}
