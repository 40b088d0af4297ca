package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/statelens"
	"github.com/aretw0/statelens/pkg/history"
	"github.com/aretw0/statelens/pkg/ports"
	"github.com/aretw0/statelens/pkg/registry"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	Path     string
	Watch    bool
	Debug    bool
	Plain    bool
	HideRoot bool
	Policy   string

	In  io.Reader
	Out io.Writer
}

// Execute handles the 'run' command logic, dispatching to Session or Watch mode.
func Execute(opts RunOptions) error {
	if opts.Path == "" {
		return fmt.Errorf("a machine definition file is required")
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if !opts.Plain && (!IsTerminal(os.Stdin) || !IsTerminal(os.Stdout)) {
		opts.Plain = true
	}

	if opts.Watch {
		return RunWatch(opts)
	}
	return RunSession(opts)
}

// NewEngine builds the engine configured by opts. extra options are applied last.
func NewEngine(opts RunOptions, extra ...statelens.Option) (*statelens.Engine, error) {
	policy, err := history.ParsePolicy(opts.Policy)
	if err != nil {
		return nil, err
	}
	logger := createLogger(opts.Debug)
	engineOpts := []statelens.Option{
		statelens.WithHistoryPolicy(policy),
	}
	if opts.Debug {
		engineOpts = append(engineOpts, statelens.WithLogger(logger))
		engineOpts = append(engineOpts, statelens.WithLifecycleHooks(createDebugHooks(logger)))
	}
	return statelens.New(append(engineOpts, extra...)...), nil
}

// echoActions reports every opaque action the machine executes instead of running it.
func echoActions(out io.Writer) *registry.Registry {
	return registry.NewRegistry(registry.WithFallback(func(ctx context.Context, req ports.ActionRequest) error {
		if req.NodeID != "" {
			printSystemMessage(out, "Action %s (%s)", req.Action, req.NodeID)
		} else {
			printSystemMessage(out, "Action %s", req.Action)
		}
		return nil
	}))
}
