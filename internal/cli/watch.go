package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/statelens"
	"github.com/aretw0/statelens/internal/logging"
	"github.com/aretw0/statelens/internal/presentation/tui"
	"github.com/aretw0/statelens/pkg/ports"
	"github.com/aretw0/statelens/pkg/session"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the bursts of events editors produce on save.
const DefaultDebounce = 100 * time.Millisecond

// FileSource reads a definition file and reports changes to it.
// It implements ports.DefinitionSource and ports.Watchable.
type FileSource struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

// NewFileSource creates a source for path.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FileSource{path: path, debounce: DefaultDebounce, logger: logger}
}

// Name returns the watched file.
func (s *FileSource) Name() string {
	return s.path
}

// Read reads the definition.
func (s *FileSource) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.path)
}

// Watch signals every time the file changes, until ctx is done.
// The parent directory is watched so that editors replacing the file by rename are seen.
func (s *FileSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				s.logger.Debug("Watch event", "file", event.Name, "op", event.Op.String())
				if timer == nil {
					timer = time.NewTimer(s.debounce)
				} else {
					timer.Reset(s.debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				select {
				case out <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("Watcher error", "err", err)
			}
		}
	}()
	return out, nil
}

// lockedWriter serializes writes from the REPL and the reload loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// RunWatch executes statelens in development mode, reloading the definition on file changes.
// A definition that fails to load leaves the previous machine running.
func RunWatch(opts RunOptions) error {
	logger := createLogger(opts.Debug)
	out := &lockedWriter{w: opts.Out}
	engine, err := NewEngine(opts, statelens.WithActionDispatcher(echoActions(out)))
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	var source ports.DefinitionSource = NewFileSource(opts.Path, logger)
	sess, err := engine.NewSession(sigCtx, nil)
	if err != nil {
		return err
	}
	defer sess.Close(context.Background())

	if !opts.Plain {
		tui.PrintBanner(out)
	}
	printSystemMessage(out, "statelens %s watching %s.", strings.TrimSpace(statelens.Version), source.Name())
	reload(sigCtx, sess, source, out, logger)

	watchable, ok := source.(ports.Watchable)
	if !ok {
		return fmt.Errorf("source %s cannot be watched", source.Name())
	}
	changes, err := watchable.Watch(sigCtx)
	if err != nil {
		return err
	}
	repl := NewREPL(sess, out, opts.Plain, opts.HideRoot)
	go func() {
		for range changes {
			fmt.Fprintln(out)
			printSystemMessage(out, "Change detected in '%s'.", source.Name())
			if reload(sigCtx, sess, source, out, logger) {
				repl.Show()
			}
		}
	}()

	err = repl.Run(sigCtx, Lines(opts.In))
	if sigCtx.Signal() != nil {
		fmt.Fprintln(out)
		printSystemMessage(out, "Stopping watcher.")
	}
	return handleExecutionError(err)
}

// reload loads the current file content into sess and reports whether it succeeded.
func reload(ctx context.Context, sess *session.Session, source ports.DefinitionSource, out io.Writer, logger *slog.Logger) bool {
	def, err := source.Read(ctx)
	if err == nil {
		err = sess.Load(ctx, def)
	}
	if err != nil {
		logger.Error("Reload failed", "path", source.Name(), "err", err)
		printSystemMessage(out, "Reload failed, keeping the previous machine: %v", err)
		return false
	}
	logger.Info("Definition loaded", "path", source.Name(), "machine", sess.Machine().ID())
	printSystemMessage(out, "Machine '%s' loaded.", sess.Machine().ID())
	return true
}
