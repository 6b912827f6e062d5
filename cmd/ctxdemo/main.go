package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/ctxbind"
	"github.com/wippyai/ctxbind/binding"
	"github.com/wippyai/ctxbind/native/wasmlib"
	"github.com/wippyai/ctxbind/resource"
)

func main() {
	os.Exit(realMain(os.Args[1:], os.Stdout, os.Stderr))
}

// realMain runs the demo and returns the exit code, so deferred cleanup runs
// before the process exits.
func realMain(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ctxdemo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		backend     = fs.String("backend", "wasm", "Native backend: wasm or c")
		offset      = fs.Int("offset", 16, "Sub-object offset for the view scenario")
		cbOffset    = fs.Int("callback-offset", 20, "Sub-object offset for the callback scenario")
		strict      = fs.Bool("strict", false, "Views hold strict borrows on their context")
		verbose     = fs.Bool("v", false, "Debug logging of every native call")
		interactive = fs.Bool("i", false, "Interactive mode with TUI")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := newLogger(*verbose)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	lib, closeLib, err := openLibrary(ctx, *backend, log)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLib()

	opts := []binding.Option{binding.WithLogger(log)}
	if *strict {
		opts = append(opts, binding.WithStrictBorrows())
	}
	b := binding.New(lib, opts...)
	defer b.Close()
	b.Ledger().Subscribe(&ledgerLogger{log: log})

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(stderr, "Error: -i requires a terminal on stdin")
			return 1
		}
		if err := runInteractive(b, *backend); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := run(stdout, b, *offset, *cbOffset); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// openLibrary loads the requested native backend and returns its closer.
func openLibrary(ctx context.Context, backend string, log *zap.Logger) (ctxbind.Library, func(), error) {
	switch backend {
	case "wasm":
		lib, err := wasmlib.New(ctx, &wasmlib.Config{Logger: log})
		if err != nil {
			return nil, nil, fmt.Errorf("load wasm backend: %w", err)
		}
		return lib, func() { _ = lib.Close(ctx) }, nil
	case "c":
		return openCLibrary(log)
	default:
		return nil, nil, fmt.Errorf("unknown backend %q (want wasm or c)", backend)
	}
}

// run drives the three demo scenarios: transforms, sub-objects, callbacks.
func run(w io.Writer, b *binding.Binding, offset, cbOffset int) error {
	fmt.Fprintln(w, "Create, transform and query\n---------------------------")
	err := b.WithContext(func(c *binding.Context) error {
		class, err := c.Classify()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "context is %s\n", class)

		for _, step := range []struct {
			name string
			fn   func() error
		}{
			{"to_lower", c.ToLower},
			{"to_upper", c.ToUpper},
			{"to_upper", c.ToUpper},
		} {
			if err := step.fn(); err != nil {
				return fmt.Errorf("%s: %w", step.name, err)
			}
			class, err := c.Classify()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "after %s: context is %s\n", step.name, class)
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "\nSub-object\n----------")
	err = b.WithContext(func(c *binding.Context) error {
		v, err := c.View(offset)
		if err != nil {
			return err
		}
		defer v.Close()
		fmt.Fprintf(w, "so: %s\n", v)

		if err := c.ToLower(); err != nil {
			fmt.Fprintf(w, "to_lower refused: %v\n", err)
			return nil
		}
		fmt.Fprintf(w, "so after to_lower: %s\n", v)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "\nCallback\n--------")
	b.Channel().Register(func(p *binding.Payload) {
		fmt.Fprintf(w, "callback for '%s' invoked\n", p.MustText())
	})
	defer b.Channel().Register(nil)

	return b.WithContext(func(c *binding.Context) error {
		v, err := c.View(cbOffset)
		if err != nil {
			return err
		}
		return v.Close()
	})
}

// ledgerLogger traces ownership events at debug level.
type ledgerLogger struct {
	log *zap.Logger
}

func (l *ledgerLogger) OnLedgerEvent(e resource.Event) {
	l.log.Debug("ledger",
		zap.Stringer("event", e.Type),
		zap.Uint32("handle", uint32(e.Handle)),
		zap.Uintptr("addr", uintptr(e.Addr)),
		zap.Uint64("epoch", e.Epoch),
		zap.Uint32("borrows", e.Borrows),
	)
}
