package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alimasry/boxesnlines/config"
	"github.com/alimasry/boxesnlines/logging"
	"github.com/alimasry/boxesnlines/server"
	"github.com/alimasry/boxesnlines/store"
)

const usage = `usage: boxesnlines [flags] <command> [args]

commands:
  serve                          run the editor websocket server
  list <doc>                     print annotations of a document in position order
  add <doc> <range-key>          annotate a range; text is read from stdin
  edit <doc> <key> <index>       replace the text of an annotation; text is read from stdin
  delete <doc> <key> <index>     remove an annotation
  export <file>                  write all annotations to a compressed archive
  import <file>                  restore annotations from an archive
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "boxesnlines:", err)
		os.Exit(1)
	}
}

// env is what every command needs after global flags are parsed.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	files  *store.FileStore
	stdin  io.Reader
	stdout io.Writer
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("boxesnlines", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "config file (default <workspace>/"+config.DefaultFile+")")
	workspace := fs.String("workspace", ".", "workspace root")
	logLevel := fs.String("log-level", "", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	if fs.NArg() == 0 {
		return errors.New(usage)
	}

	root, err := filepath.Abs(*workspace)
	if err != nil {
		return err
	}
	cfg, err := config.Load(root, *configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level, cfg.LogFormat, nil)

	e := &env{
		cfg:    cfg,
		logger: logger,
		files:  store.NewFileStore(cfg.StoragePath(), store.WithLogger(logger)),
		stdin:  stdin,
		stdout: stdout,
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "serve":
		return e.serve(ctx, rest)
	case "list":
		return e.list(ctx, rest)
	case "add":
		return e.add(ctx, rest)
	case "edit":
		return e.edit(ctx, rest)
	case "delete":
		return e.delete(ctx, rest)
	case "export":
		return e.export(ctx, rest)
	case "import":
		return e.importArchive(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func (e *env) repository() store.Repository {
	if e.cfg.Cache {
		return store.NewCachedStore(e.files, e.logger)
	}
	return e.files
}

func (e *env) serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", e.cfg.ListenAddr, "HTTP listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	hub := server.NewHub(e.repository(), server.Config{
		Author:            e.cfg.Author,
		Ignore:            e.cfg.Ignored,
		MessagesPerSecond: e.cfg.MessagesPerSecond,
		Logger:            e.logger,
	})
	srv := &http.Server{
		Addr:              *addr,
		Handler:           server.NewHandler(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		e.logger.Info("starting server", "addr", *addr, "storage", e.cfg.StoragePath())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (e *env) export(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: export <file>")
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	n, err := e.files.Export(ctx, f)
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "exported %d documents to %s\n", n, args[0])
	return nil
}

func (e *env) importArchive(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: import <file>")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := e.files.Import(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "imported %d documents\n", n)
	return nil
}
