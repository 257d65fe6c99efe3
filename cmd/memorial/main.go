// Command memorial submits one PDF to the memorial generation service and
// saves the generated text and data next to it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/memorial-automator/client/internal/clipboard"
	"github.com/memorial-automator/client/internal/config"
	"github.com/memorial-automator/client/internal/export"
	"github.com/memorial-automator/client/internal/generator"
	"github.com/memorial-automator/client/internal/logging"
	"github.com/memorial-automator/client/internal/models"
	"github.com/memorial-automator/client/internal/workflow"
)

type options struct {
	configPath string
	fields     models.FormFields
	outDir     string
	copy       bool
	printText  bool
}

func main() {
	opts, path, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, path, os.Stdout, os.Stderr); err != nil {
		// Controller errors were already rendered.
		var werr *workflow.Error
		if !errors.As(err, &werr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, string, error) {
	fs := flag.NewFlagSet("memorial", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{fields: models.DefaultFormFields()}
	fs.StringVar(&opts.configPath, "config", "", "path to MemorialClient.config (default: next to the executable)")
	fs.StringVar(&opts.fields.ClientID, "client-id", models.DefaultClientID, "client identifier sent with the document")
	fs.BoolVar(&opts.fields.IncludeImages, "include-images", false, "ask the service to analyse images")
	fs.StringVar(&opts.fields.CustomInstructions, "instructions", "", "additional instructions for the generation")
	fs.StringVar(&opts.outDir, "out", "", "directory for the downloaded files (default: Export.Directory)")
	fs.BoolVar(&opts.copy, "copy", false, "copy the generated text to the clipboard")
	fs.BoolVar(&opts.printText, "print", false, "print the generated text to stdout")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: memorial [flags] <file.pdf>\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, "", errors.New("expected exactly one file")
	}
	return opts, fs.Arg(0), nil
}

func run(ctx context.Context, opts *options, path string, stdout, stderr io.Writer) error {
	configPath := opts.configPath
	if configPath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locating executable: %w", err)
		}
		configPath = filepath.Join(filepath.Dir(exePath), "MemorialClient.config")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	msgs, err := config.LoadMessages(cfg.Advanced.MessagesFile)
	if err != nil {
		return err
	}

	logger := logging.New(stderr, cfg.Advanced.LogLevel)

	gen := generator.NewClient(generator.Options{
		GenerateURL: cfg.GenerateURL(),
		HealthURL:   cfg.HealthURL(),
		Timeout:     cfg.RequestTimeout(),
		Logger:      log.With(logger, "component", "generator"),
	})

	ctrl := workflow.New(gen, workflow.Options{
		Clipboard:        clipboard.System{},
		Renderer:         newTerminalRenderer(stdout),
		Messages:         &msgs,
		MaxFileSize:      cfg.Upload.MaxFileSizeBytes,
		AllowedExtension: cfg.Upload.AllowedExtension,
		StepInterval:     cfg.StepInterval(),
		Logger:           log.With(logger, "component", "controller"),
	})
	defer ctrl.Reset()

	file, err := models.FileFromPath(path)
	if err != nil {
		return err
	}
	if err := ctrl.SelectFile(file); err != nil {
		return err
	}
	if err := ctrl.Submit(ctx, opts.fields); err != nil {
		return err
	}

	outDir := opts.outDir
	if outDir == "" {
		outDir = cfg.Export.Directory
	}
	w, err := export.NewDirWriter(outDir)
	if err != nil {
		return err
	}

	for _, download := range []func() (*export.Artifact, error){ctrl.DownloadAsText, ctrl.DownloadAsJSON} {
		a, err := download()
		if err != nil {
			return err
		}
		saved, err := w.Write(a)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Salvo: %s\n", saved)
	}

	if opts.copy {
		if err := ctrl.CopyResult(ctx); err != nil {
			level.Warn(logger).Log("msg", "copy failed", "err", err)
		}
	}
	if opts.printText {
		if res := ctrl.Result(); res != nil {
			fmt.Fprintln(stdout)
			fmt.Fprintln(stdout, res.MemorialText)
		}
	}
	return nil
}
