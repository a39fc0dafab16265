package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/config"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/directory"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/mailer"
	"github.com/felipeCordeiroDosSantos/AutomailerEvelog/internal/pipeline"
)

func main() {
	opts := &runOptions{}
	flag.StringVar(&opts.Input, "input", "", "Input file: order sheet (.csv/.xlsx) or comma-separated text exports (.txt)")
	flag.StringVar(&opts.AttachmentsDir, "attachments", "", "Directory holding the PDF attachments (collection mode)")
	flag.StringVar(&opts.Directory, "directory", "", "Recipient directory path (defaults per mode)")
	flag.StringVar(&opts.Status, "status", "ENTRADA", "Status to filter on (status mode)")
	flag.StringVar(&opts.SubStatus, "substatus", "", "Status description for the custody sub-filter")
	flag.StringVar(&opts.CC, "cc", "", "Cc addresses, comma-separated")
	flag.StringVar(&opts.Subject, "subject", "", "Email subject (status mode)")
	flag.StringVar(&opts.Message, "message", "", "Free-text email body")
	flag.Parse()

	// Set up structured logging. DEBUG via environment for troubleshooting.
	logLevel := slog.LevelInfo
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if opts.Input == "" {
		slog.Error("missing required -input flag")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, aborting batch")
		cancel()
	}()

	transport, err := mailer.New(mailer.Config{
		Provider:     cfg.Provider,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		Username:     cfg.Sender,
		Password:     cfg.Password,
		ResendAPIKey: cfg.ResendAPIKey,
		AWSRegion:    cfg.AWSRegion,
	})
	if err != nil {
		slog.Error("Failed to set up mail transport", "error", err)
		os.Exit(1)
	}

	runErr := run(ctx, cfg, transport, opts)
	if err := transport.Close(); err != nil {
		slog.Warn("failed to close mail transport", "error", err)
	}
	if runErr != nil {
		exitOn(runErr)
	}
}

// exitOn maps the error taxonomy to operator-facing exit behavior.
func exitOn(err error) {
	var loadErr *directory.LoadError
	var transportErr *mailer.TransportError

	switch {
	case errors.Is(err, pipeline.ErrEmptyResult):
		// Nothing matched the filter; nothing was sent. Not a failure.
		slog.Warn("no rows to send", "reason", err)
		os.Exit(0)
	case errors.As(err, &loadErr):
		slog.Error("Recipient directory unavailable, nothing was sent", "error", err)
	case errors.As(err, &transportErr):
		slog.Error("Mail transport failed, remaining batch aborted", "error", err)
	case errors.Is(err, errNeedSubStatus):
		os.Exit(2)
	default:
		slog.Error("Dispatch failed", "error", err)
	}
	os.Exit(1)
}
