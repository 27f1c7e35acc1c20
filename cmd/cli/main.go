package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/vk/hostconf/internal/app"
	"github.com/vk/hostconf/internal/cli"
)

// main is the entrypoint for the hostconf application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// The real main function handles errors and exit codes.
	if err := run(os.Stdout, os.Stderr, os.Args[1:], os.Environ()); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "configuration failed: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(outW, errW io.Writer, args, environ []string) error {
	appConfig, shouldExit, err := cli.Parse(args, environ, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	hostconfApp := app.NewApp(outW, errW, appConfig)
	_, err = hostconfApp.Run(context.Background())
	return err
}
