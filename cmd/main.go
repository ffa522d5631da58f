package main

import (
	"context"
	"errors"
	"os"

	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	app := &cli.Command{
		Name:     "stonetify",
		Usage:    "Control Spotify playback from the terminal",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if shared.RequiresReauth(err) {
			logger.Error("credentials revoked, run 'stonetify auth' to reconnect")
			os.Exit(1)
		}
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
