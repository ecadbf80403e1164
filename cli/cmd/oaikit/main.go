// Command oaikit is a command-line client for OpenAI-compatible APIs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/petal-labs/oaikit/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.NewApp().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
