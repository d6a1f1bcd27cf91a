// ./main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/humanoid/cmd"
)

// main is the entry point for the humanoid CLI application.
func main() {
	// Listen for interrupt signals so in-flight sessions and the browser
	// process shut down cleanly on Ctrl-C.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		// cmd.Execute handles the logging; we only pick the exit code. A
		// canceled context means a graceful user-initiated shutdown.
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
