package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hpcadm/hpcadm/cmd/hpcadm/commands"
)

func main() {
	// Cancel the root context on Ctrl+C or SIGTERM so in-flight waits
	// unwind and report what they saw instead of being cut off mid-poll.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
