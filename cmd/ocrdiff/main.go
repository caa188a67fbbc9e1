package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes follow diff(1): 1 when compare --fail-on-diff finds a
// difference, 2 for any other failure.
const (
	exitDiffer = 1
	exitError  = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd.SilenceErrors = true
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if code := exitCode(os.Stderr, err); code != 0 {
		os.Exit(code)
	}
}

// exitCode reports err on w and maps it to the process exit code.
func exitCode(w io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errDocumentsDiffer):
		return exitDiffer
	default:
		fmt.Fprintln(w, "Error:", err)
		return exitError
	}
}
