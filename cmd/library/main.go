package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dolverin/Anime-Library/pkg/errors"
)

// Exit codes reported to the calling shell.
const (
	exitFailure    = 1
	exitBadRequest = 2
	exitConflict   = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !stderrors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.IsBadRequest(err):
		return exitBadRequest
	case errors.IsConflict(err):
		return exitConflict
	default:
		return exitFailure
	}
}
