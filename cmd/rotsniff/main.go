// Package main provides the entry point for the rotsniff bit-rot detector CLI.
package main

import (
	"errors"
	"os"

	"github.com/jamesainslie/rotsniff/pkg/rotsniff/reconcile"
)

// Exit statuses.
const (
	exitOK       = 0
	exitDiverged = 1
	exitFatal    = 2
)

func main() {
	err := Execute()
	if err != nil && !errors.Is(err, reconcile.ErrDiverged) {
		printError("%v", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, reconcile.ErrDiverged):
		return exitDiverged
	default:
		return exitFatal
	}
}
