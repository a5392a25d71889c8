package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"galman/internal/faults"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "galman:", err)
			if hint, ok := errorHint(err); ok {
				fmt.Fprintln(os.Stderr, "hint:", hint)
			}
		}
		os.Exit(1)
	}
}

// errorHint returns a next step for classified failures only.
func errorHint(err error) (string, bool) {
	for _, marker := range []error{faults.ErrCollectionBusy, faults.ErrImportSource} {
		if errors.Is(err, marker) {
			return faults.Hint(err), true
		}
	}
	return "", false
}
