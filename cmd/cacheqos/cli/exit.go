// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// UsageError marks an error as command-line misuse: an unknown command
// or flag, a missing subcommand, a malformed argument. The binary's
// main function checks for the ExitCode method on returned errors and
// exits 2 for usage errors instead of the generic failure code 1, the
// conventional split between "you typed it wrong" and "it didn't work".
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// ExitCode returns 2, the conventional exit code for misuse.
func (e *UsageError) ExitCode() int {
	return 2
}

// usageErrorf builds a *UsageError with fmt.Sprintf formatting.
func usageErrorf(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
