// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without printing an extra
// error message. The command is expected to have written its own
// output already.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. process.Fatal checks for this method
// to tell a handled non-zero exit from an unexpected error.
func (e *ExitError) ExitCode() int {
	return e.Code
}
