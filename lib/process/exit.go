// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// Fatal reports err and exits. Errors carrying an ExitCode() method
// exit with that code and print nothing, since the command has already
// written its own output. Everything else prints "error: err" to stderr
// and exits 1. Use it in main() for errors from run(), where the
// structured logger may not be initialized.
func Fatal(err error) {
	os.Exit(report(os.Stderr, err))
}

// report writes err to w when it should be shown and returns the exit
// code.
func report(w io.Writer, err error) int {
	if coder, ok := err.(interface{ ExitCode() int }); ok {
		return coder.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return 1
}
