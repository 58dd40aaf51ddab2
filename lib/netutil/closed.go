// Copyright 2026 The Titlepack Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// IsExpectedCloseError reports whether err means the peer went away:
// EOF, a closed connection, a broken pipe, a connection reset, or a
// cancelled context. A relay client that disconnects mid-download
// produces these on the write side, and the in-flight CDN fetch sees
// the cancelled request context.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
