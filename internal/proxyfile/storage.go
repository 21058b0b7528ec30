// Package proxyfile stores proxy-authorization uploads. The core only needs
// two operations: upload one blob under an assembly-scoped path and wipe a
// whole path prefix on assembly restart.
package proxyfile

import (
	"context"
	"io"
)

// Storage is the blob-store port.
type Storage interface {
	// Upload stores the blob under path and returns a stable URL for it.
	Upload(ctx context.Context, path string, blob io.Reader) (string, error)
	// DeleteAllUnder removes every blob whose path starts with prefix.
	DeleteAllUnder(ctx context.Context, prefix string) error
}
