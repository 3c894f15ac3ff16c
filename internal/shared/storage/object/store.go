package object

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// LocalPather is implemented by stores that can serve an object straight from
// the local filesystem without a copy.
type LocalPather interface {
	LocalPath(storageKey string) (string, error)
}

// Materialize makes a stored object available at a stable local path for page
// decoding. The returned cleanup removes any temp copy and is always non-nil.
// The file extension of the storage key is preserved so decoders can dispatch
// on it.
func Materialize(ctx context.Context, store ObjectStore, storageKey string) (string, func(), error) {
	noop := func() {}

	if lp, ok := store.(LocalPather); ok {
		path, err := lp.LocalPath(storageKey)
		if err != nil {
			return "", noop, err
		}
		return path, noop, nil
	}

	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return "", noop, err
	}
	defer body.Close()

	f, err := os.CreateTemp("", "labreport-*"+filepath.Ext(storageKey))
	if err != nil {
		return "", noop, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", noop, fmt.Errorf("copy object to temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", noop, err
	}

	path := f.Name()
	return path, func() { os.Remove(path) }, nil
}
