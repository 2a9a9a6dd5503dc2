package blob

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/sehxxnee/botbuilder/pkg/errors"
)

// MemoryDownloader serves objects from a map. Used in tests.
type MemoryDownloader struct {
	mu      sync.RWMutex
	objects map[string][]byte
	fail    error
}

var _ Downloader = (*MemoryDownloader)(nil)

func NewMemoryDownloader() *MemoryDownloader {
	return &MemoryDownloader{objects: make(map[string][]byte)}
}

func (d *MemoryDownloader) Put(fileKey string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.objects[fileKey] = data
}

// SetFail makes every Download return err until called again with nil.
func (d *MemoryDownloader) SetFail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = err
}

func (d *MemoryDownloader) Download(ctx context.Context, fileKey string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.fail != nil {
		return nil, d.fail
	}
	data, ok := d.objects[fileKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrBlobNotFound, fileKey)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
