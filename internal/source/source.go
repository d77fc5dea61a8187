// Package source provides segment payload producers for the HLS server.
// Payloads are expected to be pre-encoded audio with no ID3 tag.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrNoFiles is returned by NewDir when the directory holds no matching files.
var ErrNoFiles = errors.New("no source files")

// Dir loops over the files of a directory in name order, one file per segment.
// Each file should hold exactly one segment duration of encoded audio.
type Dir struct {
	mu    sync.Mutex
	files []string
	next  int
}

// NewDir returns a Dir over the files in dir whose extension is ext (e.g. ".aac").
// An empty ext matches every regular file.
func NewDir(dir, ext string) (*Dir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s matching %q", ErrNoFiles, dir, ext)
	}
	sort.Strings(files)
	return &Dir{files: files}, nil
}

// Produce returns the contents of the next file, wrapping around after the last one.
func (d *Dir) Produce(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	name := d.files[d.next]
	d.next = (d.next + 1) % len(d.files)
	d.mu.Unlock()

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	return data, nil
}

// Len returns the number of files in the loop.
func (d *Dir) Len() int {
	return len(d.files)
}

// Silence produces empty payloads. It keeps the playlist advancing when no source is configured.
type Silence struct{}

// Produce implements hls.Producer.
func (Silence) Produce(ctx context.Context) ([]byte, error) {
	return nil, ctx.Err()
}
