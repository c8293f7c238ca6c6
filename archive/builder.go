// Package archive packages harvested videos and the transcript into a single zip file.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/alanbriolat/interview-archiver/async"
	"github.com/alanbriolat/interview-archiver/generic"
)

const (
	TranscriptName = "transcript.txt"
	Extension      = ".zip"
)

var (
	ErrDuplicateEntry = errors.New("duplicate entry name")
	ErrEmpty          = errors.New("archive has no entries")
	ErrFinalized      = errors.New("archive already finalized")
)

type entry struct {
	name string
	data []byte
	// Videos are already compressed, so they are stored as-is.
	method uint16
}

// A Builder accumulates named entries plus a single transcript entry, and packages them with Finalize. A Builder is
// not safe for concurrent use.
type Builder struct {
	entries    []entry
	names      generic.Set[string]
	transcript *string
	modified   time.Time
	finalized  bool
}

func NewBuilder() *Builder {
	return &Builder{
		names:    generic.NewSet[string](),
		modified: time.Now(),
	}
}

// AddFile adds a binary entry. Entries are written in the order they were added.
func (b *Builder) AddFile(name string, data []byte) error {
	if b.finalized {
		return ErrFinalized
	}
	if name == TranscriptName || !b.names.Add(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
	}
	b.entries = append(b.entries, entry{name: name, data: data, method: zip.Store})
	return nil
}

// SetTranscript adds or replaces the transcript entry.
func (b *Builder) SetTranscript(text string) error {
	if b.finalized {
		return ErrFinalized
	}
	b.transcript = &text
	return nil
}

// Len returns the number of binary entries, not counting the transcript.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Names returns the entry names in the order they will be written.
func (b *Builder) Names() []string {
	names := make([]string, 0, len(b.entries)+1)
	for _, e := range b.entries {
		names = append(names, e.name)
	}
	if b.transcript != nil {
		names = append(names, TranscriptName)
	}
	return names
}

// Finalize compresses the entries in a goroutine and delivers the packaged bytes on the returned channel. The
// Builder releases its entries and cannot be used afterwards.
func (b *Builder) Finalize(ctx context.Context) <-chan generic.Result[[]byte] {
	if b.finalized {
		return async.RunResult(func() ([]byte, error) { return nil, ErrFinalized })
	}
	b.finalized = true
	entries := b.entries
	if b.transcript != nil {
		entries = append(entries, entry{name: TranscriptName, data: []byte(*b.transcript), method: zip.Deflate})
	}
	b.entries = nil
	b.transcript = nil
	modified := b.modified
	return async.RunResult(func() ([]byte, error) {
		return pack(ctx, entries, modified)
	})
}

func pack(ctx context.Context, entries []entry, modified time.Time) ([]byte, error) {
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := w.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   e.method,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create entry %s: %w", e.name, err)
		}
		if _, err := f.Write(e.data); err != nil {
			return nil, fmt.Errorf("failed to write entry %s: %w", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}
