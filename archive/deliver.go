package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/alanbriolat/interview-archiver"
	"github.com/alanbriolat/interview-archiver/util"
)

// A Deliverer hands a finished archive over to the user, returning where it went.
type Deliverer interface {
	Deliver(ctx context.Context, name string, data []byte) (string, error)
}

// Name returns the suggested archive filename for a candidate, or fallback when the candidate name is empty or has
// nothing left after sanitizing.
func Name(candidate string, fallback string) string {
	base := util.SanitizeFilename(candidate)
	if base == "" {
		base = fallback
	}
	return base + Extension
}

// DirDeliverer writes archives into a directory, creating it if necessary.
type DirDeliverer struct {
	Dir string
}

func (d DirDeliverer) Deliver(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0775); err != nil {
		return "", fmt.Errorf("failed to create target directory: %w", err)
	}
	// Write to a temporary file first, so an interrupted write never leaves a truncated archive under the final name
	f, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("failed to open target file: %w", err)
	}
	tempPath := f.Name()
	defer os.Remove(tempPath)
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	target := filepath.Join(dir, name)
	if err := os.Rename(tempPath, target); err != nil {
		return "", fmt.Errorf("failed to move archive into place: %w", err)
	}
	interview_archiver.Logger(ctx).Sugar().Named("archive").Infof("Saved %s (%s)", target, humanize.Bytes(uint64(len(data))))
	return target, nil
}
