package util

import (
	"errors"
	"net/url"
	"path"
	"strings"

	"github.com/alanbriolat/interview-archiver/generic"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
)

var videoExtensions = generic.NewSet("m4v", "mkv", "mov", "mp4", "webm")

// FilenameFromURL returns the last segment of the URL path, ignoring any query, e.g. "a.mp4" for
// "https://cdn.example.com/v/a.mp4?sig=1".
func FilenameFromURL(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrNoFilename
	}
	name := path.Base(strings.TrimRight(u.Path, "/"))
	// Base gives "." for an empty path, and "." or ".." are not filenames either
	if strings.Trim(name, "./") == "" {
		return "", ErrNoFilename
	}
	return name, nil
}

func FilenameFromURLString(s string) (string, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	return FilenameFromURL(u)
}

// VideoExtension returns the extension (without the dot) of the file named by a video URL if it is a known video
// extension, otherwise fallback.
func VideoExtension(s string, fallback string) string {
	filename, err := FilenameFromURLString(s)
	if err != nil {
		return fallback
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if !videoExtensions.Contains(ext) {
		return fallback
	}
	return ext
}
