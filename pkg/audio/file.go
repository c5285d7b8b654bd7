// Package audio handles encoded audio files on disk: reading a recorded
// sample, guessing its MIME type, and persisting a synthesized stream.
//
// Audio is never decoded here. Bytes travel between the file system and the
// providers unchanged.
package audio

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Sample is an encoded recording loaded from disk.
type Sample struct {
	// Data holds the raw file content.
	Data []byte

	// Filename is the base name of the source file.
	Filename string

	// ContentType is derived from the file extension.
	ContentType string
}

var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg",
	".flac": "audio/flac",
	".webm": "audio/webm",
	".aac":  "audio/aac",
}

// ContentType returns the MIME type for path based on its extension, or
// "application/octet-stream" when the extension is unknown.
func ContentType(path string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ReadSample loads the file at path. A missing file yields an error that
// matches fs.ErrNotExist.
func ReadSample(path string) (*Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("audio: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("audio: %s is empty", path)
	}
	return &Sample{
		Data:        data,
		Filename:    filepath.Base(path),
		ContentType: ContentType(path),
	}, nil
}

// WriteFile copies r to path, creating parent directories as needed. The
// file is written to a temporary sibling first and renamed on success, so a
// failed stream never leaves a truncated file at path. It returns the number
// of bytes written.
func WriteFile(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("audio: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("audio: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	n, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("audio: write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("audio: chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return n, fmt.Errorf("audio: rename to %s: %w", path, err)
	}
	return n, nil
}

// IsNotExist reports whether err stems from a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
