// Package storage implements local filesystem storage for record attachments
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// remoteHeaderProbe bounds how much of a file is read looking for the remote header
const remoteHeaderProbe = 4096

// LocalStorage implements Client for attachments kept under a data directory
// laid out as <base>/<bucket>/<id>/<public|private>/<file>
type LocalStorage struct {
	basePath string
	logger   *slog.Logger
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string, logger *slog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath, logger: logger}, nil
}

// RecordDir returns the directory holding a record's attachments for access
func (l *LocalStorage) RecordDir(access string, recordID int32) string {
	return filepath.Join(
		l.basePath,
		BucketDir(recordID),
		strconv.FormatInt(int64(recordID), 10),
		AccessDir(access),
	)
}

// Stat reports the size and modification time of a local attachment, or the
// remote location when the file is a remote link
func (l *LocalStorage) Stat(_ context.Context, path string) (FileInfo, error) {
	if !l.contains(path) {
		return FileInfo{}, fmt.Errorf("%s: %w", path, ErrUnsafeName)
	}
	st, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return FileInfo{}, ErrNotFound
	}
	if err != nil {
		return FileInfo{}, err
	}
	if !st.Mode().IsRegular() {
		return FileInfo{}, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}

	remote, err := l.remoteLocation(path)
	if err != nil {
		return FileInfo{}, err
	}
	if remote != "" {
		return FileInfo{RemoteURL: remote}, nil
	}

	return FileInfo{Size: st.Size(), ModTime: st.ModTime()}, nil
}

// Open retrieves a local attachment for reading
func (l *LocalStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	if !l.contains(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsafeName)
	}
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return file, err
}

// contains reports whether path lies under the data directory
func (l *LocalStorage) contains(path string) bool {
	rel, err := filepath.Rel(l.basePath, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (l *LocalStorage) remoteLocation(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := file.Close(); err != nil {
			l.logger.Error("failed to close file", "error", err, "path", path)
		}
	}()

	location, ok, err := parseRemoteFile(io.LimitReader(file, remoteHeaderProbe))
	if err != nil {
		return "", fmt.Errorf("read remote link %s: %w", path, err)
	}
	if !ok {
		return "", nil
	}
	return location, nil
}
