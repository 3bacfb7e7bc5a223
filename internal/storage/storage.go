package storage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Access modes selecting a record's attachment directory
const (
	AccessPublic  = "public"
	AccessPrivate = "private"
)

// RemoteFileHeader is the first line of a file that links to remote content
const RemoteFileHeader = "#geonetworkremotefile"

// recordsPerBucket is how many record directories share a parent directory
const recordsPerBucket = 100

// Client defines the interface for attachment storage backends
type Client interface {
	RecordDir(access string, recordID int32) string
	Stat(ctx context.Context, path string) (FileInfo, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

// FileInfo describes an attachment as reported by the storage backend.
// RemoteURL is set when the attachment lives on another host.
type FileInfo struct {
	Size      int64
	ModTime   time.Time
	RemoteURL string
}

// IsRemote reports whether the attachment is a link to remote content
func (f FileInfo) IsRemote() bool {
	return f.RemoteURL != ""
}

// AccessDir maps an access mode onto its directory name. Anything other
// than public is treated as private.
func AccessDir(access string) string {
	if access == AccessPublic {
		return AccessPublic
	}
	return AccessPrivate
}

// BucketDir returns the directory grouping recordID with its neighbours,
// e.g. 123 -> 00100-00199
func BucketDir(recordID int32) string {
	start := (recordID / recordsPerBucket) * recordsPerBucket
	return fmt.Sprintf("%05d-%05d", start, start+recordsPerBucket-1)
}

// IsSafeName reports whether name stays inside the directory it is joined to
func IsSafeName(name string) bool {
	return !strings.Contains(name, "..")
}

// parseRemoteFile reads a remote link file. It returns the remote location
// and true when r starts with RemoteFileHeader.
//
// The body is a list of key=value lines: remoteprotocol (default scp),
// remotesite, remotefile and optional remoteuser.
func parseRemoteFile(r io.Reader) (string, bool, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return "", false, scanner.Err()
	}
	if strings.TrimSpace(scanner.Text()) != RemoteFileHeader {
		return "", false, nil
	}

	props := map[string]string{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		props[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return "", false, err
	}

	protocol := props["remoteprotocol"]
	if protocol == "" {
		protocol = "scp"
	}
	site := props["remotesite"]
	if site == "" {
		return "", false, fmt.Errorf("remote file without remotesite")
	}
	host := site
	if user := props["remoteuser"]; user != "" {
		host = user + "@" + site
	}
	file := props["remotefile"]
	if file != "" && !strings.HasPrefix(file, "/") {
		file = "/" + file
	}
	return fmt.Sprintf("%s://%s%s", protocol, host, file), true, nil
}
