package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/RynoXLI/annex/internal/session"
	"github.com/RynoXLI/annex/internal/storage"
)

// Download is an attachment ready to be served. Body is nil for remote files.
type Download struct {
	Name string
	Info storage.FileInfo
	Body io.ReadCloser
}

// DownloadFile opens an attachment of a record whose license annex was shown
// in sess
func (s *LicenseService) DownloadFile(
	ctx context.Context,
	sess *session.Session,
	id string,
	access string,
	name string,
) (*Download, error) {
	recordID, err := strconv.ParseInt(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: id %q is not a record id", ErrBadParameter, id)
	}
	if name == "" || !storage.IsSafeName(name) {
		return nil, fmt.Errorf("%w: unsafe file name %q", ErrBadParameter, name)
	}

	marked, ok := sess.Disclaimer()
	if !ok || marked != strconv.FormatInt(recordID, 10) {
		return nil, fmt.Errorf("%w: license annex of record %d not acknowledged", ErrForbidden, recordID)
	}

	userID, _ := sess.UserID()
	if err := s.access.CheckPrivilege(ctx, int32(recordID), userID, OperationDownload); err != nil {
		return nil, err
	}

	path := filepath.Join(s.storage.RecordDir(access, int32(recordID)), name)
	info, err := s.storage.Stat(ctx, path)
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrNotRegular):
		return nil, fmt.Errorf("%w: file %s of record %d", ErrNotFound, name, recordID)
	case errors.Is(err, storage.ErrUnsafeName):
		return nil, fmt.Errorf("%w: %v", ErrBadParameter, err)
	case err != nil:
		return nil, err
	}
	if info.IsRemote() {
		return &Download{Name: name, Info: info}, nil
	}

	body, err := s.storage.Open(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: file %s of record %d", ErrNotFound, name, recordID)
	}
	if err != nil {
		return nil, err
	}
	return &Download{Name: name, Info: info, Body: body}, nil
}
