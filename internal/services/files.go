package services

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"time"

	"github.com/beevik/etree"

	"github.com/RynoXLI/annex/internal/storage"
)

// unknown stands in for the size and date of remote files
const unknown = "unknown"

// enumerateFiles echoes every requested name into response and describes the
// safe ones in a <downloaded> element. It also returns the names described.
// Storage failures never fail the request; the file is described as empty.
//
// Names are echoed before they are checked, so rejected names still appear
// once as <fname>.
func (s *LicenseService) enumerateFiles(
	ctx context.Context,
	response *etree.Element,
	access string,
	recordID int32,
	names []string,
) (*etree.Element, []string) {
	downloaded := etree.NewElement("downloaded")
	served := make([]string, 0, len(names))
	dir := s.storage.RecordDir(access, recordID)

	for _, name := range names {
		response.CreateElement("fname").SetText(name)

		if !storage.IsSafeName(name) {
			s.logger.WarnContext(ctx, "Skipping unsafe file name",
				"record_id", recordID,
				"fname", name,
			)
			continue
		}

		info, err := s.storage.Stat(ctx, filepath.Join(dir, name))
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) && !errors.Is(err, storage.ErrNotRegular) {
				s.logger.WarnContext(ctx, "Describing unreadable file as empty",
					"record_id", recordID,
					"fname", name,
					"error", err,
				)
			}
			// Missing or unreadable files are described as empty and never modified
			info = storage.FileInfo{ModTime: time.Unix(0, 0)}
		}

		file := downloaded.CreateElement("file")
		if info.IsRemote() {
			file.CreateAttr("size", unknown)
			file.CreateAttr("datemodified", unknown)
			file.CreateAttr("name", info.RemoteURL)
			served = append(served, info.RemoteURL)
			continue
		}
		file.CreateAttr("size", strconv.FormatInt(info.Size, 10))
		file.CreateAttr("name", name)
		file.CreateAttr("datemodified", info.ModTime.Format(DateLayout))
		served = append(served, name)
	}

	return downloaded, served
}
