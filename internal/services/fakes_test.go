package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/jackc/pgx/v5"

	"github.com/RynoXLI/annex/internal/db"
	"github.com/RynoXLI/annex/internal/events"
	"github.com/RynoXLI/annex/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCatalog struct {
	infos    map[int32]db.MetadataInfo
	data     map[int32]string
	uuids    map[string]int32
	contacts map[int32]db.UserContact
	err      error

	mu    sync.Mutex
	calls []string
}

func (f *fakeCatalog) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCatalog) GetMetadataIDByUUID(_ context.Context, uuid string) (int32, error) {
	f.record("id-by-uuid")
	if id, ok := f.uuids[uuid]; ok {
		return id, nil
	}
	return 0, pgx.ErrNoRows
}

func (f *fakeCatalog) GetMetadataInfo(_ context.Context, id int32) (db.MetadataInfo, error) {
	f.record("info")
	if info, ok := f.infos[id]; ok {
		return info, nil
	}
	return db.MetadataInfo{}, pgx.ErrNoRows
}

func (f *fakeCatalog) GetMetadataData(_ context.Context, id int32) (string, error) {
	f.record("data")
	if d, ok := f.data[id]; ok {
		return d, nil
	}
	return "", pgx.ErrNoRows
}

func (f *fakeCatalog) GetUserContact(_ context.Context, id int32) (db.UserContact, error) {
	f.record("contact")
	if f.err != nil {
		return db.UserContact{}, f.err
	}
	if c, ok := f.contacts[id]; ok {
		return c, nil
	}
	return db.UserContact{}, pgx.ErrNoRows
}

// fakeChecker allows everything unless err is set
type fakeChecker struct {
	err     error
	checked []string
}

func (f *fakeChecker) CheckPrivilege(_ context.Context, recordID int32, userID string, op Operation) error {
	f.checked = append(f.checked, fmt.Sprintf("%d/%s/%s", recordID, userID, op))
	return f.err
}

// fakeStorage serves file infos from a map keyed by path relative to the record dir
type fakeStorage struct {
	files   map[string]storage.FileInfo
	bodies  map[string]string
	statErr error
	stats   []string
}

func (f *fakeStorage) RecordDir(access string, recordID int32) string {
	return filepath.Join("/data", storage.BucketDir(recordID), fmt.Sprint(recordID), storage.AccessDir(access))
}

func (f *fakeStorage) Stat(_ context.Context, path string) (storage.FileInfo, error) {
	f.stats = append(f.stats, path)
	if f.statErr != nil {
		return storage.FileInfo{}, f.statErr
	}
	info, ok := f.files[filepath.Base(path)]
	if !ok {
		return storage.FileInfo{}, storage.ErrNotFound
	}
	return info, nil
}

func (f *fakeStorage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := f.bodies[filepath.Base(path)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

// fakeTransformer wraps the input root in an element named after the stylesheet
type fakeTransformer struct {
	fail   map[string]error
	inputs map[string]string
	calls  int
}

func (f *fakeTransformer) Transform(
	_ context.Context,
	doc *etree.Document,
	name string,
) (*etree.Document, error) {
	f.calls++
	if f.inputs == nil {
		f.inputs = map[string]string{}
	}
	in, _ := doc.WriteToString()
	f.inputs[name] = in

	if err := f.fail[name]; err != nil {
		return nil, err
	}
	out := etree.NewDocument()
	root := out.CreateElement(strings.TrimSuffix(name, ".xsl"))
	if doc.Root() != nil {
		root.AddChild(doc.Root().Copy())
	}
	return out, nil
}

type fakePublisher struct {
	events []events.DisclaimerEvent
	err    error
}

func (f *fakePublisher) DisclaimerAcknowledged(e events.DisclaimerEvent) error {
	f.events = append(f.events, e)
	return f.err
}

var errBoom = errors.New("boom")
