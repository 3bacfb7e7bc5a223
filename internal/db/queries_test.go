package db

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow scans a fixed set of values into the destinations
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

// fakeDB answers every QueryRow with the configured row and records the call
type fakeDB struct {
	row       fakeRow
	lastSQL   string
	lastArgs  []any
	callCount int
}

func (f *fakeDB) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (f *fakeDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	f.callCount++
	f.lastSQL = sql
	f.lastArgs = args
	return f.row
}

func TestGetMetadataInfo(t *testing.T) {
	fdb := &fakeDB{row: fakeRow{values: []any{
		int32(12),
		"0e1b2c3d-aaaa-bbbb-cccc-000000000012",
		"iso19139",
		"n",
		"2024-01-01T10:00:00",
		"2024-05-06T07:08:09",
		int32(1),
		pgtype.Int4{Int32: 2, Valid: true},
	}}}

	info, err := New(fdb).GetMetadataInfo(context.Background(), 12)
	require.NoError(t, err)

	assert.Equal(t, int32(12), info.ID)
	assert.Equal(t, "0e1b2c3d-aaaa-bbbb-cccc-000000000012", info.UUID)
	assert.Equal(t, "2024-05-06T07:08:09", info.ChangeDate)
	assert.Equal(t, int32(2), info.GroupOwner.Int32)
	assert.Equal(t, []any{int32(12)}, fdb.lastArgs)
	assert.Contains(t, fdb.lastSQL, "FROM metadata")
}

func TestGetMetadataInfo_NoRows(t *testing.T) {
	fdb := &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}

	_, err := New(fdb).GetMetadataInfo(context.Background(), 99)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestGetMetadataIDByUUID(t *testing.T) {
	fdb := &fakeDB{row: fakeRow{values: []any{int32(5)}}}

	id, err := New(fdb).GetMetadataIDByUUID(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, int32(5), id)
	assert.Equal(t, []any{"abc"}, fdb.lastArgs)
}

func TestGetMetadataData(t *testing.T) {
	fdb := &fakeDB{row: fakeRow{values: []any{"<gmd:MD_Metadata/>"}}}

	data, err := New(fdb).GetMetadataData(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "<gmd:MD_Metadata/>", data)
}

func TestCountOperationAllowed(t *testing.T) {
	fdb := &fakeDB{row: fakeRow{values: []any{int64(2)}}}

	n, err := New(fdb).CountOperationAllowed(context.Background(), 5, 1, []int32{1, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, []any{int32(5), int16(1), []int32{1, 3}}, fdb.lastArgs)
	assert.Contains(t, fdb.lastSQL, "ANY($3::integer[])")
}

func TestGetUserContact(t *testing.T) {
	fdb := &fakeDB{row: fakeRow{values: []any{
		pgtype.Text{String: "Lovelace", Valid: true},
		pgtype.Text{String: "Ada", Valid: true},
		pgtype.Text{String: "ada@example.org", Valid: true},
		pgtype.Text{},
	}}}

	c, err := New(fdb).GetUserContact(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", c.Surname.String)
	assert.Equal(t, "Ada", c.Name.String)
	assert.Equal(t, "ada@example.org", c.Email.String)
	assert.False(t, c.Organisation.Valid)
}

func TestGetUserAccess(t *testing.T) {
	fdb := &fakeDB{row: fakeRow{values: []any{int32(3), "Editor", []int32{2, 4}}}}

	a, err := New(fdb).GetUserAccess(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, UserAccess{ID: 3, Profile: "Editor", GroupIDs: []int32{2, 4}}, a)
}
