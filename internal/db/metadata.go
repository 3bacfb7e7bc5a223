package db

import (
	"context"
)

const getMetadataIDByUUID = `-- name: GetMetadataIDByUUID :one
SELECT id FROM metadata WHERE uuid = $1
`

// GetMetadataIDByUUID resolves a record UUID to its numeric id
func (q *Queries) GetMetadataIDByUUID(ctx context.Context, uuid string) (int32, error) {
	row := q.db.QueryRow(ctx, getMetadataIDByUUID, uuid)
	var id int32
	err := row.Scan(&id)
	return id, err
}

const getMetadataInfo = `-- name: GetMetadataInfo :one
SELECT id, uuid, schemaid, istemplate, createdate, changedate, owner, groupowner
FROM metadata
WHERE id = $1
`

// GetMetadataInfo returns the descriptive row of a record
func (q *Queries) GetMetadataInfo(ctx context.Context, id int32) (MetadataInfo, error) {
	row := q.db.QueryRow(ctx, getMetadataInfo, id)
	var i MetadataInfo
	err := row.Scan(
		&i.ID,
		&i.UUID,
		&i.SchemaID,
		&i.IsTemplate,
		&i.CreateDate,
		&i.ChangeDate,
		&i.Owner,
		&i.GroupOwner,
	)
	return i, err
}

const getMetadataData = `-- name: GetMetadataData :one
SELECT data FROM metadata WHERE id = $1
`

// GetMetadataData returns the full XML body of a record
func (q *Queries) GetMetadataData(ctx context.Context, id int32) (string, error) {
	row := q.db.QueryRow(ctx, getMetadataData, id)
	var data string
	err := row.Scan(&data)
	return data, err
}

const getMetadataOwner = `-- name: GetMetadataOwner :one
SELECT owner FROM metadata WHERE id = $1
`

// GetMetadataOwner returns the id of the user owning a record
func (q *Queries) GetMetadataOwner(ctx context.Context, id int32) (int32, error) {
	row := q.db.QueryRow(ctx, getMetadataOwner, id)
	var owner int32
	err := row.Scan(&owner)
	return owner, err
}

const countOperationAllowed = `-- name: CountOperationAllowed :one
SELECT count(*)
FROM operationallowed
WHERE metadataid = $1 AND operationid = $2 AND groupid = ANY($3::integer[])
`

// CountOperationAllowed counts grants of operation on a record to any of groupIDs
func (q *Queries) CountOperationAllowed(
	ctx context.Context,
	metadataID int32,
	operationID int16,
	groupIDs []int32,
) (int64, error) {
	row := q.db.QueryRow(ctx, countOperationAllowed, metadataID, operationID, groupIDs)
	var count int64
	err := row.Scan(&count)
	return count, err
}
