package db

import "github.com/jackc/pgx/v5/pgtype"

// MetadataInfo is the descriptive row of a catalog record, without its XML body
type MetadataInfo struct {
	ID         int32
	UUID       string
	SchemaID   string
	IsTemplate string
	CreateDate string
	ChangeDate string
	Owner      int32
	GroupOwner pgtype.Int4
}

// UserContact holds the contact fields used to prefill the feedback form
type UserContact struct {
	Surname      pgtype.Text
	Name         pgtype.Text
	Email        pgtype.Text
	Organisation pgtype.Text
}

// UserAccess holds what the privilege check needs to know about a user
type UserAccess struct {
	ID       int32
	Profile  string
	GroupIDs []int32
}
