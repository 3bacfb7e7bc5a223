package db

import (
	"context"
)

const getUserContact = `-- name: GetUserContact :one
SELECT surname, name, email, organisation FROM users WHERE id = $1
`

// GetUserContact returns the contact fields of a user
func (q *Queries) GetUserContact(ctx context.Context, id int32) (UserContact, error) {
	row := q.db.QueryRow(ctx, getUserContact, id)
	var c UserContact
	err := row.Scan(&c.Surname, &c.Name, &c.Email, &c.Organisation)
	return c, err
}

const getUserAccess = `-- name: GetUserAccess :one
SELECT u.id, u.profile, COALESCE(array_agg(ug.groupid) FILTER (WHERE ug.groupid IS NOT NULL), '{}')::integer[]
FROM users u
LEFT JOIN usergroups ug ON ug.userid = u.id
WHERE u.id = $1
GROUP BY u.id, u.profile
`

// GetUserAccess returns the profile and group memberships of a user
func (q *Queries) GetUserAccess(ctx context.Context, id int32) (UserAccess, error) {
	row := q.db.QueryRow(ctx, getUserAccess, id)
	var a UserAccess
	err := row.Scan(&a.ID, &a.Profile, &a.GroupIDs)
	return a, err
}
