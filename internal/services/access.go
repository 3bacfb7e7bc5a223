package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/RynoXLI/annex/internal/db"
)

// Operation is a privilege that can be granted on a record
type Operation int16

// Reserved operations
const (
	OperationView     Operation = 0
	OperationDownload Operation = 1
	OperationEditing  Operation = 2
	OperationNotify   Operation = 3
	OperationDynamic  Operation = 5
	OperationFeatured Operation = 6
)

func (o Operation) String() string {
	switch o {
	case OperationView:
		return "view"
	case OperationDownload:
		return "download"
	case OperationEditing:
		return "editing"
	case OperationNotify:
		return "notify"
	case OperationDynamic:
		return "dynamic"
	case OperationFeatured:
		return "featured"
	default:
		return "operation(" + strconv.Itoa(int(o)) + ")"
	}
}

// Reserved groups
const (
	GroupGuest    int32 = -1
	GroupIntranet int32 = 0
	GroupAll      int32 = 1
)

// ProfileAdministrator bypasses every privilege check
const ProfileAdministrator = "Administrator"

// PrivilegeStore is the catalog data needed to decide privileges
type PrivilegeStore interface {
	GetMetadataOwner(ctx context.Context, id int32) (int32, error)
	GetUserAccess(ctx context.Context, id int32) (db.UserAccess, error)
	CountOperationAllowed(
		ctx context.Context,
		metadataID int32,
		operationID int16,
		groupIDs []int32,
	) (int64, error)
}

// PrivilegeChecker decides whether a user may perform an operation on a record
type PrivilegeChecker interface {
	CheckPrivilege(ctx context.Context, recordID int32, userID string, op Operation) error
}

// AccessManager checks operation grants against the catalog
type AccessManager struct {
	store PrivilegeStore
}

// NewAccessManager creates an AccessManager over store
func NewAccessManager(store PrivilegeStore) *AccessManager {
	return &AccessManager{store: store}
}

// CheckPrivilege returns nil when userID (empty for anonymous) holds op on the
// record, ErrNotFound when the record does not exist and ErrForbidden otherwise.
func (m *AccessManager) CheckPrivilege(
	ctx context.Context,
	recordID int32,
	userID string,
	op Operation,
) error {
	owner, err := m.store.GetMetadataOwner(ctx, recordID)
	if err != nil {
		return notFoundIfNoRows(err, "record %d", recordID)
	}

	groups := []int32{GroupGuest, GroupAll}
	if userID != "" {
		uid, err := strconv.ParseInt(userID, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: malformed user id %q", ErrForbidden, userID)
		}
		user, err := m.store.GetUserAccess(ctx, int32(uid))
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// Stale session user, fall back to anonymous groups
		case err != nil:
			return err
		default:
			if user.Profile == ProfileAdministrator || user.ID == owner {
				return nil
			}
			groups = append(append([]int32{}, user.GroupIDs...), GroupAll)
		}
	}

	n, err := m.store.CountOperationAllowed(ctx, recordID, int16(op), groups)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s on record %d", ErrForbidden, op, recordID)
	}
	return nil
}
