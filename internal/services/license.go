package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/jackc/pgx/v5"

	"github.com/RynoXLI/annex/internal/db"
	"github.com/RynoXLI/annex/internal/events"
	"github.com/RynoXLI/annex/internal/session"
	"github.com/RynoXLI/annex/internal/storage"
	"github.com/RynoXLI/annex/internal/transform"
)

// DateLayout formats change, current and file modification dates
const DateLayout = "2006-01-02 15:04:05"

// Catalog reads records and user contacts
type Catalog interface {
	GetMetadataIDByUUID(ctx context.Context, uuid string) (int32, error)
	GetMetadataInfo(ctx context.Context, id int32) (db.MetadataInfo, error)
	GetMetadataData(ctx context.Context, id int32) (string, error)
	GetUserContact(ctx context.Context, id int32) (db.UserContact, error)
}

// Stylesheets names the two stylesheets of the annex pipeline
type Stylesheets struct {
	Brief        string
	LicenseAnnex string
}

// LimitationsRequest carries the parameters of a license annex request
type LimitationsRequest struct {
	ID        string
	UUID      string
	Access    string
	FileNames []string
}

// LicenseService gathers the limitations and constraints of a record and
// renders them, with the chosen attachments, as a license annex
type LicenseService struct {
	catalog     Catalog
	access      PrivilegeChecker
	storage     storage.Client
	transformer transform.Transformer
	publisher   events.Publisher
	stylesheets Stylesheets
	logger      *slog.Logger
	now         func() time.Time
}

// NewLicenseService creates a new license service with the given dependencies.
// publisher may be nil.
func NewLicenseService(
	catalog Catalog,
	access PrivilegeChecker,
	storage storage.Client,
	transformer transform.Transformer,
	publisher events.Publisher,
	stylesheets Stylesheets,
	logger *slog.Logger,
) *LicenseService {
	return &LicenseService{
		catalog:     catalog,
		access:      access,
		storage:     storage,
		transformer: transformer,
		publisher:   publisher,
		stylesheets: stylesheets,
		logger:      logger,
		now:         time.Now,
	}
}

// AddLimitations builds the license annex response for a record and marks the
// disclaimer as shown in sess
func (s *LicenseService) AddLimitations(
	ctx context.Context,
	req LimitationsRequest,
	sess *session.Session,
) (*etree.Document, error) {
	recordID, err := s.resolveID(ctx, req.ID, req.UUID)
	if err != nil {
		return nil, err
	}
	id := strconv.FormatInt(int64(recordID), 10)

	if req.Access == "" {
		return nil, fmt.Errorf("%w: access is required", ErrBadParameter)
	}

	userID, _ := sess.UserID()
	if err := s.access.CheckPrivilege(ctx, recordID, userID, OperationDownload); err != nil {
		return nil, err
	}

	info, err := s.catalog.GetMetadataInfo(ctx, recordID)
	if err != nil {
		return nil, notFoundIfNoRows(err, "metadata %s", id)
	}
	record, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	response := doc.CreateElement("response")
	response.CreateElement("id").SetText(id)
	response.CreateElement("uuid").SetText(info.UUID)

	downloaded, served := s.enumerateFiles(ctx, response, req.Access, recordID, req.FileNames)
	response.AddChild(downloaded)
	response.CreateElement("access").SetText(req.Access)
	response.CreateElement("metadata").AddChild(record.Root().Copy())

	annex, err := s.renderAnnex(ctx, record, info.ChangeDate, downloaded)
	if err != nil {
		return nil, err
	}
	license := response.CreateElement("license")
	for _, tok := range annex.Child {
		switch t := tok.(type) {
		case *etree.Element:
			license.AddChild(t.Copy())
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				license.CreateText(t.Data)
			}
		}
	}

	// Downloads of this record's files are allowed from now on
	sess.MarkDisclaimer(id)

	if err := s.addUserContact(ctx, response, userID); err != nil {
		return nil, err
	}

	s.publish(events.DisclaimerEvent{
		RecordID:       id,
		UUID:           info.UUID,
		SessionID:      sess.ID(),
		UserID:         userID,
		Files:          served,
		AcknowledgedAt: s.now(),
	})

	return doc, nil
}

// resolveID returns the record id named by id or, failing that, by uuid
func (s *LicenseService) resolveID(ctx context.Context, id, uuid string) (int32, error) {
	if id != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: id %q is not a record id", ErrBadParameter, id)
		}
		return int32(n), nil
	}
	if uuid != "" {
		n, err := s.catalog.GetMetadataIDByUUID(ctx, uuid)
		if err != nil {
			return 0, notFoundIfNoRows(err, "metadata with uuid %s", uuid)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: id or uuid is required", ErrBadParameter)
}

func (s *LicenseService) loadRecord(ctx context.Context, recordID int32) (*etree.Document, error) {
	data, err := s.catalog.GetMetadataData(ctx, recordID)
	if err != nil {
		return nil, notFoundIfNoRows(err, "metadata %d", recordID)
	}
	if strings.TrimSpace(data) == "" {
		return nil, fmt.Errorf("%w: metadata %d has no content", ErrNotFound, recordID)
	}

	record := etree.NewDocument()
	if err := record.ReadFromString(data); err != nil {
		return nil, fmt.Errorf("parse metadata %d: %w", recordID, err)
	}
	if record.Root() == nil {
		return nil, fmt.Errorf("%w: metadata %d has no root element", ErrNotFound, recordID)
	}
	return record, nil
}

// renderAnnex turns the record into its brief form and renders the license
// annex from it and the downloaded file list
func (s *LicenseService) renderAnnex(
	ctx context.Context,
	record *etree.Document,
	changeDate string,
	downloaded *etree.Element,
) (*etree.Document, error) {
	brief, err := s.transformer.Transform(ctx, record, s.stylesheets.Brief)
	if err != nil {
		return nil, err
	}
	briefRoot := brief.Root()
	if briefRoot == nil {
		return nil, &transform.Error{
			Stylesheet: s.stylesheets.Brief,
			Err:        errors.New("no root element in output"),
		}
	}
	briefRoot.CreateAttr("changedate", changeDate)
	briefRoot.CreateAttr("currdate", s.now().Format(DateLayout))

	combined := etree.NewDocument()
	root := combined.CreateElement("root")
	root.AddChild(briefRoot.Copy())
	root.AddChild(downloaded.Copy())

	if s.logger.Enabled(ctx, slog.LevelDebug) {
		if xml, err := combined.WriteToString(); err == nil {
			s.logger.DebugContext(ctx, "Passed to license annex stylesheet",
				"stylesheet", s.stylesheets.LicenseAnnex,
				"document", xml,
			)
		}
	}

	return s.transformer.Transform(ctx, combined, s.stylesheets.LicenseAnnex)
}

// addUserContact appends the contact fields of the session user, if any
func (s *LicenseService) addUserContact(
	ctx context.Context,
	response *etree.Element,
	userID string,
) error {
	if userID == "" {
		return nil
	}
	uid, err := strconv.ParseInt(userID, 10, 32)
	if err != nil {
		s.logger.WarnContext(ctx, "Ignoring malformed session user id", "user_id", userID)
		return nil
	}

	contact, err := s.catalog.GetUserContact(ctx, int32(uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup user %d: %w", uid, err)
	}

	response.CreateElement("Surname").SetText(contact.Surname.String)
	response.CreateElement("Name").SetText(contact.Name.String)
	response.CreateElement("Email").SetText(contact.Email.String)
	response.CreateElement("Organisation").SetText(contact.Organisation.String)
	return nil
}

func (s *LicenseService) publish(event events.DisclaimerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.DisclaimerAcknowledged(event); err != nil {
		s.logger.Warn("Failed to publish disclaimer event",
			"error", err,
			"record_id", event.RecordID,
		)
	}
}
