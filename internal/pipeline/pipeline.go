// Package pipeline performs every mutation against the platform as the
// ordered write sequence its own server would perform internally: primary
// record, append-only transaction-log record, append-only activity record,
// each tagged with a derived integrity hash.
//
// The writes within one logical operation are sequential and not wrapped
// in a transaction (the platform's own writers do the same); a crash
// between steps leaves partial state. Log and activity writes always
// precede primary-record deletes so the audit trail survives a partial
// failure.
package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hha-nguyen/huly-mcp-server/internal/identity"
	"github.com/hha-nguyen/huly-mcp-server/internal/project"
	"github.com/hha-nguyen/huly-mcp-server/internal/store"
	"github.com/hha-nguyen/huly-mcp-server/internal/util"
)

// Platform record classes this integration writes.
const (
	ClassIssue           = "tracker:class:Issue"
	ClassDocument        = "document:class:Document"
	ClassDocumentContent = "document:class:DocumentContent"
	ClassTagElement      = "tags:class:TagElement"
	ClassTagReference    = "tags:class:TagReference"

	ClassTxCreateDoc = "core:class:TxCreateDoc"
	ClassTxUpdateDoc = "core:class:TxUpdateDoc"
	ClassTxRemoveDoc = "core:class:TxRemoveDoc"

	ClassDocUpdateMessage = "activity:class:DocUpdateMessage"
	ClassDocRemoveMessage = "activity:class:DocRemoveMessage"
	ClassChatMessage      = "chunter:class:ChatMessage"

	// classActivityReference is a legacy class older workspaces used for
	// comment-like entries; listing merges both.
	classActivityReference = "activity:class:ActivityReference"
)

// priorityValues maps the tool-facing priority names onto the platform's
// numeric scale.
var priorityValues = map[string]int{
	"nopriority": 0,
	"none":       0,
	"urgent":     1,
	"high":       2,
	"medium":     3,
	"low":        4,
}

var priorityNames = []string{"NoPriority", "Urgent", "High", "Medium", "Low"}

func PriorityValue(name string) int {
	return priorityValues[strings.ToLower(strings.TrimSpace(name))]
}

func PriorityName(value int) string {
	if value < 0 || value >= len(priorityNames) {
		return priorityNames[0]
	}
	return priorityNames[value]
}

// Store is the slice of the backing store the pipeline writes through.
type Store interface {
	InsertDoc(ctx context.Context, table store.Table, row store.DocRow) error
	InsertTx(ctx context.Context, row store.TxRow) error
	UpdateDocData(ctx context.Context, table store.Table, workspaceID, id string, data []byte, hash, modifiedBy string, modifiedOn int64) error
	DeleteDoc(ctx context.Context, table store.Table, workspaceID, id string) error
	GetDoc(ctx context.Context, table store.Table, workspaceID, id string) (store.DocRow, error)
	FindIssueByIdentifier(ctx context.Context, workspaceID, identifier string) (store.DocRow, error)
	ListIssueIdentifiers(ctx context.Context, workspaceID, space string) ([]string, error)
	ListIssuesBySpace(ctx context.Context, workspaceID, space string, limit int) ([]store.DocRow, error)
	SampleDocInSpace(ctx context.Context, table store.Table, space string) (store.DocRow, error)
	SampleAnyDoc(ctx context.Context, table store.Table) (store.DocRow, error)
	ListActivity(ctx context.Context, workspaceID, attachedTo string, classes []string) ([]store.DocRow, error)
	ListStatuses(ctx context.Context, workspaceID string) ([]store.DocRow, error)
}

// Projects resolves project references; in production this is the
// session-owned cache.
type Projects interface {
	Resolve(ctx context.Context, ref string) (project.Info, error)
}

// Realtime is the authenticated socket session, used for reads the store
// does not serve.
type Realtime interface {
	FindAll(ctx context.Context, class string, query, options map[string]any) ([]json.RawMessage, error)
}

// Uploader pushes markup through the platform's rich-text ingestion path.
type Uploader interface {
	Upload(ctx context.Context, objectClass, objectID, attribute, markup string) (string, error)
}

// Service executes the logical mutations. One instance per session.
type Service struct {
	store    Store
	projects Projects
	rt       Realtime
	uploader Uploader
	ids      *identity.Resolver

	// account is the session's own identity from the handshake; fallback
	// covers sessions that never recorded one.
	account         string
	fallbackAccount string

	// workspace is the uuid from the token claims, possibly empty; the
	// probe chain in workspaceFor fills it lazily.
	workspace string

	logf  func(format string, args ...any)
	now   func() time.Time
	newID func() string
}

func New(st Store, projects Projects, rt Realtime, uploader Uploader, ids *identity.Resolver, account, fallbackAccount, workspace string, logf func(string, ...any)) *Service {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Service{
		store:           st,
		projects:        projects,
		rt:              rt,
		uploader:        uploader,
		ids:             ids,
		account:         account,
		fallbackAccount: fallbackAccount,
		workspace:       workspace,
		logf:            logf,
		now:             time.Now,
		newID:           util.NewID,
	}
}

func (s *Service) millis() int64 {
	return s.now().UnixMilli()
}

// actor returns the identity stamped into modifiedBy/createdBy.
func (s *Service) actor() string {
	if s.account != "" {
		return s.account
	}
	return s.fallbackAccount
}

// workspaceFor determines the workspace uuid scoping all writes. The token
// claims usually carry it; otherwise probe a sibling issue in the space,
// then a sibling document, then any issue anywhere.
func (s *Service) workspaceFor(ctx context.Context, space string) (string, error) {
	if s.workspace != "" {
		return s.workspace, nil
	}
	if space != "" {
		for _, table := range []store.Table{store.TableTask, store.TableDocument} {
			if sample, err := s.store.SampleDocInSpace(ctx, table, space); err == nil && sample.WorkspaceID != "" {
				s.workspace = sample.WorkspaceID
				return s.workspace, nil
			}
		}
	}
	if sample, err := s.store.SampleAnyDoc(ctx, store.TableTask); err == nil && sample.WorkspaceID != "" {
		s.workspace = sample.WorkspaceID
		return s.workspace, nil
	}
	return "", &ConfigurationError{Reason: "token carries no workspace and no existing record reveals one"}
}

// resolveStatus maps a human status name onto a status id when one
// matches; unknown names pass through unchanged, since callers may already
// hold an id.
func (s *Service) resolveStatus(ctx context.Context, workspaceID, status string) string {
	rows, err := s.store.ListStatuses(ctx, workspaceID)
	if err != nil {
		s.logf("pipeline: status lookup failed, using %q as-is: %v", status, err)
		return status
	}
	for _, row := range rows {
		var data struct {
			Name string `json:"name"`
		}
		if row.DecodeData(&data) != nil {
			continue
		}
		if strings.EqualFold(data.Name, status) {
			return row.ID
		}
	}
	return status
}

// writeTx appends the transaction-log record for a mutation.
func (s *Service) writeTx(ctx context.Context, txClass, workspaceID, objectSpace, objectID string, snapshot any) error {
	id := s.newID()
	stamp := s.millis()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	hash, err := IntegrityHash(snapshot, id, stamp)
	if err != nil {
		return err
	}
	return s.store.InsertTx(ctx, store.TxRow{
		DocRow: store.DocRow{
			WorkspaceID: workspaceID,
			ID:          id,
			Class:       txClass,
			Space:       "core:space:Tx",
			ModifiedBy:  s.actor(),
			CreatedBy:   s.actor(),
			ModifiedOn:  stamp,
			CreatedOn:   stamp,
			Hash:        hash,
			Data:        data,
		},
		ObjectSpace: objectSpace,
		ObjectID:    objectID,
	})
}

// writeActivity appends the audit/UI-feed record for a mutation.
func (s *Service) writeActivity(ctx context.Context, activityClass, workspaceID, space, attachedTo string, payload map[string]any) (string, error) {
	id := s.newID()
	stamp := s.millis()
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	hash, err := IntegrityHash(payload, id, stamp)
	if err != nil {
		return "", err
	}
	err = s.store.InsertDoc(ctx, store.TableActivity, store.DocRow{
		WorkspaceID: workspaceID,
		ID:          id,
		Class:       activityClass,
		Space:       space,
		ModifiedBy:  s.actor(),
		CreatedBy:   s.actor(),
		ModifiedOn:  stamp,
		CreatedOn:   stamp,
		AttachedTo:  attachedTo,
		Hash:        hash,
		Data:        data,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
