package store

import "encoding/json"

// Table names of the platform's backing store this integration co-writes.
// The schema is owned by the platform; we never create or migrate it.
type Table string

const (
	TableTask            Table = "task"
	TableDocument        Table = "document"
	TableDocumentContent Table = "documents"
	TableTx              Table = "tx"
	TableActivity        Table = "activity"
	TableTags            Table = "tags"
	TableStatus          Table = "status"
)

func (t Table) valid() bool {
	switch t {
	case TableTask, TableDocument, TableDocumentContent, TableTx, TableActivity, TableTags, TableStatus:
		return true
	}
	return false
}

// DocRow is the uniform column shape every platform table shares:
// ("workspaceId", _id, _class, space, "modifiedBy", "createdBy",
// "modifiedOn", "createdOn", "attachedTo", "%hash%", data).
type DocRow struct {
	WorkspaceID string
	ID          string
	Class       string
	Space       string
	ModifiedBy  string
	CreatedBy   string
	ModifiedOn  int64
	CreatedOn   int64
	AttachedTo  string
	Hash        string
	Data        json.RawMessage
}

// TxRow extends DocRow with the two columns unique to the transaction log.
type TxRow struct {
	DocRow
	ObjectSpace string
	ObjectID    string
}

// DecodeData unmarshals the row's data column into out.
func (r DocRow) DecodeData(out any) error {
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, out)
}
