package diagram

// ChangeSet is an incremental change descriptor emitted by the external
// engine after an accepted canvas edit (move, add, delete, relink, text
// edit, settings toggle).
//
// Insertions are communicated as two correlated lists: the inserted keys
// appear in InsertedNodeKeys (or InsertedLinkKeys), and the records carrying
// their data appear in ModifiedNodes (or ModifiedLinks). An inserted key
// without a matching modified record carries no data and is ignored.
//
// The JSON names match the incremental-JSON events produced by browser
// canvas widgets, so adapter code can decode engine output directly into a
// ChangeSet.
type ChangeSet struct {
	InsertedNodeKeys []int  `json:"insertedNodeKeys,omitempty"`
	ModifiedNodes    []Node `json:"modifiedNodeData,omitempty"`
	RemovedNodeKeys  []int  `json:"removedNodeKeys,omitempty"`

	InsertedLinkKeys []int  `json:"insertedLinkKeys,omitempty"`
	ModifiedLinks    []Link `json:"modifiedLinkData,omitempty"`
	RemovedLinkKeys  []int  `json:"removedLinkKeys,omitempty"`

	// Metadata, when non-nil, replaces the diagram-wide attributes
	// wholesale. There is no field-by-field merge.
	Metadata Attrs `json:"modelData,omitempty"`
}

// PartCount returns the total number of parts the change touches. Inserted
// keys and their data records describe the same parts and count once.
func (c ChangeSet) PartCount() int {
	return len(c.ModifiedNodes) + len(c.RemovedNodeKeys) +
		len(c.ModifiedLinks) + len(c.RemovedLinkKeys)
}

// IsZero reports whether the change set carries nothing at all.
func (c ChangeSet) IsZero() bool {
	return len(c.InsertedNodeKeys) == 0 &&
		len(c.ModifiedNodes) == 0 &&
		len(c.RemovedNodeKeys) == 0 &&
		len(c.InsertedLinkKeys) == 0 &&
		len(c.ModifiedLinks) == 0 &&
		len(c.RemovedLinkKeys) == 0 &&
		c.Metadata == nil
}
