package schema

import "strconv"

// BufferID identifies an open script buffer. Ids are issued by the workspace
// from a sequence and are never reused.
type BufferID uint64

// String returns the display form of the id.
func (id BufferID) String() string {
	return "b" + strconv.FormatUint(uint64(id), 10)
}

// TargetName is the database a buffer's script executes against.
type TargetName string

// CollectionName identifies a collection inside a target database.
type CollectionName string

// ConnectionID identifies an open backend connection.
type ConnectionID string

// SavedConnectionID identifies a saved connection profile.
type SavedConnectionID int64

// SavedConnection is a persisted connection profile.
type SavedConnection struct {
	ID   SavedConnectionID `json:"id"`
	Name string            `json:"name"`
	URI  string            `json:"uri"`
}

// TabLabel is the derived, display-only view of a buffer in tab order.
type TabLabel struct {
	ID       BufferID
	Name     TargetName
	Selected bool
}
