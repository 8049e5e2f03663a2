package filestore

import "time"

// Kind distinguishes uploaded sources from engine output.
type Kind string

const (
	KindSource Kind = "source"
	KindResult Kind = "result"
)

// State is the lifecycle stage of a record. Transitions are one-way:
// active -> expired -> deleted.
type State string

const (
	StateActive  State = "active"
	StateExpired State = "expired"
	StateDeleted State = "deleted"
)

// FileRecord is the metadata the store tracks per stored file. The storage
// location is owned exclusively by the store and never leaves this package.
type FileRecord struct {
	Handle      string
	DisplayName string
	MIMEType    string
	PageCount   int
	SizeBytes   int64
	Kind        Kind
	CreatedAt   time.Time
	ExpiresAt   time.Time
	State       State

	location string
}
