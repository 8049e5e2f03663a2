package filestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
)

// Index mirrors record metadata to an external registry. The in-memory store
// is authoritative; the index is best effort and failures only get logged.
type Index interface {
	Put(ctx context.Context, rec FileRecord) error
	Delete(ctx context.Context, handle string) error
}

// indexRow is the persisted shape of a FileRecord. It deliberately omits the
// storage location, which never leaves the store.
type indexRow struct {
	Handle      string    `firestore:"handle"`
	DisplayName string    `firestore:"displayName"`
	MIMEType    string    `firestore:"mimeType"`
	PageCount   int       `firestore:"pageCount"`
	SizeBytes   int64     `firestore:"sizeBytes"`
	Kind        string    `firestore:"kind"`
	CreatedAt   time.Time `firestore:"createdAt"`
	ExpiresAt   time.Time `firestore:"expiresAt"`
	State       string    `firestore:"state"`
}

// FirestoreIndex persists record rows in a Firestore collection keyed by
// handle, for deployments that want record metadata visible to external
// tooling.
type FirestoreIndex struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreIndex(ctx context.Context, projectID, collection string) (*FirestoreIndex, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore index")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection must be provided to create a firestore index")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &FirestoreIndex{client: client, collection: collection}, nil
}

func (x *FirestoreIndex) Put(ctx context.Context, rec FileRecord) error {
	row := indexRow{
		Handle:      rec.Handle,
		DisplayName: rec.DisplayName,
		MIMEType:    rec.MIMEType,
		PageCount:   rec.PageCount,
		SizeBytes:   rec.SizeBytes,
		Kind:        string(rec.Kind),
		CreatedAt:   rec.CreatedAt,
		ExpiresAt:   rec.ExpiresAt,
		State:       string(rec.State),
	}
	if _, err := x.client.Collection(x.collection).Doc(rec.Handle).Set(ctx, row); err != nil {
		return fmt.Errorf("failed to upsert index row: %w", err)
	}
	return nil
}

func (x *FirestoreIndex) Delete(ctx context.Context, handle string) error {
	if _, err := x.client.Collection(x.collection).Doc(handle).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete index row: %w", err)
	}
	return nil
}

func (x *FirestoreIndex) Close() error {
	return x.client.Close()
}
