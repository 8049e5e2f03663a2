// Package filestore is the process-wide registry of uploaded and derived
// files. It owns every lifecycle transition: registration, resolution,
// expiry and deletion all go through the Store, which is safe for concurrent
// use by request handlers and the cleanup sweeper.
package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voicepdf/internal/apperrors"
)

// Prober reports the page count of a PDF payload. Injected so the store does
// not depend on the document engine directly and tests can fake it.
type Prober interface {
	PageCount(ctx context.Context, r io.ReadSeeker) (int, error)
}

// Config carries the store's validation limits and retention windows.
type Config struct {
	MaxUploadBytes  int64
	SoftPageLimit   int
	HardPageLimit   int
	SourceRetention time.Duration
	ResultRetention time.Duration
}

// Store maps opaque handles to file records and their blobs.
type Store struct {
	cfg    Config
	blob   BlobStorage
	prober Prober
	index  Index
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	records map[string]*FileRecord
}

// Option customizes a Store.
type Option func(*Store)

// WithIndex attaches a best-effort external index.
func WithIndex(index Index) Option {
	return func(s *Store) { s.index = index }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the time source, so tests can drive expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(cfg Config, blob BlobStorage, prober Prober, opts ...Option) *Store {
	s := &Store{
		cfg:     cfg,
		blob:    blob,
		prober:  prober,
		logger:  slog.Default(),
		now:     time.Now,
		records: make(map[string]*FileRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) retention(kind Kind) time.Duration {
	if kind == KindResult {
		return s.cfg.ResultRetention
	}
	return s.cfg.SourceRetention
}

// Register validates and persists a payload and creates an ACTIVE record for
// it. The handle is freshly generated and never reused.
func (s *Store) Register(ctx context.Context, payload []byte, displayName string, kind Kind) (FileRecord, error) {
	if len(payload) == 0 {
		return FileRecord{}, &apperrors.ValidationError{Message: "uploaded file is empty"}
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(payload)) > s.cfg.MaxUploadBytes {
		return FileRecord{}, &apperrors.ValidationError{
			Message:  fmt.Sprintf("file too large: %d bytes (max %d)", len(payload), s.cfg.MaxUploadBytes),
			TooLarge: true,
		}
	}

	safeName, err := SanitizeDisplayName(displayName)
	if err != nil {
		return FileRecord{}, err
	}
	ext := strings.ToLower(path.Ext(safeName))
	if err := sniffFormat(ext, payload); err != nil {
		return FileRecord{}, err
	}

	pageCount := 0
	if ext == ".pdf" {
		pageCount, err = s.prober.PageCount(ctx, bytes.NewReader(payload))
		if err != nil {
			return FileRecord{}, &apperrors.ValidationError{
				Err:     err,
				Message: "invalid PDF file: unable to read document",
			}
		}
		if kind == KindSource && s.cfg.HardPageLimit > 0 && pageCount > s.cfg.HardPageLimit {
			return FileRecord{}, &apperrors.ValidationError{
				Message:  fmt.Sprintf("PDF has too many pages: %d (max %d)", pageCount, s.cfg.HardPageLimit),
				TooLarge: true,
			}
		}
		if kind == KindSource && s.cfg.SoftPageLimit > 0 && pageCount > s.cfg.SoftPageLimit {
			s.logger.Warn("large PDF accepted, processing may be slow",
				"displayName", safeName, "pageCount", pageCount)
		}
	}

	handle := uuid.NewString()
	location := blobKey(kind, handle, ext)
	if err := s.blob.Save(ctx, location, payload); err != nil {
		return FileRecord{}, &apperrors.StorageError{Op: "save", Err: err}
	}

	createdAt := s.now()
	rec := &FileRecord{
		Handle:      handle,
		DisplayName: safeName,
		MIMEType:    mimeForExt(ext),
		PageCount:   pageCount,
		SizeBytes:   int64(len(payload)),
		Kind:        kind,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(s.retention(kind)),
		State:       StateActive,
		location:    location,
	}

	s.mu.Lock()
	s.records[handle] = rec
	s.mu.Unlock()

	s.indexPut(ctx, *rec)
	s.logger.Info("registered file",
		"handle", handle, "displayName", safeName, "kind", kind,
		"sizeBytes", rec.SizeBytes, "pageCount", pageCount)
	return *rec, nil
}

// Resolve returns the record for an ACTIVE, unexpired handle. Expired and
// deleted records are indistinguishable from absent ones.
func (s *Store) Resolve(handle string) (FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[handle]
	if !ok || rec.State != StateActive || !rec.ExpiresAt.After(s.now()) {
		return FileRecord{}, &apperrors.NotFoundError{Handle: handle}
	}
	return *rec, nil
}

// Open resolves a handle and streams its stored bytes.
func (s *Store) Open(ctx context.Context, handle string) (io.ReadCloser, FileRecord, error) {
	rec, err := s.Resolve(handle)
	if err != nil {
		return nil, FileRecord{}, err
	}
	rc, err := s.blob.Open(ctx, rec.location)
	if errors.Is(err, ErrBlobNotFound) {
		// Deletion won the race; same answer as a missing handle.
		return nil, FileRecord{}, &apperrors.NotFoundError{Handle: handle}
	}
	if err != nil {
		return nil, FileRecord{}, &apperrors.StorageError{Op: "open", Err: err}
	}
	return rc, rec, nil
}

// MarkDeleted releases the record's backing storage and transitions it to
// DELETED. It is idempotent: repeated calls and unknown handles are no-ops.
// If releasing storage fails the record stays EXPIRED so a later sweep
// retries it.
func (s *Store) MarkDeleted(ctx context.Context, handle string) error {
	s.mu.Lock()
	rec, ok := s.records[handle]
	if !ok || rec.State == StateDeleted {
		s.mu.Unlock()
		return nil
	}
	// Hide the record from Resolve before touching storage so no caller can
	// observe a half-deleted file.
	rec.State = StateExpired
	location := rec.location
	s.mu.Unlock()

	if err := s.blob.Delete(ctx, location); err != nil {
		return &apperrors.StorageError{Op: "delete", Err: err}
	}

	s.mu.Lock()
	rec.State = StateDeleted
	rec.location = ""
	s.mu.Unlock()

	if s.index != nil {
		if err := s.index.Delete(ctx, handle); err != nil {
			s.logger.Warn("index delete failed", "handle", handle, "error", err)
		}
	}
	s.logger.Info("deleted file", "handle", handle)
	return nil
}

// ListExpired returns handles whose retention window has passed as of asOf.
// EXPIRED records are included so deletions that failed on storage are
// retried on the next sweep.
func (s *Store) ListExpired(asOf time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var handles []string
	for handle, rec := range s.records {
		if rec.State == StateDeleted {
			continue
		}
		if !rec.ExpiresAt.After(asOf) {
			handles = append(handles, handle)
		}
	}
	return handles
}

// ActiveCount reports how many records are currently resolvable.
func (s *Store) ActiveCount() int {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, rec := range s.records {
		if rec.State == StateActive && rec.ExpiresAt.After(now) {
			count++
		}
	}
	return count
}

func (s *Store) indexPut(ctx context.Context, rec FileRecord) {
	if s.index == nil {
		return
	}
	if err := s.index.Put(ctx, rec); err != nil {
		s.logger.Warn("index put failed", "handle", rec.Handle, "error", err)
	}
}

func blobKey(kind Kind, handle, ext string) string {
	dir := "uploads"
	if kind == KindResult {
		dir = "results"
	}
	return dir + "/" + handle + ext
}

func mimeForExt(ext string) string {
	switch ext {
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/pdf"
	}
}

var (
	pdfMagic  = []byte("%PDF-")
	docxMagic = []byte("PK\x03\x04")
)

// sniffFormat is a cheap shape check; deep validation is the prober's job.
func sniffFormat(ext string, payload []byte) error {
	switch ext {
	case ".pdf", "":
		if !bytes.HasPrefix(payload, pdfMagic) {
			return &apperrors.ValidationError{Message: "invalid file type: only PDF files are accepted"}
		}
	case ".docx":
		if !bytes.HasPrefix(payload, docxMagic) {
			return &apperrors.ValidationError{Message: "payload is not a valid Word document"}
		}
	default:
		return &apperrors.ValidationError{Message: fmt.Sprintf("unsupported file extension %q", ext)}
	}
	return nil
}
