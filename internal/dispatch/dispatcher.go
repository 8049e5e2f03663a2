// Package dispatch maps a structured command onto a document engine call,
// resolving the source through the file store and registering the result.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"voicepdf/internal/apperrors"
	"voicepdf/internal/engine"
	"voicepdf/internal/filestore"
	"voicepdf/internal/intent"
)

type Dispatcher struct {
	store  *filestore.Store
	engine engine.Engine
	logger *slog.Logger
}

func New(store *filestore.Store, eng engine.Engine, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: store, engine: eng, logger: logger}
}

// Dispatch executes cmd against the source behind handle and returns the
// registered RESULT record. The source is left in place; cleanup is
// time-based, not dispatch-triggered. A single engine failure is terminal
// for the request: no retries at this layer.
func (d *Dispatcher) Dispatch(ctx context.Context, handle string, cmd intent.Command) (filestore.FileRecord, error) {
	source, err := d.store.Resolve(handle)
	if err != nil {
		return filestore.FileRecord{}, err
	}
	if err := validatePageBounds(cmd, source.PageCount); err != nil {
		return filestore.FileRecord{}, err
	}

	logCtx := d.logger.With("handle", handle, "intent", cmd.Intent)
	logCtx.Info("dispatching command", "details", cmd.Details)

	sourcePath, cleanup, err := d.stageSource(ctx, handle)
	if err != nil {
		return filestore.FileRecord{}, err
	}
	defer cleanup()

	result, err := d.engine.Execute(ctx, sourcePath, cmd)
	if err != nil {
		logCtx.Error("engine call failed", "error", err)
		return filestore.FileRecord{}, &apperrors.ProcessingError{Err: err}
	}

	resultName := deriveResultName(source.DisplayName, cmd, result.Ext)
	record, err := d.store.Register(ctx, result.Bytes, resultName, filestore.KindResult)
	if err != nil {
		return filestore.FileRecord{}, err
	}
	logCtx.Info("command complete", "resultHandle", record.Handle, "resultName", record.DisplayName)
	return record, nil
}

// stageSource copies the stored source into a private temp dir for the
// engine, which works on files.
func (d *Dispatcher) stageSource(ctx context.Context, handle string) (string, func(), error) {
	rc, _, err := d.store.Open(ctx, handle)
	if err != nil {
		return "", nil, err
	}
	defer rc.Close()

	tempDir, err := os.MkdirTemp("", "voicepdf-dispatch-*")
	if err != nil {
		return "", nil, &apperrors.StorageError{Op: "stage", Err: err}
	}
	cleanup := func() { _ = os.RemoveAll(tempDir) }

	sourcePath := filepath.Join(tempDir, "source.pdf")
	f, err := os.Create(sourcePath)
	if err != nil {
		cleanup()
		return "", nil, &apperrors.StorageError{Op: "stage", Err: err}
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, &apperrors.StorageError{Op: "stage", Err: err}
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, &apperrors.StorageError{Op: "stage", Err: err}
	}
	return sourcePath, cleanup, nil
}

// validatePageBounds checks every requested page against the source's actual
// page count, listing all offending values.
func validatePageBounds(cmd intent.Command, pageCount int) error {
	var offenders []int
	check := func(p int) {
		if p < 1 || p > pageCount {
			offenders = append(offenders, p)
		}
	}
	for _, p := range cmd.Pages {
		check(p)
	}
	if cmd.Intent == intent.ExtractRange {
		check(cmd.Start)
		check(cmd.End)
	}
	if len(offenders) == 0 {
		return nil
	}
	parts := make([]string, len(offenders))
	for i, p := range offenders {
		parts[i] = strconv.Itoa(p)
	}
	return &apperrors.InvalidParametersError{
		Message: fmt.Sprintf("page number(s) %s out of range: document has %d page(s)",
			strings.Join(parts, ", "), pageCount),
	}
}

// deriveResultName is deterministic: source stem plus an operation suffix.
func deriveResultName(sourceName string, cmd intent.Command, ext string) string {
	stem := strings.TrimSuffix(sourceName, filepath.Ext(sourceName))
	switch cmd.Intent {
	case intent.ConvertWhole:
		return stem + "_converted" + ext
	case intent.ExtractPages:
		return stem + "_pages_" + joinPages(cmd.Pages, "_") + ext
	case intent.ExtractRange:
		return fmt.Sprintf("%s_pages_%d-%d%s", stem, cmd.Start, cmd.End, ext)
	case intent.RemovePages:
		return stem + "_removed_pages_" + joinPages(cmd.Pages, "_") + ext
	case intent.MergePages:
		return stem + "_merged" + ext
	default:
		return stem + "_result" + ext
	}
}

func joinPages(pages []int, sep string) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, sep)
}
