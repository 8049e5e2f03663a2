package dispatch

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepdf/internal/apperrors"
	"voicepdf/internal/engine"
	"voicepdf/internal/filestore"
	"voicepdf/internal/intent"
)

var pdfPayload = []byte("%PDF-1.4\nsource body\n%%EOF")

type fixedProber struct{ pages int }

func (p fixedProber) PageCount(context.Context, io.ReadSeeker) (int, error) {
	return p.pages, nil
}

// fakeEngine records the invocation and returns canned bytes.
type fakeEngine struct {
	result engine.Result
	err    error

	gotPath string
	gotCmd  intent.Command
	calls   int
}

func (e *fakeEngine) Execute(_ context.Context, sourcePath string, cmd intent.Command) (engine.Result, error) {
	e.calls++
	e.gotPath = sourcePath
	e.gotCmd = cmd
	if e.err != nil {
		return engine.Result{}, e.err
	}
	return e.result, nil
}

func newTestStore(t *testing.T, pages int) *filestore.Store {
	t.Helper()
	blob, err := filestore.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	cfg := filestore.Config{
		MaxUploadBytes:  1 << 20,
		SourceRetention: time.Hour,
		ResultRetention: 30 * time.Minute,
	}
	return filestore.New(cfg, blob, fixedProber{pages: pages})
}

func TestDispatchExtractPages(t *testing.T) {
	store := newTestStore(t, 10)
	src, err := store.Register(context.Background(), pdfPayload, "report.pdf", filestore.KindSource)
	require.NoError(t, err)

	eng := &fakeEngine{result: engine.Result{Bytes: []byte("%PDF-1.4 extracted"), Ext: ".pdf"}}
	d := New(store, eng, nil)

	cmd := intent.Command{Intent: intent.ExtractPages, Pages: []int{3}, Format: intent.FormatPDF}
	rec, err := d.Dispatch(context.Background(), src.Handle, cmd)
	require.NoError(t, err)

	assert.Equal(t, 1, eng.calls)
	assert.Equal(t, cmd.Intent, eng.gotCmd.Intent)
	assert.Equal(t, []int{3}, eng.gotCmd.Pages)

	assert.Equal(t, "report_pages_3.pdf", rec.DisplayName)
	assert.Equal(t, filestore.KindResult, rec.Kind)
	assert.Equal(t, 30*time.Minute, rec.ExpiresAt.Sub(rec.CreatedAt))
	assert.NotEqual(t, src.Handle, rec.Handle)

	// The staged copy is removed once the dispatch returns.
	_, statErr := os.Stat(eng.gotPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDispatchStagesSourceBytes(t *testing.T) {
	store := newTestStore(t, 10)
	src, err := store.Register(context.Background(), pdfPayload, "report.pdf", filestore.KindSource)
	require.NoError(t, err)

	var staged []byte
	eng := &fakeEngine{result: engine.Result{Bytes: []byte("%PDF-1.4 out"), Ext: ".pdf"}}
	d := New(store, &captureEngine{inner: eng, onExecute: func(path string) {
		staged, _ = os.ReadFile(path)
	}}, nil)

	_, err = d.Dispatch(context.Background(), src.Handle, intent.Command{Intent: intent.ConvertWhole, Format: intent.FormatDOCX})
	require.NoError(t, err)
	assert.Equal(t, pdfPayload, staged)
}

// captureEngine runs a callback before delegating, so tests can inspect the
// staged file while it still exists.
type captureEngine struct {
	inner     engine.Engine
	onExecute func(path string)
}

func (e *captureEngine) Execute(ctx context.Context, sourcePath string, cmd intent.Command) (engine.Result, error) {
	e.onExecute(sourcePath)
	return e.inner.Execute(ctx, sourcePath, cmd)
}

func TestDispatchRejectsOutOfRangePages(t *testing.T) {
	store := newTestStore(t, 2)
	src, err := store.Register(context.Background(), pdfPayload, "short.pdf", filestore.KindSource)
	require.NoError(t, err)

	eng := &fakeEngine{result: engine.Result{Bytes: []byte("%PDF-1.4"), Ext: ".pdf"}}
	d := New(store, eng, nil)

	_, err = d.Dispatch(context.Background(), src.Handle, intent.Command{Intent: intent.ExtractPages, Pages: []int{3}})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidParameters(err))
	assert.Contains(t, err.Error(), "3")
	assert.Contains(t, err.Error(), "2 page(s)")
	assert.Zero(t, eng.calls, "engine is never invoked on bad input")

	// Every offender is reported, not just the first.
	_, err = d.Dispatch(context.Background(), src.Handle, intent.Command{Intent: intent.RemovePages, Pages: []int{3, 7}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3, 7")

	// Range bounds are checked too.
	_, err = d.Dispatch(context.Background(), src.Handle, intent.Command{Intent: intent.ExtractRange, Start: 1, End: 5})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidParameters(err))
}

func TestDispatchUnknownHandle(t *testing.T) {
	store := newTestStore(t, 10)
	d := New(store, &fakeEngine{}, nil)

	_, err := d.Dispatch(context.Background(), "no-such-handle", intent.Command{Intent: intent.ConvertWhole})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDispatchEngineFailureIsOpaque(t *testing.T) {
	store := newTestStore(t, 10)
	src, err := store.Register(context.Background(), pdfPayload, "report.pdf", filestore.KindSource)
	require.NoError(t, err)

	eng := &fakeEngine{err: errors.New("xref table corrupt at offset 1234")}
	d := New(store, eng, nil)

	_, err = d.Dispatch(context.Background(), src.Handle, intent.Command{Intent: intent.ConvertWhole})
	require.Error(t, err)
	assert.True(t, apperrors.IsProcessing(err))
	assert.NotContains(t, err.Error(), "xref", "internal detail must not leak")

	var perr *apperrors.ProcessingError
	require.True(t, errors.As(err, &perr))
	assert.ErrorContains(t, perr.Unwrap(), "xref")
}

func TestDeriveResultName(t *testing.T) {
	tests := []struct {
		name string
		cmd  intent.Command
		ext  string
		want string
	}{
		{
			name: "convert",
			cmd:  intent.Command{Intent: intent.ConvertWhole},
			ext:  ".docx",
			want: "report_converted.docx",
		},
		{
			name: "extract pages",
			cmd:  intent.Command{Intent: intent.ExtractPages, Pages: []int{2, 4}},
			ext:  ".pdf",
			want: "report_pages_2_4.pdf",
		},
		{
			name: "extract range",
			cmd:  intent.Command{Intent: intent.ExtractRange, Start: 2, End: 4},
			ext:  ".pdf",
			want: "report_pages_2-4.pdf",
		},
		{
			name: "remove pages",
			cmd:  intent.Command{Intent: intent.RemovePages, Pages: []int{5}},
			ext:  ".pdf",
			want: "report_removed_pages_5.pdf",
		},
		{
			name: "merge",
			cmd:  intent.Command{Intent: intent.MergePages, Pages: []int{1, 2, 3}},
			ext:  ".pdf",
			want: "report_merged.pdf",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, deriveResultName("report.pdf", tt.cmd, tt.ext))
		})
	}
}
