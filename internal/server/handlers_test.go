package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepdf/internal/cleanup"
	"voicepdf/internal/config"
	"voicepdf/internal/dispatch"
	"voicepdf/internal/engine"
	"voicepdf/internal/filestore"
	"voicepdf/internal/intent"
	"voicepdf/internal/models"
)

var pdfPayload = []byte("%PDF-1.4\nupload body\n%%EOF")

type fixedProber struct{ pages int }

func (p fixedProber) PageCount(context.Context, io.ReadSeeker) (int, error) {
	return p.pages, nil
}

type fakeEngine struct{}

func (fakeEngine) Execute(_ context.Context, _ string, cmd intent.Command) (engine.Result, error) {
	if cmd.Format == intent.FormatDOCX {
		return engine.Result{Bytes: []byte("PK\x03\x04 docx body"), Ext: ".docx"}, nil
	}
	return engine.Result{Bytes: []byte("%PDF-1.4 result body"), Ext: ".pdf"}, nil
}

func testSettings() *config.Settings {
	return &config.Settings{
		Addr:            ":0",
		CORSOrigins:     []string{"http://localhost:3000"},
		StorageBackend:  config.BackendLocal,
		MaxUploadBytes:  1 << 20,
		SoftPageLimit:   50,
		HardPageLimit:   100,
		SourceRetention: time.Hour,
		ResultRetention: 30 * time.Minute,
		CleanupInterval: time.Minute,
		// Rate limiting off so tests can hammer the router.
		RateLimitPerMinute: 0,
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *filestore.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	blob, err := filestore.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	settings := testSettings()
	store := filestore.New(filestore.Config{
		MaxUploadBytes:  settings.MaxUploadBytes,
		SoftPageLimit:   settings.SoftPageLimit,
		HardPageLimit:   settings.HardPageLimit,
		SourceRetention: settings.SourceRetention,
		ResultRetention: settings.ResultRetention,
	}, blob, fixedProber{pages: 10})

	dispatcher := dispatch.New(store, fakeEngine{}, nil)
	scheduler := cleanup.New(store, settings.CleanupInterval, nil)
	srv := New(store, dispatcher, scheduler, settings, nil)
	return srv.Router(), store
}

func multipartUpload(t *testing.T, filename string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func uploadFile(t *testing.T, router *gin.Engine, filename string, payload []byte) models.UploadResponse {
	t.Helper()
	body, contentType := multipartUpload(t, filename, payload)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func postJSON(router *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, Version, resp.Version)
	assert.Zero(t, resp.ActiveFiles)
	assert.False(t, resp.CleanupRunning)
}

func TestUploadEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	resp := uploadFile(t, router, "report.pdf", pdfPayload)
	assert.NotEmpty(t, resp.Handle)
	assert.Equal(t, "report.pdf", resp.DisplayName)
	assert.Equal(t, 10, resp.PageCount)
	assert.Equal(t, int64(len(pdfPayload)), resp.SizeBytes)
}

func TestUploadRejectsBadPayloads(t *testing.T) {
	router, _ := newTestRouter(t)

	// Not a PDF.
	body, contentType := multipartUpload(t, "notes.pdf", []byte("plain text"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Oversize.
	big := append([]byte("%PDF-1.4"), make([]byte, 2<<20)...)
	body, contentType = multipartUpload(t, "big.pdf", big)
	req = httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	// Missing file field.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInterpretEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(router, "/api/interpret", models.InterpretRequest{Text: "Extract pages 2 to 5"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.InterpretResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "extract_page_range", resp.Intent)
	assert.Equal(t, float64(2), resp.Parameters["startPage"])
	assert.Equal(t, float64(5), resp.Parameters["endPage"])
	assert.NotEmpty(t, resp.Details)
}

func TestInterpretUnrecognized(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postJSON(router, "/api/interpret", models.InterpretRequest{Text: "rotate the document"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "not recognized")
}

func TestProcessEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	uploaded := uploadFile(t, router, "report.pdf", pdfPayload)

	rec := postJSON(router, "/api/process", models.ProcessRequest{
		Handle:     uploaded.Handle,
		Intent:     "extract_pages",
		Parameters: map[string]any{"pages": []any{float64(2), float64(4)}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ResultHandle)
	assert.NotEqual(t, uploaded.Handle, resp.ResultHandle)
	assert.Equal(t, "report_pages_2_4.pdf", resp.DisplayName)
	assert.Contains(t, resp.Message, "Successfully processed")
	assert.Equal(t, "extract_pages", resp.Intent)
}

func TestProcessErrorMapping(t *testing.T) {
	router, _ := newTestRouter(t)
	uploaded := uploadFile(t, router, "report.pdf", pdfPayload)

	tests := []struct {
		name       string
		request    models.ProcessRequest
		wantStatus int
	}{
		{
			name:       "missing handle",
			request:    models.ProcessRequest{Intent: "convert_to_word"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown handle",
			request:    models.ProcessRequest{Handle: "nope", Intent: "convert_to_word"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown intent",
			request:    models.ProcessRequest{Handle: uploaded.Handle, Intent: "rotate_pages"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "malformed parameters",
			request: models.ProcessRequest{
				Handle:     uploaded.Handle,
				Intent:     "extract_pages",
				Parameters: map[string]any{"pages": "not numbers"},
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "page out of range",
			request: models.ProcessRequest{
				Handle:     uploaded.Handle,
				Intent:     "extract_pages",
				Parameters: map[string]any{"pages": []any{float64(99)}},
			},
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(router, "/api/process", tt.request)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			var resp models.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestDownloadEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	uploaded := uploadFile(t, router, "report.pdf", pdfPayload)

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+uploaded.Handle, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pdfPayload, rec.Body.Bytes())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `"report.pdf"`)
}

func TestDownloadUnknownHandle(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/download/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteEndpointIsIdempotent(t *testing.T) {
	router, _ := newTestRouter(t)
	uploaded := uploadFile(t, router, "report.pdf", pdfPayload)

	req := httptest.NewRequest(http.MethodDelete, "/api/file/"+uploaded.Handle, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Gone from download.
	req = httptest.NewRequest(http.MethodGet, "/api/download/"+uploaded.Handle, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Deleting again still succeeds.
	req = httptest.NewRequest(http.MethodDelete, "/api/file/"+uploaded.Handle, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadThenProcessThenDownloadFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	uploaded := uploadFile(t, router, "contract.pdf", pdfPayload)

	rec := postJSON(router, "/api/process", models.ProcessRequest{
		Handle: uploaded.Handle,
		Intent: "convert_to_word",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var processed models.ProcessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &processed))
	assert.Equal(t, "contract_converted.docx", processed.DisplayName)

	req := httptest.NewRequest(http.MethodGet, "/api/download/"+processed.ResultHandle, nil)
	dl := httptest.NewRecorder()
	router.ServeHTTP(dl, req)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		dl.Header().Get("Content-Type"))
}

func TestRateLimitRejectsBursts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limited := gin.New()
	limited.Use(RateLimitMiddleware(RateLimitConfig{RequestsPerMinute: 1, Burst: 2}))
	limited.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		codes[rec.Code]++
	}
	assert.Equal(t, 2, codes[http.StatusOK], "burst of 2 is allowed")
	assert.Equal(t, 3, codes[http.StatusTooManyRequests])
}
