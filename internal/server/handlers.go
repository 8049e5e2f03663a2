package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"voicepdf/internal/apperrors"
	"voicepdf/internal/filestore"
	"voicepdf/internal/intent"
	"voicepdf/internal/models"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:         "healthy",
		ActiveFiles:    s.store.ActiveCount(),
		CleanupRunning: s.scheduler.Running(),
		Version:        Version,
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, &apperrors.ValidationError{Err: err, Message: "upload must include a file field"})
		return
	}
	if header.Size > s.settings.MaxUploadBytes {
		s.respondError(c, &apperrors.ValidationError{
			Message:  fmt.Sprintf("file too large: maximum size is %d bytes", s.settings.MaxUploadBytes),
			TooLarge: true,
		})
		return
	}

	f, err := header.Open()
	if err != nil {
		s.respondError(c, &apperrors.StorageError{Op: "read upload", Err: err})
		return
	}
	defer f.Close()

	payload, err := io.ReadAll(io.LimitReader(f, s.settings.MaxUploadBytes+1))
	if err != nil {
		s.respondError(c, &apperrors.StorageError{Op: "read upload", Err: err})
		return
	}

	record, err := s.store.Register(c.Request.Context(), payload, header.Filename, filestore.KindSource)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.UploadResponse{
		Handle:      record.Handle,
		DisplayName: record.DisplayName,
		PageCount:   record.PageCount,
		SizeBytes:   record.SizeBytes,
	})
}

func (s *Server) handleInterpret(c *gin.Context) {
	var req models.InterpretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, &apperrors.InvalidParametersError{Message: "invalid request body"})
		return
	}

	cmd, err := intent.Parse(req.Text)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.InterpretResponse{
		Intent:     string(cmd.Intent),
		Parameters: commandParameters(cmd),
		Action:     cmd.Action,
		Details:    cmd.Details,
	})
}

func (s *Server) handleProcess(c *gin.Context) {
	var req models.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, &apperrors.InvalidParametersError{Message: "invalid request body"})
		return
	}
	if req.Handle == "" {
		s.respondError(c, &apperrors.InvalidParametersError{Message: "handle is required"})
		return
	}

	cmd, err := intent.FromRequest(req.Intent, req.Parameters)
	if err != nil {
		s.respondError(c, err)
		return
	}

	record, err := s.dispatcher.Dispatch(c.Request.Context(), req.Handle, cmd)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.ProcessResponse{
		ResultHandle: record.Handle,
		DisplayName:  record.DisplayName,
		Message:      "Successfully processed: " + cmd.Details,
		Intent:       string(cmd.Intent),
	})
}

func (s *Server) handleDownload(c *gin.Context) {
	handle := c.Param("handle")
	rc, record, err := s.store.Open(c.Request.Context(), handle)
	if err != nil {
		s.respondError(c, err)
		return
	}
	defer rc.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", record.DisplayName),
	}
	c.DataFromReader(http.StatusOK, record.SizeBytes, record.MIMEType, rc, headers)
}

func (s *Server) handleDelete(c *gin.Context) {
	handle := c.Param("handle")
	if err := s.store.MarkDeleted(c.Request.Context(), handle); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("File %s deleted successfully", handle)})
}

// commandParameters renders a Command's semantic payload in the wire shape
// the process endpoint accepts back.
func commandParameters(cmd intent.Command) map[string]any {
	params := map[string]any{}
	switch cmd.Intent {
	case intent.ConvertWhole:
	case intent.ExtractRange:
		params["startPage"] = cmd.Start
		params["endPage"] = cmd.End
		params["format"] = string(cmd.Format)
	default:
		params["pages"] = cmd.Pages
		if cmd.Intent == intent.ExtractPages {
			params["format"] = string(cmd.Format)
		}
	}
	return params
}
