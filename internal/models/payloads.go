package models

// These structs define the JSON payloads exchanged between the frontend and
// the service endpoints.

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	PageCount   int    `json:"pageCount"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// InterpretRequest carries raw command text for parsing.
type InterpretRequest struct {
	Text string `json:"text"`
}

// InterpretResponse echoes the parsed command for the confirmation step.
type InterpretResponse struct {
	Intent     string         `json:"intent"`
	Parameters map[string]any `json:"parameters"`
	Action     string         `json:"action"`
	Details    string         `json:"details"`
}

// ProcessRequest asks for an operation against an uploaded file.
type ProcessRequest struct {
	Handle     string         `json:"handle"`
	Intent     string         `json:"intent"`
	Parameters map[string]any `json:"parameters"`
}

// ProcessResponse points at the operation's result file.
type ProcessResponse struct {
	ResultHandle string `json:"resultHandle"`
	DisplayName  string `json:"displayName"`
	Message      string `json:"message"`
	Intent       string `json:"intent"`
}

// ErrorResponse is the single error shape for every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status         string `json:"status"`
	ActiveFiles    int    `json:"activeFiles"`
	CleanupRunning bool   `json:"cleanupRunning"`
	Version        string `json:"version"`
}
