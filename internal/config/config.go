package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backend selectors.
const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

// Settings holds the full service configuration. Values come from the
// environment with the VOICEPDF_ prefix, falling back to the defaults below.
type Settings struct {
	Addr        string
	CORSOrigins []string

	StorageBackend      string
	DataDir             string
	GCSBucket           string
	ProjectID           string
	FirestoreCollection string

	MaxUploadBytes int64
	SoftPageLimit  int
	HardPageLimit  int

	SourceRetention time.Duration
	ResultRetention time.Duration
	CleanupInterval time.Duration

	RateLimitPerMinute int
	RateLimitBurst     int
}

// Load reads settings from the environment.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("VOICEPDF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("cors_origins", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("storage_backend", BackendLocal)
	v.SetDefault("data_dir", "")
	v.SetDefault("gcs_bucket", "")
	v.SetDefault("project_id", "")
	v.SetDefault("firestore_collection", "")
	v.SetDefault("max_upload_bytes", int64(50<<20))
	v.SetDefault("soft_page_limit", 50)
	v.SetDefault("hard_page_limit", 100)
	v.SetDefault("source_retention", time.Hour)
	v.SetDefault("result_retention", 30*time.Minute)
	v.SetDefault("cleanup_interval", 5*time.Minute)
	v.SetDefault("rate_limit_per_minute", 60)
	v.SetDefault("rate_limit_burst", 20)

	s := &Settings{
		Addr:                v.GetString("addr"),
		CORSOrigins:         splitList(v.GetString("cors_origins")),
		StorageBackend:      strings.ToLower(v.GetString("storage_backend")),
		DataDir:             v.GetString("data_dir"),
		GCSBucket:           v.GetString("gcs_bucket"),
		ProjectID:           v.GetString("project_id"),
		FirestoreCollection: v.GetString("firestore_collection"),
		MaxUploadBytes:      v.GetInt64("max_upload_bytes"),
		SoftPageLimit:       v.GetInt("soft_page_limit"),
		HardPageLimit:       v.GetInt("hard_page_limit"),
		SourceRetention:     v.GetDuration("source_retention"),
		ResultRetention:     v.GetDuration("result_retention"),
		CleanupInterval:     v.GetDuration("cleanup_interval"),
		RateLimitPerMinute:  v.GetInt("rate_limit_per_minute"),
		RateLimitBurst:      v.GetInt("rate_limit_burst"),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	switch s.StorageBackend {
	case BackendLocal:
	case BackendGCS:
		if s.GCSBucket == "" {
			return fmt.Errorf("VOICEPDF_GCS_BUCKET must be set when storage backend is %q", BackendGCS)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", s.StorageBackend)
	}
	if s.FirestoreCollection != "" && s.ProjectID == "" {
		return fmt.Errorf("VOICEPDF_PROJECT_ID must be set when the firestore index is enabled")
	}
	if s.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if s.SourceRetention <= 0 || s.ResultRetention <= 0 {
		return fmt.Errorf("retention windows must be positive")
	}
	if s.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
