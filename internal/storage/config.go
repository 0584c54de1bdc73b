package storage

import "github.com/folio/folio/backend/go-services/internal/config"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// FromConfig maps the application MinIO settings onto the client config.
func FromConfig(c config.MinIOConfig) *MinIOConfig {
	bucket := c.Bucket
	if bucket == "" {
		bucket = "folio"
	}
	return &MinIOConfig{
		Endpoint:  c.Endpoint,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		UseSSL:    c.UseSSL,
		Bucket:    bucket,
	}
}
