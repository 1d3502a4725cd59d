package backend

import (
	"fmt"
)

// ParseType maps a configured name to a backend type
func ParseType(name string) (BackendType, error) {
	switch t := BackendType(name); t {
	case "", BackendLocal:
		return BackendLocal, nil
	case BackendS3, BackendDropbox:
		return t, nil
	default:
		return "", fmt.Errorf("unknown backend type: %s", name)
	}
}

// New creates a backend based on the configuration
func New(cfg *Config) (Backend, error) {
	if cfg == nil {
		cfg = &Config{Type: BackendLocal}
	}

	switch cfg.Type {
	case BackendLocal, "":
		b := NewLocalBackend("")
		if err := b.SetLocation(cfg.Location); err != nil {
			return nil, err
		}
		return b, nil

	case BackendS3:
		b := NewS3Backend(cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region)
		b.SetEndpoint(cfg.S3Endpoint)
		if cfg.S3Bucket == "" && cfg.Location != "" {
			if err := b.SetLocation(cfg.Location); err != nil {
				return nil, err
			}
		}
		return b, nil

	case BackendDropbox:
		b := NewDropboxBackend(cfg.DropboxAppKey, cfg.DropboxAppSecret)
		if cfg.DropboxPath != "" {
			if err := b.SetLocation(cfg.DropboxPath); err != nil {
				return nil, err
			}
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}
