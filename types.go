package ferry

import (
	"fmt"
	"time"
)

// FileInfo describes a stored file.
type FileInfo struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ETag        string    `json:"etag"`
	ContentType string    `json:"content_type"`
	ModTime     time.Time `json:"mod_time"`
}

// SaveResult reports the outcome of a storage write.
type SaveResult struct {
	BytesWritten int64
	ETag         string
}

// ServerMode selects how missing paths are handled when serving.
type ServerMode string

const (
	ModeStore  ServerMode = "store"
	ModeStatic ServerMode = "static"
	ModeSPA    ServerMode = "spa"
)

func (m ServerMode) IsValid() bool {
	switch m {
	case ModeStore, ModeStatic, ModeSPA:
		return true
	default:
		return false
	}
}

func ParseServerMode(s string) (ServerMode, error) {
	mode := ServerMode(s)
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid server mode: %s (valid modes: store, static, spa)", s)
	}
	return mode, nil
}
