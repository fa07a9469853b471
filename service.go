package ferry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
)

// FileStorage is the physical storage backend behind a Service. The
// filesystem package provides the os.Root backed implementation; the
// interface exists so request-handling code never touches storage paths
// directly.
//
// All methods respect context cancellation. Paths are root-relative and
// assumed to have passed Resolve/ResolveLocal already.
type FileStorage interface {
	// Open returns metadata and a reader for the file at path, or
	// ErrNotFound. The caller closes the reader.
	Open(ctx context.Context, path string) (FileInfo, io.ReadSeekCloser, error)

	// Write stores content at path, atomically when possible, and reports
	// bytes written plus a content hash usable as an ETag.
	Write(ctx context.Context, path string, content io.Reader) (SaveResult, error)

	// Delete removes the file at path, or returns ErrNotFound.
	Delete(ctx context.Context, path string) error

	// List walks the whole tree and returns every stored file. Expensive;
	// intended for the store-mode listing endpoint and audits.
	List(ctx context.Context) ([]FileInfo, error)
}

// Service combines a storage backend with a lookup mode. It owns path
// safety for every operation: raw request paths go through ResolveLocal
// before they reach storage.
type Service struct {
	storage FileStorage
	mode    ServerMode
}

func NewService(storage FileStorage, mode ServerMode) (*Service, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("new service: invalid mode: %s", mode)
	}
	return &Service{storage: storage, mode: mode}, nil
}

// Get opens the file for rawPath after resolving it. Mode-dependent
// fallbacks apply: static mode retries <path>/index.html, SPA mode falls
// back to /index.html, store mode serves exact paths only. An empty path
// is the site root in static/SPA modes and not found in store mode.
func (s *Service) Get(ctx context.Context, rawPath string) (FileInfo, io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, nil, fmt.Errorf("get file: %w", err)
	}

	if rawPath == "" {
		switch s.mode {
		case ModeStore:
			return FileInfo{}, nil, fmt.Errorf("get file: %w", ErrNotFound)
		case ModeStatic, ModeSPA:
			rawPath = "index.html"
		}
	}

	p, err := ResolveLocal(rawPath)
	if err != nil {
		return FileInfo{}, nil, fmt.Errorf("get file: %w", err)
	}

	info, f, err := s.storage.Open(ctx, p)

	if errors.Is(err, ErrNotFound) {
		switch s.mode {
		case ModeStore:
			// No fallback in store mode
		case ModeStatic:
			info, f, err = s.storage.Open(ctx, path.Join(p, "index.html"))
		case ModeSPA:
			info, f, err = s.storage.Open(ctx, "index.html")
		}
	}

	if err != nil {
		return FileInfo{}, nil, fmt.Errorf("get file: %w", err)
	}

	return info, f, nil
}

// Create resolves rawPath and writes content there, returning the stored
// file's metadata.
func (s *Service) Create(ctx context.Context, rawPath, contentType string, content io.Reader) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, fmt.Errorf("create file: %w", err)
	}

	if rawPath == "" {
		return FileInfo{}, fmt.Errorf("create file: %w: path cannot be empty", ErrInvalidInput)
	}

	p, err := ResolveLocal(rawPath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("create file: %w", err)
	}

	saved, err := s.storage.Write(ctx, p, content)
	if err != nil {
		return FileInfo{}, fmt.Errorf("create file %s: %w", p, err)
	}

	return FileInfo{
		Path:        p,
		Size:        saved.BytesWritten,
		ETag:        saved.ETag,
		ContentType: contentType,
	}, nil
}

// Delete resolves rawPath and removes the file.
func (s *Service) Delete(ctx context.Context, rawPath string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if rawPath == "" {
		return fmt.Errorf("delete file: %w: path cannot be empty", ErrInvalidInput)
	}

	p, err := ResolveLocal(rawPath)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if err := s.storage.Delete(ctx, p); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	return nil
}

// List returns every stored file.
func (s *Service) List(ctx context.Context) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	files, err := s.storage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	return files, nil
}
