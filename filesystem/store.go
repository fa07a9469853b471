// Package filesystem provides the os.Root backed storage backend for ferry.
// It supports atomic writes using temp files, SHA256-based etags, and
// content type detection based on file extensions.
package filesystem

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mgrewal/ferry"
)

// IgnoreFileName is the optional file at the storage root listing path
// prefixes excluded from List, one per line. Lines starting with '#' are
// comments.
const IgnoreFileName = ".ferryignore"

// Store provides file operations sandboxed inside an os.Root.
type Store struct {
	root *os.Root
}

// NewStore creates a Store over the given root directory. The root provides
// sandboxed file operations; paths handed to the store are expected to have
// passed ferry.Resolve already.
func NewStore(root *os.Root) *Store {
	return &Store{root: root}
}

// Open opens a file for reading and returns its metadata alongside the
// reader. The etag is computed from the content, after which the reader is
// rewound. Returns ferry.ErrNotFound if the file does not exist or is a
// directory.
func (s *Store) Open(ctx context.Context, path string) (ferry.FileInfo, io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return ferry.FileInfo{}, nil, err
	}

	f, err := s.root.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ferry.FileInfo{}, nil, ferry.ErrNotFound
		}
		return ferry.FileInfo{}, nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return ferry.FileInfo{}, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		_ = f.Close()
		return ferry.FileInfo{}, nil, ferry.ErrNotFound
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		_ = f.Close()
		return ferry.FileInfo{}, nil, fmt.Errorf("failed to hash file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return ferry.FileInfo{}, nil, fmt.Errorf("failed to rewind file: %w", err)
	}

	info := ferry.FileInfo{
		Path:        path,
		Size:        stat.Size(),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		ContentType: detectContentType(path),
		ModTime:     stat.ModTime(),
	}

	return info, f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Write atomically writes content to the given path using a temp file and
// rename. It creates intermediate directories as needed and returns the
// number of bytes written and the SHA256-based etag. The operation respects
// context cancellation.
func (s *Store) Write(ctx context.Context, path string, content io.Reader) (ferry.SaveResult, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ferry.SaveResult{}, ctxErr
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return ferry.SaveResult{}, fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(t.Name()); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	fileSizeBytes, err := io.Copy(w, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return ferry.SaveResult{}, fmt.Errorf("could not copy file contents: %w", err)
	}

	err = t.Sync()
	if err != nil {
		return ferry.SaveResult{}, fmt.Errorf("could not sync written file: %w", err)
	}

	destDir := filepath.Dir(path)
	if destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return ferry.SaveResult{}, fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, path); renameErr != nil {
		return ferry.SaveResult{}, fmt.Errorf("failed to rename file: %w", renameErr)
	}

	etag := hex.EncodeToString(h.Sum(nil))
	success = true

	return ferry.SaveResult{BytesWritten: fileSizeBytes, ETag: etag}, nil
}

// Delete removes a file. Returns ferry.ErrNotFound if the file does not exist.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.root.Remove(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ferry.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// List recursively walks the root directory and returns all files with
// their metadata. Paths matching a prefix from the root's .ferryignore
// file, and the ignore file itself, are skipped. This is intended for
// store-mode listing and audits.
func (s *Store) List(ctx context.Context) ([]ferry.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ignored, err := s.loadIgnorePrefixes()
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}

	entries := []ferry.FileInfo{}

	if err := s.walkDir(ctx, ".", ignored, &entries); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return entries, nil
}

// loadIgnorePrefixes parses the optional .ferryignore file. Each line is a
// path prefix; line endings and blanks are stripped before matching.
func (s *Store) loadIgnorePrefixes() ([]string, error) {
	f, err := s.root.Open(IgnoreFileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var prefixes []string
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = ferry.StripBlanks(ferry.TrimLineEnding(line))
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		prefixes = append(prefixes, string(line))
	}
	return prefixes, nil
}

func skipped(path string, ignored []string) bool {
	if path == IgnoreFileName {
		return true
	}
	for _, prefix := range ignored {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (s *Store) walkDir(ctx context.Context, path string, ignored []string, entries *[]ferry.FileInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), path)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}

		entryPath := filepath.Join(path, entry.Name())
		if skipped(entryPath, ignored) {
			continue
		}

		if entry.IsDir() {
			if err := s.walkDir(ctx, entryPath, ignored, entries); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		f, err := s.root.Open(entryPath)
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		h := sha256.New()
		_, copyErr := io.Copy(h, f)

		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close file", "path", entryPath, "err", closeErr)
		}

		if copyErr != nil {
			return fmt.Errorf("walk dir: %w", copyErr)
		}

		*entries = append(*entries, ferry.FileInfo{
			Path:        entryPath,
			Size:        info.Size(),
			ETag:        hex.EncodeToString(h.Sum(nil)),
			ContentType: detectContentType(entryPath),
			ModTime:     info.ModTime(),
		})
	}

	return nil
}

func detectContentType(path string) string {
	ext := filepath.Ext(path)
	contentType := mime.TypeByExtension(ext)

	if contentType == "" {
		return "application/octet-stream"
	}

	return contentType
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
