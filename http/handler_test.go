package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mgrewal/ferry"
	ferryhttp "github.com/mgrewal/ferry/http"
)

// readSeekNopCloser wraps an io.ReadSeeker to add a no-op Close method
type readSeekNopCloser struct {
	io.ReadSeeker
}

func (r readSeekNopCloser) Close() error { return nil }

// closeCountingBody wraps an io.ReadSeeker and counts Close calls.
type closeCountingBody struct {
	io.ReadSeeker
	closes int
}

func (b *closeCountingBody) Close() error {
	b.closes++
	return nil
}

// abortedWriter fails every body write, like a client that hung up.
type abortedWriter struct {
	header http.Header
	writes int
}

func (w *abortedWriter) Header() http.Header {
	if w.header == nil {
		w.header = http.Header{}
	}
	return w.header
}

func (w *abortedWriter) WriteHeader(int) {}

func (w *abortedWriter) Write([]byte) (int, error) {
	w.writes++
	return 0, errors.New("connection reset by peer")
}

// MockService is a mock implementation of http.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context, path string) (ferry.FileInfo, io.ReadSeekCloser, error) {
	args := m.Called(ctx, path)
	if args.Get(1) == nil {
		return args.Get(0).(ferry.FileInfo), nil, args.Error(2)
	}
	return args.Get(0).(ferry.FileInfo), args.Get(1).(io.ReadSeekCloser), args.Error(2)
}

func (m *MockService) Create(ctx context.Context, path, contentType string, content io.Reader) (ferry.FileInfo, error) {
	args := m.Called(ctx, path, contentType, content)
	return args.Get(0).(ferry.FileInfo), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockService) List(ctx context.Context) ([]ferry.FileInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ferry.FileInfo), args.Error(1)
}

func newHandler(mode ferry.ServerMode, service ferryhttp.Service) *ferryhttp.Handler {
	config := &ferryhttp.HandlerConfig{Mode: mode, ChunkSize: 4}
	return ferryhttp.NewHandler(config, service)
}

func TestHandler_Get_StreamsBody(t *testing.T) {
	service := new(MockService)
	info := ferry.FileInfo{
		Path:        "docs/a.txt",
		Size:        11,
		ETag:        "abc123",
		ContentType: "text/plain; charset=utf-8",
		ModTime:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	service.On("Get", mock.Anything, "docs/a.txt").
		Return(info, readSeekNopCloser{strings.NewReader("hello world")}, nil)

	req := httptest.NewRequest("GET", "/docs/a.txt", nil)
	rec := httptest.NewRecorder()

	newHandler(ferry.ModeStore, service).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello world", rec.Body.String())
	assert.Equal(t, `"abc123"`, rec.Header().Get("ETag"))
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Wed, 01 May 2024 12:00:00 GMT", rec.Header().Get("Last-Modified"))
	service.AssertExpectations(t)
}

func TestHandler_Get_NotModified(t *testing.T) {
	service := new(MockService)
	info := ferry.FileInfo{Path: "a.txt", ETag: "abc123", ContentType: "text/plain"}
	service.On("Get", mock.Anything, "a.txt").
		Return(info, readSeekNopCloser{strings.NewReader("body")}, nil)

	req := httptest.NewRequest("GET", "/a.txt", nil)
	req.Header.Set("If-None-Match", `"abc123"`)
	rec := httptest.NewRecorder()

	newHandler(ferry.ModeStore, service).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandler_Get_NotFound_StoreMode(t *testing.T) {
	service := new(MockService)
	service.On("Get", mock.Anything, "missing.txt").
		Return(ferry.FileInfo{}, nil, ferry.ErrNotFound)

	req := httptest.NewRequest("GET", "/missing.txt", nil)
	rec := httptest.NewRecorder()

	newHandler(ferry.ModeStore, service).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHandler_Get_NotFound_StaticModeErrorPage(t *testing.T) {
	service := new(MockService)
	service.On("Get", mock.Anything, "missing.txt").
		Return(ferry.FileInfo{}, nil, ferry.ErrNotFound)

	req := httptest.NewRequest("GET", "/missing.txt", nil)
	rec := httptest.NewRecorder()

	newHandler(ferry.ModeStatic, service).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "404 Not Found")
}

func TestHandler_Get_ClientGoneMidStream(t *testing.T) {
	service := new(MockService)
	body := &closeCountingBody{ReadSeeker: strings.NewReader("a body long enough for several chunks")}
	info := ferry.FileInfo{Path: "a.txt", ETag: "abc123", ContentType: "text/plain"}
	service.On("Get", mock.Anything, "a.txt").Return(info, body, nil)

	req := httptest.NewRequest("GET", "/a.txt", nil)
	w := &abortedWriter{}

	newHandler(ferry.ModeStore, service).Router().ServeHTTP(w, req)

	// The handler bails out after the first failed write and hands the
	// file back exactly once before returning.
	assert.Equal(t, 1, w.writes)
	assert.Equal(t, 1, body.closes)
}

func TestHandler_Get_TraversalRejectedByGuard(t *testing.T) {
	service := new(MockService)

	req := httptest.NewRequest("GET", "/"+"a/../../secret", nil)
	req.URL.Path = "/a/../../secret" // bypass client-side normalization
	rec := httptest.NewRecorder()

	newHandler(ferry.ModeStore, service).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	service.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestHandler_List_StoreMode(t *testing.T) {
	service := new(MockService)
	items := []ferry.FileInfo{
		{Path: "file1.txt", Size: 100, ETag: "abc", ContentType: "text/plain"},
		{Path: "file2.json", Size: 5, ETag: "def", ContentType: "application/json"},
	}
	service.On("List", mock.Anything).Return(items, nil)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	newHandler(ferry.ModeStore, service).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ferryhttp.ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, "file1.txt", resp.Items[0].Path)
}

func TestHandler_List_Error(t *testing.T) {
	service := new(MockService)
	service.On("List", mock.Anything).Return(nil, errors.New("walk failed"))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	newHandler(ferry.ModeStore, service).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandler_Put_Success(t *testing.T) {
	service := new(MockService)
	info := ferry.FileInfo{Path: "a.txt", Size: 4, ETag: "abc", ContentType: "text/plain"}
	service.On("Create", mock.Anything, "a.txt", "text/plain", mock.Anything).Return(info, nil)

	req := httptest.NewRequest("PUT", "/a.txt", strings.NewReader("body"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()

	newHandler(ferry.ModeStore, service).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got ferry.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "a.txt", got.Path)
	service.AssertExpectations(t)
}

func TestHandler_Put_IfMatchMismatch(t *testing.T) {
	service := new(MockService)
	existing := ferry.FileInfo{Path: "a.txt", ETag: "current"}
	service.On("Get", mock.Anything, "a.txt").
		Return(existing, readSeekNopCloser{strings.NewReader("")}, nil)

	req := httptest.NewRequest("PUT", "/a.txt", strings.NewReader("body"))
	req.Header.Set("If-Match", `"stale"`)
	rec := httptest.NewRecorder()

	newHandler(ferry.ModeStore, service).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	service.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Put_IfMatchMatches(t *testing.T) {
	service := new(MockService)
	existing := ferry.FileInfo{Path: "a.txt", ETag: "current"}
	service.On("Get", mock.Anything, "a.txt").
		Return(existing, readSeekNopCloser{strings.NewReader("")}, nil)
	service.On("Create", mock.Anything, "a.txt", "application/octet-stream", mock.Anything).
		Return(ferry.FileInfo{Path: "a.txt"}, nil)

	req := httptest.NewRequest("PUT", "/a.txt", strings.NewReader("body"))
	req.Header.Set("If-Match", ` "current" , "other"`)
	rec := httptest.NewRecorder()

	newHandler(ferry.ModeStore, service).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestHandler_Put_IfMatchRequiresExisting(t *testing.T) {
	service := new(MockService)
	service.On("Get", mock.Anything, "a.txt").
		Return(ferry.FileInfo{}, nil, ferry.ErrNotFound)

	for _, header := range []string{"*", `"abc123"`} {
		t.Run(header, func(t *testing.T) {
			req := httptest.NewRequest("PUT", "/a.txt", strings.NewReader("body"))
			req.Header.Set("If-Match", header)
			rec := httptest.NewRecorder()

			newHandler(ferry.ModeStore, service).Router().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
		})
	}
	service.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Delete_Success(t *testing.T) {
	service := new(MockService)
	service.On("Delete", mock.Anything, "a.txt").Return(nil)

	req := httptest.NewRequest("DELETE", "/a.txt", nil)
	rec := httptest.NewRecorder()

	newHandler(ferry.ModeStore, service).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_Delete_NotFound(t *testing.T) {
	service := new(MockService)
	service.On("Delete", mock.Anything, "a.txt").Return(ferry.ErrNotFound)

	req := httptest.NewRequest("DELETE", "/a.txt", nil)
	rec := httptest.NewRecorder()

	newHandler(ferry.ModeStore, service).Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_CORSHeaders(t *testing.T) {
	service := new(MockService)
	config := &ferryhttp.HandlerConfig{
		Mode: ferry.ModeStore,
		CORS: ferryhttp.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://example.com"},
			AllowedMethods: []string{"GET"},
		},
	}
	handler := ferryhttp.NewHandler(config, service)

	req := httptest.NewRequest("OPTIONS", "/a.txt", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()

	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
