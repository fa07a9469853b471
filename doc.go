// Package ferry provides the building blocks for serving files safely over
// HTTP: traversal-proof path resolution, a pull-based bridge from io.Reader
// sources to chunked byte streams, and the small byte-level helpers used by
// line-oriented parsing code.
//
// # Key Components
//
//   - Resolve / ResolveLocal: resolve untrusted relative paths against a
//     trusted root, rejecting NUL bytes, absolute paths, and traversal
//   - Stream: a demand-driven byte stream over any io.Reader, with
//     configurable chunk size, automatic source close, and cancellation
//   - Service: file serving operations combining a storage backend with
//     store/static/SPA lookup modes
//
// # Server Modes
//
// The service supports three lookup modes:
//
//   - ModeStore: exact paths only, missing paths are not found
//   - ModeStatic: static file server with index.html fallback for directories
//   - ModeSPA: Single Page Application mode returning /index.html for misses
//
// # Example Usage
//
//	resolved, err := ferry.Resolve("/srv/www", "css/site.css")
//	if err != nil {
//	    // *ferry.HTTPError carries the status to report
//	}
//
//	s := ferry.NewStream(f, ferry.WithChunkSize(32*1024))
//	defer func() { _ = s.Close() }()
//	for {
//	    chunk, err := s.Next()
//	    ...
//	}
//
// See the http package for the REST surface and the filesystem package for
// the sandboxed storage backend.
package ferry
