// Package http provides the REST surface for ferry.
//
// The handler serves files resolved against the storage root, streaming
// content in configurable chunks, and exposes upload, delete, and (in store
// mode) listing endpoints. Path safety errors surface as 400/403 responses,
// storage misses as 404.
package http
