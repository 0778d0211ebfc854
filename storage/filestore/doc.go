// Package filestore implements storage.VectorStore on the local file system.
//
// Each artifact is a two-space indented JSON file at
// <root>/<category>/<documentId>.json. Writes go through
// github.com/google/renameio/v2: the data lands in a hidden temp file in the
// target directory, is synced, and is renamed over the destination, so a
// reader sees either the old artifact or the new one. Hidden files and files
// without a .json extension are never read, which keeps temp files of an
// interrupted write out of search results.
//
// Malformed artifacts are reported as *core.StorageReadError by Read and are
// skipped with a warning by Walk, ReadAll and Stats.
package filestore
