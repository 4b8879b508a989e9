// Package storage defines the local file-system abstraction used by the
// file bridge.
package storage

// Provider is the interface for document file operations. Paths are
// absolute; documents can live anywhere on the local disk.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
}
