// Package storage provides sandboxed file access to the documents
// directory.
package storage

// Provider is the interface for document-directory file operations.
type Provider interface {
	// List returns the filenames of all top-level document files,
	// sorted lexically. Snapshot directories, the index manifest, and
	// anything that is not a document file are excluded.
	List() ([]string, error)
	// Read returns the raw bytes of the named file.
	Read(name string) ([]byte, error)
	// Write atomically writes content to the named file.
	Write(name string, content []byte) error
	// Remove deletes the named file.
	Remove(name string) error
	// Copy duplicates srcName to dstName byte for byte.
	Copy(srcName, dstName string) error
	// Exists reports whether the named file is present.
	Exists(name string) (bool, error)
	// Root returns the absolute path of the documents directory.
	Root() string
}
