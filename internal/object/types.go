package object

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Kind distinguishes leaf entries from subtrees.
type Kind string

const (
	KindBlob Kind = "blob"
	KindTree Kind = "tree"
)

// TreeRef is the content-derived identifier of a tree snapshot. Two refs are
// equal exactly when the snapshots they name are byte-identical.
type TreeRef string

func (r TreeRef) String() string {
	return string(r)
}

// TreeEntry is one name inside a directory object. ID is the sha256 of the
// blob bytes for KindBlob, or the subtree object for KindTree. Mode carries
// the permission/type bits; zero means unknown.
type TreeEntry struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Mode uint32 `json:"mode,omitempty"`
	ID   string `json:"id"`
}

// Entry is a read-only view of a single path's state within one resolved
// snapshot. Content is fetched lazily from the backing store.
type Entry struct {
	TreeEntry
	store *Store
}

// ContentID returns the entry's content-addressed identity.
func (e *Entry) ContentID() string {
	return e.ID
}

// ContentMode returns the permission/type bits, zero when unknown.
func (e *Entry) ContentMode() uint32 {
	return e.Mode
}

// Content reads the raw blob bytes from the store.
func (e *Entry) Content() ([]byte, error) {
	return e.store.blobs.Get(e.ID)
}

// Child is a (name, kind) pair from a directory listing.
type Child struct {
	Name string
	Kind Kind
}

// BlobMeta stores metadata about stored blob content.
type BlobMeta struct {
	Size       int64     `json:"size"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
