package changeset

// Kind is the classification outcome for one path.
type Kind int

const (
	KindUnchanged Kind = iota
	KindAdded
	KindModified
	KindRemoved
)

func (k Kind) String() string {
	switch k {
	case KindUnchanged:
		return "unchanged"
	case KindAdded:
		return "added"
	case KindModified:
		return "modified"
	case KindRemoved:
		return "removed"
	}
	return "unknown"
}

// Entry is the view of one side of a path the classifier needs: a content
// identity for equality, mode bits, and a lazy accessor for the raw bytes.
type Entry interface {
	// ContentID is the content-addressed identity; equal ids mean
	// byte-identical content.
	ContentID() string
	// ContentMode returns the permission/type bits, zero when unknown.
	ContentMode() uint32
	// Content reads the raw bytes. Only called when a patch body is needed.
	Content() ([]byte, error)
}

// Record is the externally visible change shape. Exactly one of NewFile,
// DeletedFile, or plain modify (neither flag, OldPath == NewPath) holds per
// record; unchanged paths never produce one.
type Record struct {
	Diff        string  `json:"diff"`
	NewPath     *string `json:"new_path"`
	OldPath     *string `json:"old_path"`
	AMode       *string `json:"a_mode"`
	BMode       *string `json:"b_mode"`
	NewFile     bool    `json:"new_file"`
	RenamedFile bool    `json:"renamed_file"`
	DeletedFile bool    `json:"deleted_file"`
}

// Kind recovers the classification from the record's flags.
func (r *Record) Kind() Kind {
	switch {
	case r.NewFile:
		return KindAdded
	case r.DeletedFile:
		return KindRemoved
	default:
		return KindModified
	}
}

// Path returns the record's path regardless of kind.
func (r *Record) Path() string {
	if r.NewPath != nil {
		return *r.NewPath
	}
	if r.OldPath != nil {
		return *r.OldPath
	}
	return ""
}
