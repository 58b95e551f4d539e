package changeset

import (
	"strconv"

	apperrors "treediff/internal/errors"
)

// Classify decides the change kind for one leaf path given both sides'
// entries (nil means absent on that side) and assembles the record. It
// returns (nil, nil) for unchanged paths.
//
// Both sides absent is an integrity violation: such a path should never have
// reached classification, and the whole walk must abort.
func Classify(path string, a, b Entry) (*Record, error) {
	oldID := contentID(a)
	newID := contentID(b)

	if oldID == "" && newID == "" {
		return nil, apperrors.Integrity("path %s has no content identity on either side", path)
	}
	if oldID == newID {
		return nil, nil
	}

	kind := KindModified
	switch {
	case oldID == "":
		kind = KindAdded
	case newID == "":
		kind = KindRemoved
	}

	oldText, err := contentText(path, a, kind != KindAdded)
	if err != nil {
		return nil, err
	}
	newText, err := contentText(path, b, kind != KindRemoved)
	if err != nil {
		return nil, err
	}

	diff, err := unifiedPatch(path, oldText, newText)
	if err != nil {
		return nil, err
	}

	record := &Record{
		Diff:        diff,
		RenamedFile: false,
	}

	switch kind {
	case KindAdded:
		record.NewPath = &path
		record.BMode = modeString(b)
		record.NewFile = true
	case KindRemoved:
		record.OldPath = &path
		record.AMode = modeString(a)
		// Long-standing quirk kept for output compatibility: the b_mode of a
		// removed or modified file echoes the old side's mode.
		record.BMode = modeString(a)
		record.DeletedFile = true
	case KindModified:
		record.OldPath = &path
		record.NewPath = &path
		record.AMode = modeString(a)
		record.BMode = modeString(a)
	default:
		return nil, apperrors.UnsupportedChange("path %s classified as %s", path, kind)
	}

	return record, nil
}

func contentID(e Entry) string {
	if e == nil {
		return ""
	}
	return e.ContentID()
}

// contentText fetches and decodes one side's bytes; absent or unneeded sides
// diff as empty text.
func contentText(path string, e Entry, needed bool) (string, error) {
	if e == nil || !needed {
		return "", nil
	}
	content, err := e.Content()
	if err != nil {
		return "", apperrors.ContentFetch(path, err)
	}
	return string(content), nil
}

func modeString(e Entry) *string {
	if e == nil {
		return nil
	}
	mode := e.ContentMode()
	if mode == 0 {
		return nil
	}
	s := strconv.FormatUint(uint64(mode), 8)
	return &s
}
