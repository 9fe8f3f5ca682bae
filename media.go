package media_archiver

import (
	"fmt"
)

// Kind is the classified type of a piece of media.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindVideo
	// KindDocument is only ever assigned to local files.
	KindDocument
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// IsMedia returns true for the kinds the acquisition pipeline can route.
func (k Kind) IsMedia() bool {
	return k == KindImage || k == KindVideo
}

// A Reference is a candidate media URL together with its classified Kind.
type Reference struct {
	URL  string
	Kind Kind
}

func (r Reference) String() string {
	return fmt.Sprintf("%s [%s]", r.URL, r.Kind)
}

// AcquiredFile is a file on disk produced by a single acquisition.
type AcquiredFile struct {
	Path string
	// Hint is the kind guessed at download time from the source URL or container, and is never trusted for
	// routing.
	Hint Kind
	// Kind is the final kind, set once the file has been classified by its name/content.
	Kind Kind
}

func (f AcquiredFile) String() string {
	if f.Kind == KindUnknown {
		return fmt.Sprintf("%s (hint: %s)", f.Path, f.Hint)
	}
	return fmt.Sprintf("%s (%s)", f.Path, f.Kind)
}
