// Package acquire turns a URL into at most one media file on disk, choosing and sequencing strategies by platform
// and URL shape.
package acquire

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/util"
)

// Shape is the kind of page a URL points at, within its platform.
type Shape int

const (
	ShapeGeneric Shape = iota
	// ShapeFacebookVideo is a watch, reel, video or story page.
	ShapeFacebookVideo
	// ShapeFacebookPhoto is any other Facebook page: photos, posts, feeds.
	ShapeFacebookPhoto
)

func (s Shape) String() string {
	switch s {
	case ShapeFacebookVideo:
		return "facebook-video"
	case ShapeFacebookPhoto:
		return "facebook-photo"
	default:
		return "generic"
	}
}

// Path segments that mark a Facebook URL as a video page.
var facebookVideoSegments = []string{"/watch", "/reel", "/videos", "/stories"}

// Request is a single acquisition, read-only once created.
type Request struct {
	ID       string
	URL      string
	Parsed   *url.URL
	Platform media_archiver.Platform
	Shape    Shape
}

func NewRequest(rawURL string, platform media_archiver.Platform) (Request, error) {
	rawURL = strings.TrimSpace(rawURL)
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", media_archiver.ErrClassification, err)
	}
	return Request{
		ID:       uuid.NewString(),
		URL:      rawURL,
		Parsed:   parsed,
		Platform: platform,
		Shape:    shapeOf(platform, parsed),
	}, nil
}

func (r Request) String() string {
	return fmt.Sprintf("%s [%s, %s]", r.URL, r.Platform, r.Shape)
}

func shapeOf(platform media_archiver.Platform, u *url.URL) Shape {
	if platform != media_archiver.PlatformFacebook {
		return ShapeGeneric
	}
	path := strings.ToLower(u.Path)
	for _, segment := range facebookVideoSegments {
		if strings.Contains(path, segment) {
			return ShapeFacebookVideo
		}
	}
	if u.Query().Has("story_fbid") {
		return ShapeFacebookVideo
	}
	return ShapeFacebookPhoto
}

// photoIndex returns the 1-based number following a literal "photo" path segment, or 1 if there isn't one.
func photoIndex(u *url.URL) int {
	segments := util.PathSegments(u)
	for i, segment := range segments {
		if segment != "photo" {
			continue
		}
		if i+1 < len(segments) {
			if n, err := strconv.Atoi(segments[i+1]); err == nil {
				return n
			}
		}
		break
	}
	return 1
}
