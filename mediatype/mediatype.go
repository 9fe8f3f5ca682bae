// Package mediatype decides whether a remote URL or a local file is an image, a video, or (local files only) a
// document.
package mediatype

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/generic"
	"github.com/alanbriolat/media-archiver/internal/httpclient"
)

const (
	DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	TextContentType = "text/plain"
)

var (
	imageExtensions = generic.NewSet(".jpg", ".jpeg", ".png", ".gif")
	videoExtensions = generic.NewSet(".mp4", ".mov", ".mkv", ".avi")
)

// Local files are typed by name, never by the host's mime database, so results don't vary between machines.
var localContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".flv":  "video/x-flv",
	".docx": DocxContentType,
	".txt":  TextContentType,
}

var fallbackExtensions = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"video/mp4":        ".mp4",
	"video/quicktime":  ".mov",
	"video/x-matroska": ".mkv",
	"video/webm":       ".webm",
}

// Header is the part of the HTTP capability the classifier needs.
type Header interface {
	Head(ctx context.Context, url string, timeout time.Duration) (http.Header, error)
}

type Classifier struct {
	client      Header
	headTimeout time.Duration
}

func NewClassifier(client Header, headTimeout time.Duration) *Classifier {
	return &Classifier{client: client, headTimeout: headTimeout}
}

// ClassifyURL uses the Content-Type from a HEAD request, falling back to the URL's file extension. It never
// returns KindDocument.
func (c *Classifier) ClassifyURL(ctx context.Context, rawURL string) media_archiver.Kind {
	if c.client != nil {
		header, err := c.client.Head(ctx, rawURL, c.headTimeout)
		if err != nil {
			media_archiver.Logger(ctx).Sugar().Debugf("HEAD %s failed, using extension: %v", rawURL, err)
		} else if kind := KindOfContentType(httpclient.ContentType(header)); kind.IsMedia() {
			return kind
		}
	}
	return KindOfURLExtension(rawURL)
}

// ClassifyPath types a local file by its name, sniffing the content only when the extension is unrecognised.
func (c *Classifier) ClassifyPath(p string) media_archiver.Kind {
	return ClassifyPath(p)
}

func ClassifyPath(p string) media_archiver.Kind {
	ext := strings.ToLower(filepath.Ext(p))
	if contentType, ok := localContentTypes[ext]; ok {
		return kindOfLocalContentType(contentType)
	}
	if info, err := os.Stat(p); err != nil || !info.Mode().IsRegular() {
		return media_archiver.KindUnknown
	}
	detected, err := mimetype.DetectFile(p)
	if err != nil {
		return media_archiver.KindUnknown
	}
	for m := detected; m != nil; m = m.Parent() {
		if kind := kindOfLocalContentType(m.String()); kind != media_archiver.KindUnknown {
			return kind
		}
	}
	return media_archiver.KindUnknown
}

func kindOfLocalContentType(contentType string) media_archiver.Kind {
	contentType = strings.ToLower(strings.SplitN(contentType, ";", 2)[0])
	switch contentType {
	case DocxContentType, TextContentType:
		return media_archiver.KindDocument
	}
	return KindOfContentType(contentType)
}

// KindOfContentType maps image/* and video/* media types.
func KindOfContentType(contentType string) media_archiver.Kind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return media_archiver.KindImage
	case strings.HasPrefix(contentType, "video/"):
		return media_archiver.KindVideo
	default:
		return media_archiver.KindUnknown
	}
}

// KindOfURLExtension checks the URL path against the remote extension allow-lists.
func KindOfURLExtension(rawURL string) media_archiver.Kind {
	u, err := url.Parse(rawURL)
	if err != nil {
		return media_archiver.KindUnknown
	}
	return KindOfExtension(path.Ext(u.Path))
}

func KindOfExtension(ext string) media_archiver.Kind {
	ext = strings.ToLower(ext)
	switch {
	case imageExtensions.Contains(ext):
		return media_archiver.KindImage
	case videoExtensions.Contains(ext):
		return media_archiver.KindVideo
	default:
		return media_archiver.KindUnknown
	}
}

// ExtensionFor returns a file extension (with the dot) for a content type, or ".bin" if there is none.
func ExtensionFor(contentType string) string {
	if contentType != "" {
		if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
			return m.Extension()
		}
		if ext, ok := fallbackExtensions[contentType]; ok {
			return ext
		}
	}
	return ".bin"
}
