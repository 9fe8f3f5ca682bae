// Package route moves acquired files into the canonical directory for their actual media kind.
package route

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/mediatype"
)

// ClassifyFunc classifies a local file.
type ClassifyFunc = func(path string) media_archiver.Kind

type Router struct {
	dirs     media_archiver.Dirs
	classify ClassifyFunc
}

type Option func(*Router)

func WithClassifier(f ClassifyFunc) Option {
	return func(r *Router) {
		r.classify = f
	}
}

func New(dirs media_archiver.Dirs, opts ...Option) *Router {
	r := &Router{
		dirs:     dirs,
		classify: mediatype.ClassifyPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route reclassifies the file from its name and content, ignoring the download-time hint, and moves it to the
// images or videos directory under the same name. An existing file with that name is replaced. Files that are
// neither images nor videos are media_archiver.ErrUnroutable and stay where they are.
func (r *Router) Route(ctx context.Context, file media_archiver.AcquiredFile) (media_archiver.AcquiredFile, error) {
	kind := r.classify(file.Path)
	dir := r.dirs.For(kind)
	if dir == "" {
		return file, fmt.Errorf("%w: %s is %s", media_archiver.ErrUnroutable, file.Path, kind)
	}
	if file.Hint != media_archiver.KindUnknown && file.Hint != kind {
		media_archiver.Logger(ctx).Sugar().Debugf("%s was downloaded as %s but is %s", file.Path, file.Hint, kind)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return file, err
	}

	target := filepath.Join(dir, filepath.Base(file.Path))
	if same, err := samePath(file.Path, target); err != nil {
		return file, err
	} else if !same {
		if err := os.Rename(file.Path, target); err != nil {
			return file, fmt.Errorf("failed to move %s: %w", file.Path, err)
		}
	}
	file.Path = target
	file.Kind = kind
	return file, nil
}

func samePath(a string, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}
