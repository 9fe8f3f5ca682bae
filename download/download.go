// Package download implements the two fetch strategies: a generic streaming download of one media URL, and a
// specialized video fetch that delegates to a VideoFetcher and names the result {platform}_{N}.{ext}.
//
// Both strategies write into a private temporary directory inside the destination directory, and only move a file
// into place once it is complete, so a failed download never leaves a partial file behind as if it had succeeded.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alanbriolat/media-archiver"
)

type ProgressFunc = func(downloaded int64, expected int64)

type downloadConfig struct {
	targetDir string
	progress  ProgressFunc
}

type DownloadConfigOption func(*downloadConfig)

func WithTargetDir(dir string) DownloadConfigOption {
	return func(c *downloadConfig) {
		c.targetDir = dir
	}
}

func WithProgressCallback(f ProgressFunc) DownloadConfigOption {
	return func(c *downloadConfig) {
		c.progress = f
	}
}

type DownloadState struct {
	config          downloadConfig
	tempDir         string
	downloadedBytes int64
	expectedBytes   int64
}

func newDownloadState(config downloadConfig) (*DownloadState, error) {
	if err := os.MkdirAll(config.targetDir, 0755); err != nil {
		return nil, err
	}
	// Same filesystem as the target, so moving into place is a rename
	tempDir, err := os.MkdirTemp(config.targetDir, ".media-archiver-*")
	if err != nil {
		return nil, err
	}
	state := &DownloadState{
		config:  config,
		tempDir: tempDir,
	}
	return state, nil
}

func (s *DownloadState) close(ctx context.Context) {
	if err := os.RemoveAll(s.tempDir); err != nil {
		media_archiver.Logger(ctx).Sugar().Warnf("failed to clean up download state: %v", err)
	}
}

// TempDir is removed, with anything left in it, when the download finishes.
func (s *DownloadState) TempDir() string {
	return s.tempDir
}

func (s *DownloadState) CreateTemp(pattern string) (*os.File, error) {
	return os.CreateTemp(s.tempDir, pattern)
}

// AddExpectedBytes records the expected size, if known (n < 0 means unknown).
func (s *DownloadState) AddExpectedBytes(n int64) {
	if n > 0 {
		s.expectedBytes += n
		s.reportProgress()
	}
}

// Write discards the data but counts it as downloaded, for use with io.MultiWriter (as the last writer, so failed
// writes aren't counted).
func (s *DownloadState) Write(p []byte) (int, error) {
	s.downloadedBytes += int64(len(p))
	s.reportProgress()
	return len(p), nil
}

func (s *DownloadState) reportProgress() {
	if s.config.progress != nil {
		s.config.progress(s.downloadedBytes, s.expectedBytes)
	}
}

// SaveStream writes the whole stream to a new temporary file, returning its path.
func (s *DownloadState) SaveStream(ctx context.Context, pattern string, stream io.Reader) (string, error) {
	f, err := s.CreateTemp(pattern)
	if err != nil {
		return "", fmt.Errorf("failed to open temporary file: %w", err)
	}
	_, err = io.Copy(io.MultiWriter(f, s), media_archiver.NewContextReader(ctx, stream))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to save stream: %w", err)
	}
	return f.Name(), nil
}

// Commit moves a completed temporary file to name in the target directory, replacing any existing file.
func (s *DownloadState) Commit(tempPath string, name string) (string, error) {
	target := filepath.Join(s.config.targetDir, name)
	if err := os.Rename(tempPath, target); err != nil {
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}
	return target, nil
}

// CommitNumbered moves a completed temporary file to {prefix}_{N}{ext} in the target directory, with N from
// NextIndex, skipping any N that is taken by the time the file is moved.
func (s *DownloadState) CommitNumbered(tempPath string, prefix string, ext string) (string, error) {
	next, err := NextIndex(s.config.targetDir, prefix)
	if err != nil {
		return "", err
	}
	for n := next; ; n++ {
		target := filepath.Join(s.config.targetDir, fmt.Sprintf("%s_%d%s", prefix, n, ext))
		// A hard link fails if the target exists, unlike a rename
		err := os.Link(tempPath, target)
		if err == nil {
			_ = os.Remove(tempPath)
			return target, nil
		} else if errors.Is(err, fs.ErrExist) {
			continue
		}
		// Filesystem without hard links; check-then-rename is the best available
		if _, statErr := os.Stat(target); statErr == nil {
			continue
		}
		if err := os.Rename(tempPath, target); err != nil {
			return "", fmt.Errorf("failed to move download into place: %w", err)
		}
		return target, nil
	}
}

// WithDownloadState runs f with a fresh DownloadState, cleaning up its temporary directory afterwards.
func WithDownloadState(ctx context.Context, f func(state *DownloadState) error, opts ...DownloadConfigOption) error {
	config := downloadConfig{
		targetDir: ".",
	}
	for _, opt := range opts {
		opt(&config)
	}
	if state, err := newDownloadState(config); err != nil {
		return err
	} else {
		defer state.close(ctx)
		return f(state)
	}
}
