// Package ytdlp is a VideoFetcher backed by the yt-dlp command line tool.
package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/download"
)

// DefaultFormat selects the best mp4 video with m4a audio, falling back to the best single file.
const DefaultFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

type Downloader struct {
	binaryPath string
	format     string
}

type Option func(*Downloader)

func WithFormat(format string) Option {
	return func(d *Downloader) {
		d.format = format
	}
}

// New uses the yt-dlp binary at binaryPath, or from PATH if it is "".
func New(binaryPath string, opts ...Option) *Downloader {
	if binaryPath == "" {
		binaryPath = "yt-dlp"
	}
	d := &Downloader{
		binaryPath: binaryPath,
		format:     DefaultFormat,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Downloader) Name() string {
	return "ytdlp"
}

func (d *Downloader) args(videoURL string, dir string, stem string) []string {
	return []string{
		"-f", d.format,
		"--merge-output-format", "mp4",
		"--restrict-filenames",
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"-o", filepath.Join(dir, stem+".%(ext)s"),
		"--print", "after_move:filepath",
		videoURL,
	}
}

// FetchVideo runs yt-dlp and reads the final path it prints after merging.
func (d *Downloader) FetchVideo(ctx context.Context, videoURL string, dir string, stem string) (string, error) {
	logger := media_archiver.Logger(ctx).Sugar().Named("ytdlp")
	args := d.args(videoURL, dir, stem)
	logger.Debugf("running %s %s", d.binaryPath, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, d.binaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if strings.Contains(stderr.String(), "Unsupported URL") {
			return "", fmt.Errorf("%w: %s", download.ErrUnsupported, lastLine(stderr.String()))
		}
		return "", fmt.Errorf("yt-dlp failed: %w, stderr: %s", err, lastLine(stderr.String()))
	}

	path := lastLine(stdout.String())
	if path == "" {
		return "", fmt.Errorf("yt-dlp returned no output path")
	}
	if filepath.Dir(path) != filepath.Clean(dir) || !strings.HasPrefix(filepath.Base(path), stem+".") {
		return "", fmt.Errorf("yt-dlp wrote to unexpected path %q", path)
	}
	return strings.TrimPrefix(filepath.Base(path), stem+"."), nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
