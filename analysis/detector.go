// Package analysis runs downstream analysis on acquired files: authenticity detection for images and videos, and
// a paragraph-by-paragraph originality scan for documents.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/internal/httpclient"
)

// Verdict is a detector's judgement of one image or video.
type Verdict struct {
	Label    string  `json:"label"`
	Realism  float64 `json:"realism"`
	Deepfake float64 `json:"deepfake"`
}

func (v Verdict) String() string {
	return fmt.Sprintf("%s (realism: %.4f, deepfake: %.4f)", v.Label, v.Realism, v.Deepfake)
}

type Detector interface {
	Detect(ctx context.Context, path string, kind media_archiver.Kind) (Verdict, error)
}

// Poster is the part of httpclient.Client used by remote collaborators.
type Poster interface {
	Post(ctx context.Context, url string, contentType string, body io.Reader, timeout time.Duration) (*httpclient.Response, error)
}

// RemoteDetector uploads the file to an HTTP endpoint as multipart form data (fields "kind" and "file") and reads
// a JSON Verdict back.
type RemoteDetector struct {
	client   Poster
	endpoint string
	timeout  time.Duration
}

func NewRemoteDetector(client Poster, endpoint string, timeout time.Duration) *RemoteDetector {
	return &RemoteDetector{client: client, endpoint: endpoint, timeout: timeout}
}

func (d *RemoteDetector) Detect(ctx context.Context, path string, kind media_archiver.Kind) (Verdict, error) {
	var verdict Verdict
	f, err := os.Open(path)
	if err != nil {
		return verdict, err
	}
	defer f.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("kind", kind.String()); err != nil {
		return verdict, err
	}
	part, err := form.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return verdict, err
	}
	if _, err := io.Copy(part, media_archiver.NewContextReader(ctx, f)); err != nil {
		return verdict, err
	}
	if err := form.Close(); err != nil {
		return verdict, err
	}

	resp, err := d.client.Post(ctx, d.endpoint, form.FormDataContentType(), &body, d.timeout)
	if err != nil {
		return verdict, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Close()
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return verdict, fmt.Errorf("invalid detector response: %w", err)
	}
	return verdict, nil
}
