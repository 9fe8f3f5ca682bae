package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/schollz/progressbar/v3"
	assert_ "github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/alanbriolat/media-archiver"
)

func runApp(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	app := newApp(context.Background(), zap.NewAtomicLevel())
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"media-archiver"}, args...))
	return out.String(), err
}

func TestBuild(t *testing.T) {
	assert := assert_.New(t)

	cfg := media_archiver.DefaultConfig()
	cfg.Renderer = "static"
	cfg.ScrapeHosts = []string{"example.org"}
	comp, err := build(cfg)
	if assert.NoError(err) {
		defer comp.close(context.Background())
		assert.Equal([]string{"facebook", "youtube", "scrape-hosts"}, comp.platforms.Registry.List())
		u, _ := url.Parse("https://blog.example.org/post")
		platform, ok := comp.platforms.Registry.Match(u)
		assert.True(ok)
		assert.Equal(media_archiver.PlatformGeneric, platform)
	}
	assert.Equal([]string{"facebook", "youtube"}, media_archiver.DefaultPlatformRegistry.List(),
		"default registry is not modified")

	cfg.Renderer = "netscape"
	_, err = build(cfg)
	assert.ErrorContains(err, "unknown renderer")

	cfg.Renderer = "static"
	cfg.VideoBackends = []string{"ytdlp", "vlc"}
	_, err = build(cfg)
	assert.ErrorContains(err, "unknown video backend")
}

func TestApp_Classify(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	assert.NoError(os.WriteFile(notes, []byte("hello"), 0644))

	out, err := runApp(t, "--config", filepath.Join(dir, "missing.toml"), "--renderer", "static", "classify", notes)
	assert.NoError(err)
	assert.Equal(notes+"\tkind=document\n", out)
}

func TestApp_History(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	config := filepath.Join(dir, "config.toml")
	assert.NoError(os.WriteFile(config, []byte("renderer = \"static\"\n"), 0644))

	_, err := runApp(t, "--config", config, "history")
	assert.Error(err, "history needs a path")

	out, err := runApp(t, "--config", config, "--history", filepath.Join(dir, "history.db"), "history")
	assert.NoError(err)
	assert.Empty(out)
}

func TestApp_AnalyzeText(t *testing.T) {
	assert := assert_.New(t)
	scorer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Paragraph string `json:"paragraph"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(req.Paragraph, "copied") {
			_, _ = w.Write([]byte(`{"label": "PLAGIARISM (exact)", "source": "https://example.org/src"}`))
		} else {
			_, _ = w.Write([]byte(`{"label": "ORIGINAL"}`))
		}
	}))
	defer scorer.Close()
	dir := t.TempDir()
	config := filepath.Join(dir, "missing.toml")

	out, err := runApp(t, "--config", config, "--renderer", "static",
		"analyze", "--scorer-url", scorer.URL, "--text", "my own words\n\ncopied from the web")
	assert.NoError(err)
	assert.Equal("paragraph 1: ORIGINAL\n"+
		"paragraph 2: PLAGIARISM (exact) (source: https://example.org/src)\n"+
		"text: 2 paragraphs, plagiarized: 50% (exact: 50%, paraphrase: 0%), original: 50%\n", out)

	_, err = runApp(t, "--config", config, "--renderer", "static", "analyze", "--scorer-url", scorer.URL, "--text")
	assert.Error(err, "text is required")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestProgress_DrawFailure(t *testing.T) {
	assert := assert_.New(t)
	bars := 0
	p := &progress{newBar: func() *progressbar.ProgressBar {
		bars++
		return progressbar.NewOptions(100, progressbar.OptionSetWriter(failingWriter{}))
	}}

	assert.NotPanics(func() { p.update(50, 100) })
	assert.Nil(p.bar)
	assert.NotPanics(func() { p.update(100, 100) })
	assert.Equal(1, bars, "a broken bar is not recreated")
	p.finish()
}
