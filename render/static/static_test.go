package static

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/media-archiver/internal/httpclient"
	"github.com/alanbriolat/media-archiver/render"
)

const page = `<!doctype html>
<html><head><meta property="og:site_name" content="Facebook"></head>
<body>
<video src="https://video.fbcdn.net/v/clip.mp4"></video>
<img data-visualcompletion="media-vc-image" src="https://scontent.fbcdn.net/v/1.jpg">
<img alt="no source">
</body></html>`

func TestSession(t *testing.T) {
	assert := assert_.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/post" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	ctx := context.Background()
	r := New(httpclient.New(httpclient.Options{}))
	s, err := r.Open(ctx)
	assert.NoError(err)

	assert.NoError(s.Navigate(ctx, server.URL+"/post", time.Second))
	assert.NoError(s.WaitFor(ctx, "video, img", time.Second))
	assert.ErrorIs(s.WaitFor(ctx, "audio", time.Second), render.ErrSelectorTimeout)

	elements, err := s.QueryAll(ctx, "meta[property='og:site_name'][content='Facebook']")
	assert.NoError(err)
	assert.Len(elements, 1)

	elements, err = s.QueryAll(ctx, "img")
	assert.NoError(err)
	if assert.Len(elements, 2) {
		src, ok := elements[0].Attribute("src").Get()
		assert.True(ok)
		assert.Equal("https://scontent.fbcdn.net/v/1.jpg", src)
		assert.True(elements[1].Attribute("src").IsNone())
	}

	assert.NoError(s.Close())
	assert.NoError(s.Close())
	_, err = s.QueryAll(ctx, "img")
	assert.ErrorIs(err, render.ErrClosed)

	s, _ = r.Open(ctx)
	defer s.Close()
	assert.ErrorIs(s.Navigate(ctx, server.URL+"/missing", time.Second), render.ErrNavigation)
}
