package acquire

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/media-archiver"
)

type fixedPlatform media_archiver.Platform

func (p fixedPlatform) Classify(context.Context, string) media_archiver.Platform {
	return media_archiver.Platform(p)
}

type fakeRouter struct {
	err    error
	routed []string
}

func (r *fakeRouter) Route(_ context.Context, file media_archiver.AcquiredFile) (media_archiver.AcquiredFile, error) {
	r.routed = append(r.routed, file.Path)
	if r.err != nil {
		return file, r.err
	}
	file.Path = filepath.Join("routed", filepath.Base(file.Path))
	file.Kind = file.Hint
	return file, nil
}

func TestPipeline_Run(t *testing.T) {
	assert := assert_.New(t)
	ctx := context.Background()

	f := newFixture(image1)
	router := &fakeRouter{}
	p := NewPipeline(fixedPlatform(media_archiver.PlatformFacebook), f.o, router)
	var observed []Outcome
	p.AddObserver(func(_ context.Context, req Request, outcome Outcome) {
		assert.Equal("https://www.facebook.com/photo/?fbid=1", req.URL)
		observed = append(observed, outcome)
	})

	req, outcome := p.Run(ctx, "https://www.facebook.com/photo/?fbid=1")
	assert.Equal(ShapeFacebookPhoto, req.Shape)
	if acquired, ok := outcome.(Acquired); assert.True(ok, outcome.String()) {
		assert.Equal(filepath.Join("routed", "1.jpg"), acquired.File.Path)
		assert.Equal(media_archiver.KindImage, acquired.File.Kind)
	}
	assert.Equal([]string{filepath.Join("images", "1.jpg")}, router.routed)
	assert.Equal([]Outcome{outcome}, observed)
	assert.NoError(Err(outcome))

	router.err = media_archiver.ErrUnroutable
	_, outcome = p.Run(ctx, "https://www.facebook.com/photo/?fbid=1")
	if failed, ok := outcome.(Failed); assert.True(ok, outcome.String()) {
		assert.ErrorIs(failed.Err, media_archiver.ErrUnroutable)
	}
	assert.Len(observed, 2)
}

func TestPipeline_Unsupported(t *testing.T) {
	assert := assert_.New(t)
	ctx := context.Background()

	f := newFixture(image1)
	router := &fakeRouter{}
	p := NewPipeline(fixedPlatform(media_archiver.PlatformUnknown), f.o, router)

	_, outcome := p.Run(ctx, "https://example.com/")
	assert.ErrorIs(Err(outcome), media_archiver.ErrUnsupportedPlatform)
	assert.ErrorIs(Err(outcome), media_archiver.ErrClassification, "unsupported is a classification failure")
	assert.Empty(router.routed)
	assert.Zero(f.scraper.calls)

	var observed *Request
	p.AddObserver(func(_ context.Context, req Request, _ Outcome) {
		observed = &req
	})
	_, outcome = p.Run(ctx, "http://[::1")
	assert.ErrorIs(Err(outcome), media_archiver.ErrClassification)
	if assert.NotNil(observed) {
		assert.Equal("http://[::1", observed.URL)
	}
}

func TestErr(t *testing.T) {
	assert := assert_.New(t)
	cause := errors.New("cause")

	assert.NoError(Err(Acquired{}))
	assert.ErrorIs(Err(NotFound{Reason: "nothing"}), media_archiver.ErrExhaustedFallback)
	assert.ErrorIs(Err(NotFound{Reason: "nothing", Err: cause}), cause)
	assert.ErrorIs(Err(Failed{Reason: "broken", Err: cause}), cause)
	assert.EqualError(Err(Failed{Reason: "broken"}), "broken")
	assert.Equal("failed: broken: cause", Failed{Reason: "broken", Err: cause}.String())
}
