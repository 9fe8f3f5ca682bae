package acquire

import (
	"context"
	"errors"
	"path"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/media-archiver"
)

type fakeScraper struct {
	links []string
	calls int
}

func (s *fakeScraper) Scrape(context.Context, string) []string {
	s.calls++
	return s.links
}

// fakeClassifier classifies by extension.
type fakeClassifier struct {
	calls int
}

func (c *fakeClassifier) ClassifyURL(_ context.Context, rawURL string) media_archiver.Kind {
	c.calls++
	switch path.Ext(rawURL) {
	case ".mp4":
		return media_archiver.KindVideo
	case ".jpg":
		return media_archiver.KindImage
	default:
		return media_archiver.KindUnknown
	}
}

type fakeVideo struct {
	err   error
	calls []string
}

func (v *fakeVideo) Fetch(_ context.Context, platform media_archiver.Platform, url string, dir string) (media_archiver.AcquiredFile, error) {
	v.calls = append(v.calls, url)
	if v.err != nil {
		return media_archiver.AcquiredFile{}, v.err
	}
	return media_archiver.AcquiredFile{
		Path: filepath.Join(dir, platform.String()+"_1.mp4"),
		Hint: media_archiver.KindVideo,
	}, nil
}

type fakeDownload struct {
	err   error
	calls []string
}

func (d *fakeDownload) Fetch(_ context.Context, mediaURL string, dir string) (media_archiver.AcquiredFile, error) {
	d.calls = append(d.calls, mediaURL)
	if d.err != nil {
		return media_archiver.AcquiredFile{}, d.err
	}
	return media_archiver.AcquiredFile{Path: filepath.Join(dir, path.Base(mediaURL))}, nil
}

type fixture struct {
	scraper    *fakeScraper
	classifier *fakeClassifier
	video      *fakeVideo
	download   *fakeDownload
	o          *Orchestrator
}

var testDirs = media_archiver.Dirs{Images: "images", Videos: "videos"}

func newFixture(links ...string) *fixture {
	f := &fixture{
		scraper:    &fakeScraper{links: links},
		classifier: &fakeClassifier{},
		video:      &fakeVideo{},
		download:   &fakeDownload{},
	}
	f.o = NewOrchestrator(testDirs, f.scraper, f.classifier, f.video, f.download)
	return f
}

func (f *fixture) acquire(t *testing.T, rawURL string, platform media_archiver.Platform) Outcome {
	req, err := NewRequest(rawURL, platform)
	if err != nil {
		t.Fatal(err)
	}
	return f.o.Acquire(context.Background(), req)
}

const (
	image1 = "https://scontent.fbcdn.net/v/1.jpg"
	image2 = "https://scontent.fbcdn.net/v/2.jpg"
	image3 = "https://scontent.fbcdn.net/v/3.jpg"
	image4 = "https://scontent.fbcdn.net/v/4.jpg"
	image5 = "https://scontent.fbcdn.net/v/5.jpg"
	video1 = "https://video.fbcdn.net/v/1.mp4"
	video2 = "https://video.fbcdn.net/v/2.mp4"
	other  = "https://scontent.fbcdn.net/v/sprite.svg"
)

func TestOrchestrator_Unknown(t *testing.T) {
	assert := assert_.New(t)
	f := newFixture(image1)

	outcome := f.acquire(t, "https://example.com/whatever", media_archiver.PlatformUnknown)
	if failed, ok := outcome.(Failed); assert.True(ok, outcome.String()) {
		assert.ErrorIs(failed.Err, media_archiver.ErrUnsupportedPlatform)
	}
	assert.Empty(f.video.calls)
	assert.Empty(f.download.calls)
	assert.Zero(f.scraper.calls)
	assert.Zero(f.classifier.calls)
}

func TestOrchestrator_YouTube(t *testing.T) {
	assert := assert_.New(t)

	f := newFixture(image1)
	outcome := f.acquire(t, "https://youtu.be/abc", media_archiver.PlatformYouTube)
	if acquired, ok := outcome.(Acquired); assert.True(ok, outcome.String()) {
		assert.Equal(filepath.Join("videos", "youtube_1.mp4"), acquired.File.Path)
	}
	assert.Equal([]string{"https://youtu.be/abc"}, f.video.calls)

	f = newFixture(image1)
	f.video.err = errors.New("video unavailable")
	outcome = f.acquire(t, "https://youtu.be/abc", media_archiver.PlatformYouTube)
	if failed, ok := outcome.(Failed); assert.True(ok, outcome.String()) {
		assert.ErrorIs(failed.Err, f.video.err)
	}
	assert.Zero(f.scraper.calls, "no scraping fallback for youtube")
	assert.Empty(f.download.calls)
}

func TestOrchestrator_FacebookVideo(t *testing.T) {
	assert := assert_.New(t)
	const reel = "https://www.facebook.com/reel/123"

	f := newFixture(image1, video1)
	outcome := f.acquire(t, reel, media_archiver.PlatformFacebook)
	if acquired, ok := outcome.(Acquired); assert.True(ok, outcome.String()) {
		assert.Equal(filepath.Join("videos", "facebook_1.mp4"), acquired.File.Path)
	}
	assert.Zero(f.scraper.calls, "no scraping after a successful video fetch")

	// Fallback prefers video over an earlier image
	f = newFixture(image1, video1, video2)
	f.video.err = errors.New("no extractor")
	outcome = f.acquire(t, reel, media_archiver.PlatformFacebook)
	if acquired, ok := outcome.(Acquired); assert.True(ok, outcome.String()) {
		assert.Equal(filepath.Join("videos", "1.mp4"), acquired.File.Path)
		assert.Equal(media_archiver.KindVideo, acquired.File.Hint)
	}
	assert.Equal([]string{video1}, f.download.calls)

	f = newFixture(other, image2, image1)
	f.video.err = errors.New("no extractor")
	outcome = f.acquire(t, reel, media_archiver.PlatformFacebook)
	if acquired, ok := outcome.(Acquired); assert.True(ok, outcome.String()) {
		assert.Equal(filepath.Join("images", "2.jpg"), acquired.File.Path)
	}

	// Video fetch failure and an empty scrape is a normal "not found"
	f = newFixture()
	f.video.err = errors.New("no extractor")
	outcome = f.acquire(t, reel, media_archiver.PlatformFacebook)
	if notFound, ok := outcome.(NotFound); assert.True(ok, outcome.String()) {
		assert.ErrorIs(notFound.Err, media_archiver.ErrExhaustedFallback)
		assert.ErrorIs(notFound.Err, media_archiver.ErrEmptyResult)
		assert.ErrorIs(notFound.Err, f.video.err)
		assert.ErrorIs(Err(outcome), media_archiver.ErrExhaustedFallback)
	}
	assert.Empty(f.download.calls)

	// Only unclassifiable candidates counts as empty too
	f = newFixture(other)
	f.video.err = errors.New("no extractor")
	_, ok := f.acquire(t, reel, media_archiver.PlatformFacebook).(NotFound)
	assert.True(ok)

	// Download failure of the chosen candidate is final
	f = newFixture(video1, video2)
	f.video.err = errors.New("no extractor")
	f.download.err = errors.New("connection reset")
	outcome = f.acquire(t, reel, media_archiver.PlatformFacebook)
	if failed, ok := outcome.(Failed); assert.True(ok, outcome.String()) {
		assert.ErrorIs(failed.Err, f.download.err)
		assert.ErrorIs(failed.Err, f.video.err)
	}
	assert.Equal([]string{video1}, f.download.calls)
}

func TestOrchestrator_FacebookPhoto(t *testing.T) {
	assert := assert_.New(t)

	f := newFixture(image1, image2, image3, image4, image5)
	outcome := f.acquire(t, "https://www.facebook.com/someone/photo/3", media_archiver.PlatformFacebook)
	if acquired, ok := outcome.(Acquired); assert.True(ok, outcome.String()) {
		assert.Equal(filepath.Join("images", "3.jpg"), acquired.File.Path, "zero-based index 2")
		assert.Equal(media_archiver.KindImage, acquired.File.Hint)
	}
	assert.Empty(f.video.calls, "photo pages go straight to scraping")

	f = newFixture(image1)
	outcome = f.acquire(t, "https://www.facebook.com/someone/photo/3", media_archiver.PlatformFacebook)
	if acquired, ok := outcome.(Acquired); assert.True(ok, outcome.String()) {
		assert.Equal(filepath.Join("images", "1.jpg"), acquired.File.Path, "out of range falls back to the first")
	}

	f = newFixture(image1, image2)
	outcome = f.acquire(t, "https://www.facebook.com/photo/?fbid=999", media_archiver.PlatformFacebook)
	if acquired, ok := outcome.(Acquired); assert.True(ok, outcome.String()) {
		assert.Equal(filepath.Join("images", "1.jpg"), acquired.File.Path)
	}

	f = newFixture(image1, image2, video2, image3, video1)
	outcome = f.acquire(t, "https://www.facebook.com/someone/photo/2", media_archiver.PlatformFacebook)
	if acquired, ok := outcome.(Acquired); assert.True(ok, outcome.String()) {
		assert.Equal(filepath.Join("videos", "2.mp4"), acquired.File.Path, "first video beats any image")
	}

	f = newFixture()
	outcome = f.acquire(t, "https://www.facebook.com/someone/photo/2", media_archiver.PlatformFacebook)
	if notFound, ok := outcome.(NotFound); assert.True(ok, outcome.String()) {
		assert.ErrorIs(notFound.Err, media_archiver.ErrEmptyResult)
		assert.NotErrorIs(notFound.Err, media_archiver.ErrExhaustedFallback)
	}
}

func TestOrchestrator_Site(t *testing.T) {
	assert := assert_.New(t)
	const page = "https://blog.example.com/posts/1"

	f := newFixture(image2, image1)
	outcome := f.acquire(t, page, media_archiver.PlatformGeneric)
	if acquired, ok := outcome.(Acquired); assert.True(ok, outcome.String()) {
		assert.Equal(filepath.Join("images", "2.jpg"), acquired.File.Path)
	}

	f = newFixture(other, image1, video2, video1)
	outcome = f.acquire(t, page, media_archiver.PlatformGeneric)
	if acquired, ok := outcome.(Acquired); assert.True(ok, outcome.String()) {
		assert.Equal(filepath.Join("videos", "2.mp4"), acquired.File.Path, "mixed types use the global tie-break")
	}

	f = newFixture(other)
	_, ok := f.acquire(t, page, media_archiver.PlatformGeneric).(NotFound)
	assert.True(ok)

	// A separate scraper for generic sites
	site := &fakeScraper{links: []string{video1}}
	f = newFixture(image1)
	f.o = NewOrchestrator(testDirs, f.scraper, f.classifier, f.video, f.download, WithSiteScraper(site))
	outcome = f.acquire(t, page, media_archiver.PlatformGeneric)
	if acquired, ok := outcome.(Acquired); assert.True(ok, outcome.String()) {
		assert.Equal(filepath.Join("videos", "1.mp4"), acquired.File.Path)
	}
	assert.Equal(1, site.calls)
	assert.Zero(f.scraper.calls)
}
