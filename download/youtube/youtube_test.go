package youtube

import (
	"context"
	"net/url"
	"testing"

	"github.com/kkdai/youtube/v2"
	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/media-archiver/download"
)

func TestExtractVideoID(t *testing.T) {
	assert := assert_.New(t)

	valid := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":          "dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ&t=10":       "dQw4w9WgXcQ",
		"http://youtube.com/details?v=dQw4w9WgXcQ":             "dQw4w9WgXcQ",
		"https://www.youtube.com/v/dQw4w9WgXcQ":                "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ":           "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ?autoplay=1": "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                         "dQw4w9WgXcQ",
	}
	for raw, expected := range valid {
		u, _ := url.Parse(raw)
		id, err := extractVideoID(u)
		assert.NoError(err, raw)
		assert.Equal(expected, id, raw)
	}

	invalid := []string{
		"https://www.youtube.com/watch",
		"https://www.youtube.com/watch?v=",
		"https://www.youtube.com/channel/abc",
		"https://youtu.be/",
		"https://www.facebook.com/watch?v=123",
	}
	for _, raw := range invalid {
		u, _ := url.Parse(raw)
		_, err := extractVideoID(u)
		assert.Error(err, raw)
	}
}

func TestSelectFormat(t *testing.T) {
	assert := assert_.New(t)

	formats := youtube.FormatList{
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, AudioChannels: 2, Bitrate: 130000},
		{ItagNo: 137, MimeType: `video/mp4; codecs="avc1.640028"`, Height: 1080, Bitrate: 4000000},
		{ItagNo: 43, MimeType: `video/webm; codecs="vp8.0, vorbis"`, Height: 360, AudioChannels: 2, Bitrate: 600000},
		{ItagNo: 18, MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, Height: 360, AudioChannels: 2, Bitrate: 500000},
		{ItagNo: 17, MimeType: `video/3gpp; codecs="mp4v.20.3, mp4a.40.2"`, Height: 144, AudioChannels: 1, Bitrate: 80000},
	}
	format, err := selectFormat(formats)
	if assert.NoError(err) {
		assert.Equal(18, format.ItagNo, "tallest muxed format, mp4 preferred over higher bitrate webm")
	}

	formats = append(formats, youtube.Format{ItagNo: 22, MimeType: `video/webm`, Height: 720, AudioChannels: 2})
	format, err = selectFormat(formats)
	if assert.NoError(err) {
		assert.Equal(22, format.ItagNo, "height wins over container")
	}

	_, err = selectFormat(formats[:2])
	assert.ErrorIs(err, ErrNoFormat)
}

func TestExtensionOf(t *testing.T) {
	assert := assert_.New(t)

	assert.Equal("mp4", extensionOf(`video/mp4; codecs="avc1.42001E, mp4a.40.2"`))
	assert.Equal("webm", extensionOf("video/WEBM"))
	assert.Equal("mp4", extensionOf(""))
}

func TestDownloader_Unsupported(t *testing.T) {
	assert := assert_.New(t)

	d := New()
	assert.Equal("youtube", d.Name())
	_, err := d.FetchVideo(context.Background(), "https://www.facebook.com/watch?v=1", t.TempDir(), "stem")
	assert.ErrorIs(err, download.ErrUnsupported)
	_, err = d.FetchVideo(context.Background(), "::not a url", t.TempDir(), "stem")
	assert.ErrorIs(err, download.ErrUnsupported)
}
