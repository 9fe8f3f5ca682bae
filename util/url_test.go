package util

import (
	"net/url"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestFilenameFromURLString(t *testing.T) {
	assert := assert_.New(t)

	name, err := FilenameFromURLString("https://scontent.fbcdn.net/v/t39/12345_n.jpg?stp=dst-jpg&oh=abc")
	assert.NoError(err)
	assert.Equal("12345_n.jpg", name)

	name, err = FilenameFromURLString("https://video.fbcdn.net/o1/v/t2/f2/m69/AQN%3Aclip")
	assert.NoError(err)
	assert.Equal("AQN_clip", name)

	_, err = FilenameFromURLString("https://example.com/")
	assert.ErrorIs(err, ErrNoFilename)
	_, err = FilenameFromURLString("https://example.com/a/..")
	assert.ErrorIs(err, ErrNoFilename)
	_, err = FilenameFromURL(nil)
	assert.ErrorIs(err, ErrNoFilename)
}

func TestPathSegments(t *testing.T) {
	assert := assert_.New(t)
	u, _ := url.Parse("https://www.facebook.com/user//photo/3/")
	assert.Equal([]string{"user", "photo", "3"}, PathSegments(u))
}
