package media_archiver

import (
	"errors"
	"fmt"
)

var (
	// ErrClassification means a platform or media kind could not be determined.
	ErrClassification = errors.New("classification failed")
	// ErrUnsupportedPlatform is the ErrClassification raised when no platform matched the URL.
	ErrUnsupportedPlatform = fmt.Errorf("%w: unsupported or invalid URL", ErrClassification)
	// ErrFetch wraps any network or rendering failure of a single strategy.
	ErrFetch = errors.New("fetch failed")
	// ErrEmptyResult means a strategy ran but found nothing usable.
	ErrEmptyResult = errors.New("no usable media found")
	// ErrExhaustedFallback means every strategy configured for a request failed or came back empty.
	ErrExhaustedFallback = errors.New("all strategies exhausted")
	// ErrUnroutable means an acquired file is neither an image nor a video.
	ErrUnroutable = errors.New("file is not routable media")
)
