package acquire

import (
	"context"
	"fmt"

	"github.com/alanbriolat/media-archiver"
)

type PlatformClassifier interface {
	Classify(ctx context.Context, rawURL string) media_archiver.Platform
}

// Router moves an acquired file to its final location, setting its final Kind.
type Router interface {
	Route(ctx context.Context, file media_archiver.AcquiredFile) (media_archiver.AcquiredFile, error)
}

// Observer is told about every finished request, e.g. to keep a history.
type Observer func(ctx context.Context, req Request, outcome Outcome)

// Pipeline runs the whole acquisition for a URL: platform classification, strategies, routing.
type Pipeline struct {
	platforms    PlatformClassifier
	orchestrator *Orchestrator
	router       Router
	observers    []Observer
}

func NewPipeline(platforms PlatformClassifier, orchestrator *Orchestrator, router Router) *Pipeline {
	return &Pipeline{
		platforms:    platforms,
		orchestrator: orchestrator,
		router:       router,
	}
}

func (p *Pipeline) AddObserver(o Observer) {
	p.observers = append(p.observers, o)
}

// Run acquires and routes the media at rawURL. Every failure is reported through the Outcome.
func (p *Pipeline) Run(ctx context.Context, rawURL string) (Request, Outcome) {
	logger := media_archiver.Logger(ctx).Sugar().Named("pipeline")
	platform := p.platforms.Classify(ctx, rawURL)
	req, err := NewRequest(rawURL, platform)
	if err != nil {
		req.URL = rawURL
		outcome := Failed{Reason: "invalid URL", Err: err}
		p.notify(ctx, req, outcome)
		return req, outcome
	}

	outcome := p.orchestrator.Acquire(ctx, req)
	if acquired, ok := outcome.(Acquired); ok {
		routed, err := p.router.Route(ctx, acquired.File)
		if err != nil {
			logger.Warnf("failed to route %s: %v", acquired.File, err)
			outcome = Failed{Reason: fmt.Sprintf("cannot route %s", acquired.File.Path), Err: err}
		} else {
			outcome = Acquired{File: routed}
		}
	}
	logger.Infof("%s: %s", req.URL, outcome)
	p.notify(ctx, req, outcome)
	return req, outcome
}

func (p *Pipeline) notify(ctx context.Context, req Request, outcome Outcome) {
	for _, o := range p.observers {
		o(ctx, req, outcome)
	}
}
