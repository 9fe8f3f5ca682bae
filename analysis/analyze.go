package analysis

import (
	"context"
	"fmt"

	"github.com/alanbriolat/media-archiver"
	"github.com/alanbriolat/media-archiver/document"
	"github.com/alanbriolat/media-archiver/mediatype"
)

// Result of analysing one file (or pasted text, with no Path): Verdict for media, Report for documents.
type Result struct {
	Path    string              `json:"file,omitempty"`
	Kind    media_archiver.Kind `json:"-"`
	Verdict *Verdict            `json:"verdict,omitempty"`
	Report  *Report             `json:"report,omitempty"`
}

// Analyzer dispatches a local file to the analysis for its kind. Either collaborator may be nil, in which case
// files needing it are rejected.
type Analyzer struct {
	Detector Detector
	Scorer   Scorer
}

func (a *Analyzer) Analyze(ctx context.Context, path string) (Result, error) {
	kind := mediatype.ClassifyPath(path)
	result := Result{Path: path, Kind: kind}
	switch kind {
	case media_archiver.KindImage, media_archiver.KindVideo:
		if a.Detector == nil {
			return result, fmt.Errorf("no detector configured for %s", kind)
		}
		verdict, err := a.Detector.Detect(ctx, path, kind)
		if err != nil {
			return result, err
		}
		result.Verdict = &verdict
		return result, nil
	case media_archiver.KindDocument:
		if a.Scorer == nil {
			return result, fmt.Errorf("no scorer configured for %s", kind)
		}
		paragraphs, err := document.Extract(path)
		if err != nil {
			return result, err
		}
		report, err := ScanParagraphs(ctx, a.Scorer, paragraphs)
		result.Report = &report
		return result, err
	default:
		return result, fmt.Errorf("%w: unsupported file type for %s", media_archiver.ErrClassification, path)
	}
}

// AnalyzeText scans pasted text like a document, one paragraph per non-blank line.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (Result, error) {
	result := Result{Kind: media_archiver.KindDocument}
	if a.Scorer == nil {
		return result, fmt.Errorf("no scorer configured for text")
	}
	paragraphs := document.SplitParagraphs(text)
	if len(paragraphs) == 0 {
		return result, fmt.Errorf("%w: no text to scan", document.ErrInvalidDocument)
	}
	report, err := ScanParagraphs(ctx, a.Scorer, paragraphs)
	result.Report = &report
	return result, err
}
