package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/media-archiver"
)

type Label string

const (
	LabelOriginal   Label = "ORIGINAL"
	LabelExact      Label = "PLAGIARISM (exact)"
	LabelParaphrase Label = "PLAGIARISM (paraphrase)"
)

func (l Label) IsPlagiarism() bool {
	return strings.HasPrefix(string(l), "PLAGIARISM")
}

// Score is the judgement of one paragraph; Source is the matching web page, if any.
type Score struct {
	Paragraph string `json:"paragraph"`
	Label     Label  `json:"label"`
	Source    string `json:"source,omitempty"`
}

type Scorer interface {
	Score(ctx context.Context, paragraph string) (Score, error)
}

// RemoteScorer posts {"paragraph": ...} as JSON and reads a Score back.
type RemoteScorer struct {
	client   Poster
	endpoint string
	timeout  time.Duration
}

func NewRemoteScorer(client Poster, endpoint string, timeout time.Duration) *RemoteScorer {
	return &RemoteScorer{client: client, endpoint: endpoint, timeout: timeout}
}

func (s *RemoteScorer) Score(ctx context.Context, paragraph string) (Score, error) {
	score := Score{Paragraph: paragraph, Label: LabelOriginal}
	request, err := json.Marshal(map[string]string{"paragraph": paragraph})
	if err != nil {
		return score, err
	}
	resp, err := s.client.Post(ctx, s.endpoint, "application/json", bytes.NewReader(request), s.timeout)
	if err != nil {
		return score, fmt.Errorf("scorer request failed: %w", err)
	}
	defer resp.Close()
	var result struct {
		Label  Label  `json:"label"`
		Source string `json:"source"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return score, fmt.Errorf("invalid scorer response: %w", err)
	}
	switch result.Label {
	case LabelOriginal, LabelExact, LabelParaphrase:
	default:
		return score, fmt.Errorf("invalid scorer response: unknown label %q", result.Label)
	}
	score.Label = result.Label
	score.Source = result.Source
	return score, nil
}

type Summary struct {
	Total          int `json:"total"`
	Plagiarized    int `json:"plagiarized"`
	Exact          int `json:"exact"`
	Paraphrase     int `json:"paraphrase"`
	Original       int `json:"original"`
	PlagiarizedPct int `json:"plag_percent"`
	ExactPct       int `json:"exact_percent"`
	ParaphrasePct  int `json:"paraphrase_percent"`
	OriginalPct    int `json:"original_percent"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d paragraphs, plagiarized: %d%% (exact: %d%%, paraphrase: %d%%), original: %d%%",
		s.Total, s.PlagiarizedPct, s.ExactPct, s.ParaphrasePct, s.OriginalPct)
}

// Summarize counts labels. Percentages are of the total, rounded half to even.
func Summarize(scores []Score) Summary {
	var s Summary
	s.Total = len(scores)
	for _, score := range scores {
		switch score.Label {
		case LabelExact:
			s.Exact++
		case LabelParaphrase:
			s.Paraphrase++
		}
		if score.Label.IsPlagiarism() {
			s.Plagiarized++
		}
	}
	s.Original = s.Total - s.Plagiarized
	s.PlagiarizedPct = percent(s.Plagiarized, s.Total)
	s.ExactPct = percent(s.Exact, s.Total)
	s.ParaphrasePct = percent(s.Paraphrase, s.Total)
	s.OriginalPct = percent(s.Original, s.Total)
	return s
}

func percent(n int, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.RoundToEven(float64(n) / float64(total) * 100))
}

// Report is a whole document scan.
type Report struct {
	Scores  []Score `json:"paragraphs"`
	Summary Summary `json:"summary"`
}

// ScanParagraphs scores every paragraph in order. A paragraph that can't be scored counts as original; the errors
// are returned alongside the report, which is only partial if ctx was cancelled.
func ScanParagraphs(ctx context.Context, scorer Scorer, paragraphs []string) (Report, error) {
	logger := media_archiver.Logger(ctx).Sugar().Named("scan")
	var report Report
	var errs *multierror.Error
	for i, paragraph := range paragraphs {
		if err := ctx.Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}
		score, err := scorer.Score(ctx, paragraph)
		if err != nil {
			logger.Warnf("failed to score paragraph %d: %v", i+1, err)
			errs = multierror.Append(errs, fmt.Errorf("paragraph %d: %w", i+1, err))
			score = Score{Paragraph: paragraph, Label: LabelOriginal}
		}
		logger.Debugf("paragraph %d: %s", i+1, score.Label)
		report.Scores = append(report.Scores, score)
	}
	report.Summary = Summarize(report.Scores)
	return report, errs.ErrorOrNil()
}
