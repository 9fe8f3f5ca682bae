package media_archiver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/alanbriolat/media-archiver/generic"
	"github.com/alanbriolat/media-archiver/render"
)

var (
	ErrDuplicateRule = errors.New("duplicate platform rule name")
	ErrInvalidRule   = errors.New("invalid platform rule")
	ErrUnknownRule   = errors.New("unknown platform rule")
)

var (
	PriorityHighest int16 = math.MinInt16
	PriorityDefault int16 = 0
	PriorityLowest  int16 = math.MaxInt16
)

// Platform is the logical source site of a URL, which drives the choice of acquisition strategy.
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformYouTube
	PlatformFacebook
	// PlatformGeneric is a site with no dedicated handling, explicitly allowed for direct scraping.
	PlatformGeneric
)

func (p Platform) String() string {
	switch p {
	case PlatformYouTube:
		return "youtube"
	case PlatformFacebook:
		return "facebook"
	case PlatformGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// ParsePlatform is the inverse of Platform.String.
func ParsePlatform(s string) (Platform, error) {
	for _, p := range []Platform{PlatformYouTube, PlatformFacebook, PlatformGeneric} {
		if strings.EqualFold(s, p.String()) {
			return p, nil
		}
	}
	return PlatformUnknown, fmt.Errorf("%w: unknown platform %q", ErrClassification, s)
}

type HostMatchFunc = func(*url.URL) bool

// HostContains matches URLs whose lowercased hostname contains any of the given fragments.
func HostContains(fragments ...string) HostMatchFunc {
	return func(u *url.URL) bool {
		host := strings.ToLower(u.Hostname())
		if host == "" {
			return false
		}
		for _, f := range fragments {
			if strings.Contains(host, strings.ToLower(f)) {
				return true
			}
		}
		return false
	}
}

// A PlatformRule maps URLs to a Platform by hostname.
type PlatformRule struct {
	Name     string
	Platform Platform
	Match    HostMatchFunc
	// Priority of the rule, lower (including negative) means matching earlier.
	Priority int16
}

func (r PlatformRule) WithName(name string) PlatformRule {
	r.Name = name
	return r
}

func (r PlatformRule) WithPriority(priority int16) PlatformRule {
	r.Priority = priority
	return r
}

// A PlatformRegistry is a collection of PlatformRule instances which can be used to match URLs.
type PlatformRegistry struct {
	rules   []*PlatformRule
	ruleMap map[string]*PlatformRule
}

// Add registers a PlatformRule. PlatformRule.Name and PlatformRule.Match must be set, PlatformRule.Platform must
// not be PlatformUnknown, and PlatformRule.Name must be unique within the PlatformRegistry.
func (r *PlatformRegistry) Add(rule PlatformRule) error {
	if r.ruleMap == nil {
		r.ruleMap = make(map[string]*PlatformRule)
	}
	if rule.Name == "" || rule.Match == nil || rule.Platform == PlatformUnknown {
		return ErrInvalidRule
	}
	if _, ok := r.ruleMap[rule.Name]; ok {
		return ErrDuplicateRule
	}
	r.ruleMap[rule.Name] = &rule
	r.rules = append(r.rules, r.ruleMap[rule.Name])
	r.sortByPriority()
	return nil
}

// Create is a shortcut for Add(PlatformRule{Name: ..., Platform: ..., Match: ...}).
func (r *PlatformRegistry) Create(name string, platform Platform, f HostMatchFunc) error {
	return r.Add(PlatformRule{
		Name:     name,
		Platform: platform,
		Match:    f,
	})
}

// MustAdd wraps Add but panics if there is an error.
func (r *PlatformRegistry) MustAdd(rule PlatformRule) {
	generic.Unwrap_(r.Add(rule))
}

// MustCreate wraps Create but panics if there is an error.
func (r *PlatformRegistry) MustCreate(name string, platform Platform, f HostMatchFunc) {
	generic.Unwrap_(r.Create(name, platform, f))
}

// SetPriority adjusts the priority of a named PlatformRule.
func (r *PlatformRegistry) SetPriority(name string, priority int16) error {
	if rule, ok := r.ruleMap[name]; ok {
		rule.Priority = priority
		r.sortByPriority()
		return nil
	} else {
		return ErrUnknownRule
	}
}

// List returns the names of registered rules in priority order.
func (r *PlatformRegistry) List() []string {
	names := make([]string, 0, len(r.rules))
	for _, rule := range r.rules {
		names = append(names, rule.Name)
	}
	return names
}

// Clone returns an independent copy, so that callers can extend the DefaultPlatformRegistry locally.
func (r *PlatformRegistry) Clone() *PlatformRegistry {
	clone := &PlatformRegistry{}
	for _, rule := range r.rules {
		clone.MustAdd(*rule)
	}
	return clone
}

// Match returns the Platform of the first rule (in priority order) that matches the URL.
func (r *PlatformRegistry) Match(u *url.URL) (Platform, bool) {
	if u == nil {
		return PlatformUnknown, false
	}
	for _, rule := range r.rules {
		if rule.Match(u) {
			return rule.Platform, true
		}
	}
	return PlatformUnknown, false
}

func (r *PlatformRegistry) sortByPriority() {
	sort.SliceStable(r.rules, func(i, j int) bool {
		return r.rules[i].Priority < r.rules[j].Priority
	})
}

var DefaultPlatformRegistry PlatformRegistry

func init() {
	DefaultPlatformRegistry.MustCreate("facebook", PlatformFacebook, HostContains("facebook.com"))
	DefaultPlatformRegistry.MustCreate("youtube", PlatformYouTube, HostContains("youtube.com", "youtu.be"))
}

type siteMarker struct {
	selector string
	platform Platform
}

// Metadata tags that identify a platform when the hostname doesn't, e.g. for custom domains or short links.
var siteMarkers = []siteMarker{
	{"meta[property='og:site_name'][content='Facebook']", PlatformFacebook},
	{"meta[itemprop='name'][content='YouTube']", PlatformYouTube},
}

// PlatformClassifier determines the Platform of a URL, first by hostname rules and then by rendering the page and
// looking for known metadata markers.
type PlatformClassifier struct {
	Registry *PlatformRegistry
	// Renderer is used for the metadata fallback; if nil, only hostname rules apply.
	Renderer        render.Renderer
	NavigateTimeout time.Duration
	ReadyTimeout    time.Duration
}

func NewPlatformClassifier(registry *PlatformRegistry, renderer render.Renderer) *PlatformClassifier {
	if registry == nil {
		registry = &DefaultPlatformRegistry
	}
	return &PlatformClassifier{
		Registry:        registry,
		Renderer:        renderer,
		NavigateTimeout: 60 * time.Second,
		ReadyTimeout:    3 * time.Second,
	}
}

// Classify returns PlatformUnknown if nothing matched; rendering failures count as no match.
func (c *PlatformClassifier) Classify(ctx context.Context, rawURL string) Platform {
	logger := Logger(ctx).Sugar()
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Hostname() == "" {
		logger.Debugf("not a classifiable URL: %q", rawURL)
		return PlatformUnknown
	}
	if platform, ok := c.Registry.Match(parsed); ok {
		logger.Debugf("detected platform by hostname: %s", platform)
		return platform
	}
	if c.Renderer == nil {
		return PlatformUnknown
	}
	platform, err := c.sniff(ctx, parsed.String())
	if err != nil {
		logger.Warnf("failed metadata sniff: %v", err)
		return PlatformUnknown
	}
	if platform != PlatformUnknown {
		logger.Debugf("detected platform by page metadata: %s", platform)
	}
	return platform
}

func (c *PlatformClassifier) sniff(ctx context.Context, pageURL string) (_ Platform, err error) {
	session, err := c.Renderer.Open(ctx)
	if err != nil {
		return PlatformUnknown, err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			Logger(ctx).Sugar().Debugf("failed to close render session: %v", closeErr)
		}
	}()

	if err = session.Navigate(ctx, pageURL, c.NavigateTimeout); err != nil {
		return PlatformUnknown, err
	}
	// Readiness is best-effort: a page without any meta tags just won't match
	_ = session.WaitFor(ctx, "meta", c.ReadyTimeout)
	for _, marker := range siteMarkers {
		elements, err := session.QueryAll(ctx, marker.selector)
		if err != nil {
			return PlatformUnknown, err
		}
		if len(elements) > 0 {
			return marker.platform, nil
		}
	}
	return PlatformUnknown, nil
}
