package media_archiver

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that reads and writes as a string like "8s" in config files.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type Timeouts struct {
	Head     Duration `toml:"head"`
	Get      Duration `toml:"get"`
	Navigate Duration `toml:"navigate"`
	Ready    Duration `toml:"ready"`
	Selector Duration `toml:"selector"`
	// VideoFetch bounds a whole specialized video download, including muxing.
	VideoFetch Duration `toml:"video_fetch"`
}

type Config struct {
	// DataDir is the parent of the images and videos directories, unless they are set explicitly.
	DataDir  string `toml:"data_dir"`
	ImageDir string `toml:"image_dir"`
	VideoDir string `toml:"video_dir"`

	// Renderer is "chrome" (headless browser) or "static" (plain HTTP fetch, no scripts).
	Renderer  string `toml:"renderer"`
	UserAgent string `toml:"user_agent"`
	// VideoBackends lists the specialized video-fetch backends to try, in order: "ytdlp", "youtube".
	VideoBackends []string `toml:"video_backends"`
	YtDlpPath     string   `toml:"ytdlp_path"`
	// ScrapeHosts are hostname fragments of otherwise unsupported sites that may be scraped directly.
	ScrapeHosts []string `toml:"scrape_hosts"`

	Timeouts Timeouts `toml:"timeouts"`

	RequestsPerSecond float64 `toml:"requests_per_second"`
	RequestBurst      int     `toml:"request_burst"`

	// HistoryPath is the acquisition log database; empty disables it.
	HistoryPath string `toml:"history_path"`
	DetectorURL string `toml:"detector_url"`
	ScorerURL   string `toml:"scorer_url"`
}

func DefaultConfig() Config {
	return Config{
		DataDir:       "data",
		Renderer:      "chrome",
		VideoBackends: []string{"ytdlp", "youtube"},
		YtDlpPath:     "yt-dlp",
		Timeouts: Timeouts{
			Head:       Duration(8 * time.Second),
			Get:        Duration(30 * time.Second),
			Navigate:   Duration(60 * time.Second),
			Ready:      Duration(3 * time.Second),
			Selector:   Duration(20 * time.Second),
			VideoFetch: Duration(10 * time.Minute),
		},
		RequestsPerSecond: 10,
		RequestBurst:      10,
	}
}

// LoadConfig reads a TOML file over the defaults. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Images returns the directory for acquired images.
func (c *Config) Images() string {
	if c.ImageDir != "" {
		return c.ImageDir
	}
	return filepath.Join(c.DataDir, "images")
}

// Videos returns the directory for acquired videos.
func (c *Config) Videos() string {
	if c.VideoDir != "" {
		return c.VideoDir
	}
	return filepath.Join(c.DataDir, "videos")
}

// Dirs returns the directory layout described by the config.
func (c *Config) Dirs() Dirs {
	return Dirs{Images: c.Images(), Videos: c.Videos()}
}

// Dirs is the canonical directory for each routable Kind.
type Dirs struct {
	Images string
	Videos string
}

// For returns the directory for the kind, or "" if the kind isn't routable.
func (d Dirs) For(kind Kind) string {
	switch kind {
	case KindImage:
		return d.Images
	case KindVideo:
		return d.Videos
	default:
		return ""
	}
}

// Ensure creates both directories if absent.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Images, d.Videos} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
