package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Dependents policies.
const (
	// DependentsAlways re-creates property and timeline records on every run.
	DependentsAlways = "always"
	// DependentsOnce skips dependents for profiles the journal already covers.
	DependentsOnce = "once"
)

type Config struct {
	// StrapiURL is the base URL of the CMS, without the /api suffix.
	// For a local instance this is http://localhost:1337.
	StrapiURL string `yaml:"strapi_url"`

	// StrapiToken is the API token sent as Authorization: Bearer <token>.
	StrapiToken string `yaml:"strapi_token"`

	// Collection is the plural API id of the profile collection.
	Collection string `yaml:"collection"`

	// Workbook is the path of the .xlsx file and Sheet the sheet to read.
	Workbook string `yaml:"workbook"`
	Sheet    string `yaml:"sheet"`

	// ImagesDir holds profile pictures named after the person.
	// DefaultAvatar is a file name inside ImagesDir used when nothing matches.
	ImagesDir     string `yaml:"images_dir"`
	DefaultAvatar string `yaml:"default_avatar"`

	// MockDir optionally replaces the embedded mock bundles.
	MockDir string `yaml:"mock_dir"`

	// JournalPath is the SQLite run journal. Empty disables journaling.
	JournalPath string `yaml:"journal"`

	// Dependents is one of DependentsAlways or DependentsOnce.
	Dependents string `yaml:"dependents"`

	// RequestTimeout is the per-call ceiling, e.g. "30s".
	RequestTimeout string `yaml:"request_timeout"`

	// Seed makes synthesized data reproducible. Zero means unseeded.
	Seed uint64 `yaml:"seed"`

	// SearchAPIKey and SearchEngineID enable the Google Custom Search
	// lookup of real LinkedIn URLs. Both must be set.
	SearchAPIKey   string `yaml:"search_api_key"`
	SearchEngineID string `yaml:"search_engine_id"`

	// SearchDelay is the pause between search API requests.
	SearchDelay string `yaml:"search_delay"`

	// DryRun builds payloads without calling the CMS. Set from the CLI only.
	DryRun bool `yaml:"-"`
}

// Default returns the configuration the import script has always used.
func Default() Config {
	return Config{
		StrapiURL:      "http://localhost:1337",
		Collection:     "consultants",
		Workbook:       "expert_profile.xlsx",
		Sheet:          "Import Ready",
		ImagesDir:      "images",
		DefaultAvatar:  "default-avatar-icon-of-social-media-user-vector.jpg",
		Dependents:     DependentsAlways,
		RequestTimeout: "30s",
		SearchDelay:    "1s",
	}
}

// Load reads the optional YAML file at path on top of Default and then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// FromEnv loads configuration from defaults and environment variables only.
func FromEnv() (Config, error) {
	return Load("")
}

// LoadDotEnv loads variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString(&c.StrapiURL, "STRAPI_URL")
	setString(&c.StrapiToken, "STRAPI_TOKEN")
	setString(&c.Collection, "EXPERTIMPORT_COLLECTION")
	setString(&c.Workbook, "EXPERTIMPORT_WORKBOOK")
	setString(&c.Sheet, "EXPERTIMPORT_SHEET")
	setString(&c.ImagesDir, "EXPERTIMPORT_IMAGES_DIR")
	setString(&c.JournalPath, "EXPERTIMPORT_JOURNAL")
	setString(&c.SearchAPIKey, "EXPERTIMPORT_SEARCH_API_KEY")
	setString(&c.SearchEngineID, "EXPERTIMPORT_SEARCH_ENGINE_ID")

	if v := os.Getenv("EXPERTIMPORT_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			c.Seed = seed
		}
	}

	c.StrapiURL = strings.TrimRight(c.StrapiURL, "/")
}

// Validate reports the first setting that makes a run impossible.
func (c Config) Validate() error {
	if c.Workbook == "" {
		return errors.New("workbook path is not set")
	}
	if c.Sheet == "" {
		return errors.New("sheet name is not set")
	}
	if c.Collection == "" {
		return errors.New("collection is not set")
	}
	if c.Dependents != DependentsAlways && c.Dependents != DependentsOnce {
		return fmt.Errorf("dependents must be %q or %q, got %q", DependentsAlways, DependentsOnce, c.Dependents)
	}
	if c.Dependents == DependentsOnce && c.JournalPath == "" {
		return errors.New("dependents policy \"once\" needs a journal path")
	}
	if _, err := c.HTTPTimeout(); err != nil {
		return err
	}
	if c.DryRun {
		return nil
	}
	if c.StrapiURL == "" {
		return errors.New("STRAPI_URL is not set")
	}
	if c.StrapiToken == "" {
		return errors.New("STRAPI_TOKEN is not set")
	}
	return nil
}

// HTTPTimeout parses RequestTimeout. Zero is rejected since it would leave
// requests without a deadline.
func (c Config) HTTPTimeout() (time.Duration, error) {
	d, err := parsePositiveDuration("request_timeout", c.RequestTimeout, 30*time.Second)
	if err == nil && d == 0 {
		return 0, fmt.Errorf("invalid request_timeout %q: must be greater than zero", c.RequestTimeout)
	}
	return d, err
}

// SearchPause parses SearchDelay.
func (c Config) SearchPause() (time.Duration, error) {
	return parsePositiveDuration("search_delay", c.SearchDelay, time.Second)
}

func parsePositiveDuration(name, v string, fallback time.Duration) (time.Duration, error) {
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: negative", name, v)
	}
	return d, nil
}

// SearchEnabled reports whether LinkedIn lookup is configured.
func (c Config) SearchEnabled() bool {
	return c.SearchAPIKey != "" && c.SearchEngineID != ""
}

// NewHTTPClient returns an HTTP client whose Timeout is the per-call ceiling.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
