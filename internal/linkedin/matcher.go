package linkedin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"expertimport/internal/config"
)

// DefaultEndpoint is the Google Custom Search JSON API.
const DefaultEndpoint = "https://www.googleapis.com/customsearch/v1"

// Matcher uses a web search API (for example, Google Custom Search)
// to find public LinkedIn profile URLs for experts.
//
// You must configure a compliant search API and respect its terms
// of service and rate limits.
type Matcher struct {
	httpClient *http.Client
	logger     *zap.Logger

	// Endpoint defaults to DefaultEndpoint.
	Endpoint string

	searchAPIKey   string
	searchEngineID string
	searchDelay    time.Duration
	enabled        bool
}

// NewMatcher constructs a Matcher. If the search API key or engine ID are
// missing, the matcher is disabled and FindProfileURL returns "".
func NewMatcher(httpClient *http.Client, cfg config.Config, logger *zap.Logger) *Matcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	delay, err := cfg.SearchPause()
	if err != nil {
		delay = time.Second
	}

	return &Matcher{
		httpClient:     httpClient,
		logger:         logger,
		Endpoint:       DefaultEndpoint,
		searchAPIKey:   cfg.SearchAPIKey,
		searchEngineID: cfg.SearchEngineID,
		searchDelay:    delay,
		enabled:        cfg.SearchEnabled(),
	}
}

// Enabled reports whether a search API is configured.
func (m *Matcher) Enabled() bool {
	return m.enabled
}

// FindProfileURL issues queries like `"Name" "Company" site:linkedin.com`
// and returns the first linkedin.com/in/... result, or "".
func (m *Matcher) FindProfileURL(ctx context.Context, firstName, lastName, company string) (string, error) {
	if !m.enabled {
		return "", nil
	}

	name := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	company = strings.TrimSpace(company)
	if name == "" {
		return "", nil
	}

	var queries []string
	if company != "" {
		queries = append(queries, fmt.Sprintf("%q %q site:linkedin.com", name, company))
	}
	queries = append(queries, fmt.Sprintf("%q site:linkedin.com", name))
	queries = append(queries, fmt.Sprintf("%s site:linkedin.com", name))

	for idx, query := range queries {
		if idx > 0 && m.searchDelay > 0 {
			select {
			case <-time.After(m.searchDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		m.logger.Debug("linkedin: querying", zap.String("name", name), zap.Int("variant", idx+1), zap.String("query", query))

		link, err := m.searchOnce(ctx, query)
		if err != nil {
			return "", fmt.Errorf("search for %q: %w", name, err)
		}
		if link != "" {
			if idx > 0 {
				m.logger.Debug("linkedin: match came from fallback query", zap.String("name", name), zap.Int("variant", idx+1))
			}
			return link, nil
		}
	}

	m.logger.Info("linkedin: no linkedin.com/in results", zap.String("name", name))
	return "", nil
}

// googleSearchResponse is a minimal representation of the Google Custom Search
// JSON API response.
type googleSearchResponse struct {
	Items []struct {
		Link string `json:"link"`
	} `json:"items"`
}

func (m *Matcher) searchOnce(ctx context.Context, query string) (string, error) {
	u, err := url.Parse(m.Endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("key", m.searchAPIKey)
	q.Set("cx", m.searchEngineID)
	q.Set("q", query)
	q.Set("num", "10")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("search status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr googleSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", err
	}

	// Only personal profiles; company pages are no use as a contact link.
	for _, item := range sr.Items {
		link := strings.TrimSpace(item.Link)
		if strings.Contains(link, "linkedin.com/in/") {
			return link, nil
		}
	}
	return "", nil
}
