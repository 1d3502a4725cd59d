// Package update checks GitHub releases for newer clipdeck builds.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// GitHubRepo is the repository to check for updates
	GitHubRepo = "mindmorass/clipdeck"

	// DefaultAPIBase is the GitHub REST endpoint
	DefaultAPIBase = "https://api.github.com"

	// CheckInterval is how often to check for updates
	CheckInterval = 6 * time.Hour
)

// Release represents a GitHub release
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	PublishedAt time.Time `json:"published_at"`
	Prerelease  bool      `json:"prerelease"`
	Draft       bool      `json:"draft"`
}

// Info describes the outcome of an update check
type Info struct {
	Available      bool
	CurrentVersion string
	LatestVersion  string
	ReleaseURL     string
	ReleaseNotes   string
	PublishedAt    time.Time
}

// Option customizes a Checker
type Option func(*Checker)

// WithAPIBase points the checker at another GitHub API host
func WithAPIBase(base string) Option {
	return func(c *Checker) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

// Checker handles checking for updates
type Checker struct {
	currentVersion string
	apiBase        string
	httpClient     *http.Client
	logger         *zap.Logger

	mu         sync.Mutex
	lastCheck  time.Time
	lastResult *Info
}

// NewChecker creates a new update checker
func NewChecker(currentVersion string, opts ...Option) *Checker {
	c := &Checker{
		currentVersion: currentVersion,
		apiBase:        DefaultAPIBase,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check fetches the latest release from GitHub
func (c *Checker) Check(ctx context.Context) (*Info, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.apiBase, GitHubRepo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "clipdeck-update-checker")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch release: %w", err)
	}
	defer resp.Body.Close()

	info := &Info{CurrentVersion: c.currentVersion}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// No releases yet
		c.remember(info)
		return info, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}

	if !release.Prerelease && !release.Draft {
		info.Available = IsNewer(release.TagName, c.currentVersion)
		info.LatestVersion = release.TagName
		info.ReleaseURL = release.HTMLURL
		info.ReleaseNotes = release.Body
		info.PublishedAt = release.PublishedAt
	}

	c.logger.Debug("update check complete",
		zap.String("current", c.currentVersion),
		zap.String("latest", info.LatestVersion),
		zap.Bool("available", info.Available),
	)
	c.remember(info)
	return info, nil
}

func (c *Checker) remember(info *Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastCheck = time.Now()
	c.lastResult = info
}

// CheckIfNeeded checks for updates if enough time has passed
func (c *Checker) CheckIfNeeded(ctx context.Context) (*Info, error) {
	c.mu.Lock()
	last, at := c.lastResult, c.lastCheck
	c.mu.Unlock()
	if last != nil && time.Since(at) < CheckInterval {
		return last, nil
	}
	return c.Check(ctx)
}

// LastResult returns the last check result without making a request
func (c *Checker) LastResult() *Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

// CurrentVersion returns the running version
func (c *Checker) CurrentVersion() string {
	return c.currentVersion
}

// IsNewer reports whether latest is a higher major.minor.patch than current.
// Development builds never report updates.
func IsNewer(latest, current string) bool {
	current = strings.TrimPrefix(current, "v")
	if current == "dev" || current == "" {
		return false
	}

	l := parseVersion(latest)
	cur := parseVersion(current)
	for i := range l {
		if l[i] != cur[i] {
			return l[i] > cur[i]
		}
	}
	return false
}

// parseVersion parses a version string into [major, minor, patch]
func parseVersion(v string) [3]int {
	var parts [3]int
	v = strings.TrimPrefix(v, "v")

	// Drop pre-release and build suffixes
	if idx := strings.IndexAny(v, "-+"); idx != -1 {
		v = v[:idx]
	}

	for i, seg := range strings.SplitN(v, ".", 3) {
		n, err := strconv.Atoi(seg)
		if err != nil {
			break
		}
		parts[i] = n
	}
	return parts
}
