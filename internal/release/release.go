// Package release resolves which agent version is current and where its
// installer lives. The version is either pinned in config or discovered
// from the agent repository's GitHub releases.
package release

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/droverdev/drover/internal/config"
	"github.com/google/go-github/v68/github"
	"golang.org/x/mod/semver"
	"golang.org/x/oauth2"
)

// cacheTTL bounds how often the GitHub API is hit for the latest release.
const cacheTTL = time.Hour

// Source answers "what is the latest agent version" with optional GitHub
// discovery behind a short-lived cache.
type Source struct {
	cfg config.AgentConfig
	gh  *github.Client

	mu      sync.Mutex
	cached  string
	fetched time.Time
}

// New builds a Source. A GitHub token raises the API rate limit but is not
// required for public release repos.
func New(cfg config.AgentConfig) *Source {
	var hc = oauth2.NewClient(context.Background(), nil)
	if cfg.GitHubToken != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
		hc = oauth2.NewClient(context.Background(), ts)
	}
	return &Source{cfg: cfg, gh: github.NewClient(hc)}
}

// LatestVersion returns the current agent version without a leading "v".
func (s *Source) LatestVersion(ctx context.Context) (string, error) {
	if s.cfg.LatestVersion != "" {
		return s.cfg.LatestVersion, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != "" && time.Since(s.fetched) < cacheTTL {
		return s.cached, nil
	}

	owner, repo, ok := strings.Cut(s.cfg.ReleaseRepo, "/")
	if !ok {
		return "", fmt.Errorf("release: malformed release_repo %q", s.cfg.ReleaseRepo)
	}
	rel, _, err := s.gh.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return "", fmt.Errorf("release: latest release of %s: %w", s.cfg.ReleaseRepo, err)
	}
	ver := strings.TrimPrefix(rel.GetTagName(), "v")
	if ver == "" {
		return "", fmt.Errorf("release: %s latest release has no tag", s.cfg.ReleaseRepo)
	}

	s.cached = ver
	s.fetched = time.Now()
	return ver, nil
}

// InnoName is the installer filename for a version and architecture.
func InnoName(version, arch string) string {
	if arch == "386" {
		return fmt.Sprintf("winagent-v%s-x86.exe", version)
	}
	return fmt.Sprintf("winagent-v%s.exe", version)
}

// DownloadURL is the release asset URL for a version and architecture.
func (s *Source) DownloadURL(version, arch string) string {
	return fmt.Sprintf("https://github.com/%s/releases/download/v%s/%s",
		s.cfg.ReleaseRepo, version, InnoName(version, arch))
}

// NeedsUpdate reports whether current orders strictly below latest under
// semantic version comparison. Unparseable versions never trigger updates.
func NeedsUpdate(current, latest string) bool {
	c, l := "v"+current, "v"+latest
	if !semver.IsValid(c) || !semver.IsValid(l) {
		return false
	}
	return semver.Compare(c, l) < 0
}
