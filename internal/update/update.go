// Package update checks GitHub for a newer tidings release.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tidings/internal/config"
	"tidings/internal/network"
)

// checkTimeout keeps the version check from delaying the command it
// piggybacks on.
const checkTimeout = 3 * time.Second

type release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Result describes the latest published release relative to the
// running version.
type Result struct {
	Current   string
	Latest    string
	URL       string
	Available bool
}

type Checker struct {
	clients *network.ClientFactory
}

func NewChecker(clients *network.ClientFactory) *Checker {
	return &Checker{clients: clients}
}

// Check queries the GitHub release API for the newest release.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	result := Result{Current: config.AppVersion}

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", config.AppRepo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return result, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", config.UserAgent)

	client := c.clients.NewHTTPClient(ctx, checkTimeout)
	resp, err := client.Do(req)
	if err != nil {
		return result, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("HTTP %d from release API", resp.StatusCode)
	}

	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return result, fmt.Errorf("decode release: %w", err)
	}

	result.Latest = strings.TrimPrefix(strings.TrimSpace(rel.TagName), "v")
	result.URL = rel.HTMLURL
	result.Available = IsNewer(result.Latest, result.Current)
	return result, nil
}

// IsNewer reports whether latest is strictly newer than current.
// Versions compare as dot-separated numeric tuples; malformed
// components compare as zero.
func IsNewer(latest, current string) bool {
	l := versionTuple(latest)
	c := versionTuple(current)
	for i := range l {
		if l[i] != c[i] {
			return l[i] > c[i]
		}
	}
	return false
}

func versionTuple(v string) [3]int {
	var tuple [3]int
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	for i, part := range strings.Split(v, ".") {
		if i >= len(tuple) {
			break
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			continue
		}
		tuple[i] = n
	}
	return tuple
}
