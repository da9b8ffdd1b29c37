package updater

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	repoOwner = "Octrafic"
	repoName  = "api-factory"
)

// ReleasesAPI is the GitHub releases endpoint queried for updates.
var ReleasesAPI = "https://api.github.com/repos/" + repoOwner + "/" + repoName + "/releases"

// UpdateInfo holds information about available updates
type UpdateInfo struct {
	CurrentVersion string
	LatestVersion  string
	ReleaseNotes   string
	HTMLURL        string
	IsNewer        bool
}

// CheckLatestVersion compares currentVersion with the latest published
// release.
func CheckLatestVersion(ctx context.Context, currentVersion string) (*UpdateInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	body, err := get(ctx, ReleasesAPI+"/latest")
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}

	release := gjson.ParseBytes(body)
	if !release.Get("tag_name").Exists() {
		return nil, fmt.Errorf("failed to parse release info: missing tag_name")
	}
	latest := strings.TrimPrefix(release.Get("tag_name").String(), "v")

	return &UpdateInfo{
		CurrentVersion: currentVersion,
		LatestVersion:  latest,
		ReleaseNotes:   release.Get("body").String(),
		HTMLURL:        release.Get("html_url").String(),
		IsNewer:        IsNewer(latest, currentVersion),
	}, nil
}

func get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// IsNewer returns true if latest version is newer than current
func IsNewer(latest, current string) bool {
	latestParts := parseVersion(latest)
	currentParts := parseVersion(current)

	for i := 0; i < 3; i++ {
		if latestParts[i] > currentParts[i] {
			return true
		}
		if latestParts[i] < currentParts[i] {
			return false
		}
	}
	return false
}

func parseVersion(v string) [3]int {
	v = strings.TrimPrefix(v, "v")
	// Strip pre-release suffix (e.g., "1.0.0-beta")
	if idx := strings.IndexByte(v, '-'); idx != -1 {
		v = v[:idx]
	}
	parts := strings.SplitN(v, ".", 3)
	var result [3]int
	for i := 0; i < 3 && i < len(parts); i++ {
		result[i], _ = strconv.Atoi(parts[i])
	}
	return result
}
