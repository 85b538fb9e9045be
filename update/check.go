package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheFile     = "update_check.json"
	cacheTTL      = 24 * time.Hour
	checkInterval = time.Hour
)

type ghRelease struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// CheckLatest asks the GitHub API for the newest release. It returns nil
// when the running build is already current; dev builds never update.
func CheckLatest(currentVersion string) (*Release, error) {
	if currentVersion == "dev" {
		return nil, nil
	}

	url := fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", Repo)
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api: %s", resp.Status)
	}

	var rel ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, err
	}

	out := Release{Version: rel.TagName}
	want := assetName()
	for _, a := range rel.Assets {
		switch a.Name {
		case want:
			out.AssetURL = a.BrowserDownloadURL
		case "checksums.txt":
			out.ChecksumURL = a.BrowserDownloadURL
		}
	}
	if out.AssetURL == "" {
		return nil, fmt.Errorf("release %s has no asset %q", rel.TagName, want)
	}
	if !out.NewerThan(currentVersion) {
		return nil, nil
	}
	return &out, nil
}

// cachedCheck remembers the last API answer so repeated launches within a
// day cost no network round trip. An empty Version means "no update".
type cachedCheck struct {
	Version     string    `json:"version,omitempty"`
	AssetURL    string    `json:"asset_url,omitempty"`
	ChecksumURL string    `json:"checksum_url,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
}

func readCache(cacheDir string) (*Release, bool) {
	data, err := os.ReadFile(filepath.Join(cacheDir, cacheFile))
	if err != nil {
		return nil, false
	}
	var c cachedCheck
	if json.Unmarshal(data, &c) != nil {
		return nil, false
	}
	if time.Since(c.CheckedAt) > cacheTTL {
		return nil, false
	}
	if c.Version == "" {
		return nil, true
	}
	return &Release{Version: c.Version, AssetURL: c.AssetURL, ChecksumURL: c.ChecksumURL}, true
}

func writeCache(cacheDir string, rel *Release) {
	c := cachedCheck{CheckedAt: time.Now()}
	if rel != nil {
		c.Version = rel.Version
		c.AssetURL = rel.AssetURL
		c.ChecksumURL = rel.ChecksumURL
	}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	_ = os.MkdirAll(cacheDir, 0755)
	_ = os.WriteFile(filepath.Join(cacheDir, cacheFile), data, 0644)
}

// CheckLatestCached is CheckLatest behind a day-long on-disk cache.
func CheckLatestCached(currentVersion, cacheDir string) (*Release, error) {
	if currentVersion == "dev" {
		return nil, nil
	}
	if rel, ok := readCache(cacheDir); ok {
		return rel, nil
	}
	rel, err := CheckLatest(currentVersion)
	if err != nil {
		return nil, err
	}
	writeCache(cacheDir, rel)
	return rel, nil
}

// StartBackgroundCheck polls for updates and calls notify once per newer
// release found. Failures are silent; the next tick retries.
func StartBackgroundCheck(currentVersion, cacheDir string, notify func(Release)) {
	if currentVersion == "dev" {
		return
	}
	go func() {
		seen := ""
		check := func() {
			rel, err := CheckLatestCached(currentVersion, cacheDir)
			if err != nil || rel == nil || rel.Version == seen {
				return
			}
			seen = rel.Version
			notify(*rel)
		}
		check()
		ticker := time.NewTicker(checkInterval)
		defer ticker.Stop()
		for range ticker.C {
			check()
		}
	}()
}
