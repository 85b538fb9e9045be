package update

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input   string
		want    [3]int
		wantErr bool
	}{
		{"0.3.1", [3]int{0, 3, 1}, false},
		{"v1.4.0", [3]int{1, 4, 0}, false},
		{"v0.2.0-rc1", [3]int{0, 2, 0}, false},
		{"v2.0.1-dirty+meta", [3]int{2, 0, 1}, false},
		{"dev", [3]int{}, true},
		{"", [3]int{}, true},
		{"1.4", [3]int{}, true},
		{"1.x.0", [3]int{}, true},
	}

	for _, tt := range tests {
		got, err := parseVersion(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseVersion(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestReleaseNewerThan(t *testing.T) {
	tests := []struct {
		release string
		current string
		want    bool
	}{
		{"v0.4.0", "v0.3.2", true},
		{"v0.3.2", "v0.3.2", false},
		{"v0.3.1", "v0.3.2", false},
		{"v1.0.0", "v0.9.9", true},
		{"v0.3.3", "v0.3.2-dirty", true},
		{"v0.3.2", "dev", false},
		{"not-a-version", "v0.3.2", false},
	}

	for _, tt := range tests {
		r := Release{Version: tt.release}
		if got := r.NewerThan(tt.current); got != tt.want {
			t.Errorf("Release{%q}.NewerThan(%q) = %v, want %v", tt.release, tt.current, got, tt.want)
		}
	}
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()

	rel := &Release{
		Version:     "v0.4.0",
		AssetURL:    "https://example.com/barkback",
		ChecksumURL: "https://example.com/checksums.txt",
	}
	writeCache(dir, rel)

	got, ok := readCache(dir)
	if !ok {
		t.Fatal("readCache returned not ok")
	}
	if got == nil {
		t.Fatal("readCache returned nil release")
	}
	if *got != *rel {
		t.Errorf("readCache = %+v, want %+v", got, rel)
	}
}

func TestCacheRemembersNoUpdate(t *testing.T) {
	dir := t.TempDir()

	writeCache(dir, nil)
	got, ok := readCache(dir)
	if !ok {
		t.Fatal("readCache returned not ok for cached no-update")
	}
	if got != nil {
		t.Errorf("readCache = %+v, want nil", got)
	}
}

func TestCacheIgnoresGarbage(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, cacheFile), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := readCache(dir); ok {
		t.Error("readCache should return not ok for a corrupt cache")
	}
	if _, ok := readCache(filepath.Join(dir, "missing")); ok {
		t.Error("readCache should return not ok for a missing cache")
	}
}
