package track

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StatusCache is the small JSON document status-line renderers read. Only
// this package writes it; renderers treat it as read-only.
type StatusCache struct {
	MemoriesLoaded int `json:"memoriesLoaded"`
	RecentCount    int `json:"recentCount"`
	GitCommits     int `json:"gitCommits"`
}

// DefaultStatusCachePath returns ~/.salience/status.json.
func DefaultStatusCachePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".salience", "status.json"), nil
}

// WriteStatusCache atomically replaces the status cache file.
func WriteStatusCache(path string, sc StatusCache) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(sc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status cache: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write status cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace status cache: %w", err)
	}
	return nil
}

// ReadStatusCache loads the cache; a missing file reads as zeros.
func ReadStatusCache(path string) (StatusCache, error) {
	var sc StatusCache
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return sc, nil
	}
	if err != nil {
		return sc, fmt.Errorf("read status cache: %w", err)
	}
	if err := json.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("decode status cache: %w", err)
	}
	return sc, nil
}
