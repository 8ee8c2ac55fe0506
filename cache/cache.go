package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Root is the directory all stamps are written under.
var Root = "cache"

const runsDir = "runs"

// StampPath returns the stamp file path for a task run on the given day.
func StampPath(task string, day time.Time) string {
	key := day.Format("2006-01-02")
	hash := generateHash(task + key)
	return filepath.Join(Root, runsDir, fmt.Sprintf("%s_%s_%s.stamp", task, key, hash[:16]))
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	hash := xxhash.Sum64String(s)
	return fmt.Sprintf("%016x", hash)
}

// EnsureCacheDir ensures the stamp directory exists
func EnsureCacheDir() error {
	return os.MkdirAll(filepath.Join(Root, runsDir), 0755)
}

// HasRun reports whether task already completed on day.
func HasRun(task string, day time.Time) bool {
	_, err := os.Stat(StampPath(task, day))
	return err == nil
}

// MarkRun records that task completed on day. The stamp file holds content.
func MarkRun(task string, day time.Time, content string) error {
	if err := EnsureCacheDir(); err != nil {
		return err
	}
	return os.WriteFile(StampPath(task, day), []byte(content), 0644)
}

// ClearOldStamps removes stamp files older than maxAge
func ClearOldStamps(maxAge time.Duration) error {
	dir := filepath.Join(Root, runsDir)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		if !strings.HasSuffix(path, ".stamp") {
			return nil
		}

		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}

		return nil
	})
}
