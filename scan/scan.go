// Package scan discovers convertible sources on disk and turns them into
// conversion requests.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"heiconv/core"
)

// sourceExts are the extensions picked up by Sources, matched
// case-insensitively.
var sourceExts = map[string]struct{}{
	".heic": {},
	".heif": {},
}

// Sources lists the HEIC/HEIF files directly inside dir, sorted
// case-insensitively by name. Subdirectories are not descended into.
func Sources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan sources: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if _, ok := sourceExts[ext]; ok {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return strings.ToLower(files[i]) < strings.ToLower(files[j])
	})
	return files, nil
}

// BuildRequests pairs each source with its destination in outDir, swapping
// the extension for the target format's.
func BuildRequests(sources []string, outDir string, format core.Format, quality int) []core.ConversionRequest {
	reqs := make([]core.ConversionRequest, 0, len(sources))
	for _, src := range sources {
		base := filepath.Base(src)
		name := strings.TrimSuffix(base, filepath.Ext(base)) + format.Ext()
		reqs = append(reqs, core.ConversionRequest{
			Source:      src,
			Destination: filepath.Join(outDir, name),
			Format:      format,
			Quality:     quality,
		})
	}
	return reqs
}

// EnsureDir creates the output directory if it does not exist yet.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure output dir: %w", err)
	}
	return nil
}
