package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Entry is one bookkeeping row: a path_id ("65/278") and the URL it maps
// to, plus the absolute path of the HTML file on disk.
type Entry struct {
	PathID   string
	URL      string
	FilePath string
}

// LoadBookkeeping reads bookkeeping.json from corpusDir and returns its
// entries sorted by (int(bucket), int(index)), matching spec.md §6's
// iteration order. A missing or malformed bookkeeping file is fatal: the
// caller is expected to abort the whole build.
func LoadBookkeeping(corpusDir string) ([]Entry, error) {
	bookkeepingPath := filepath.Join(corpusDir, "bookkeeping.json")
	raw, err := os.ReadFile(bookkeepingPath)
	if err != nil {
		return nil, fmt.Errorf("read bookkeeping file %q: %w", bookkeepingPath, err)
	}

	var mapping map[string]string
	if err := json.Unmarshal(raw, &mapping); err != nil {
		return nil, fmt.Errorf("parse bookkeeping file %q: %w", bookkeepingPath, err)
	}

	entries := make([]Entry, 0, len(mapping))
	for pathID, url := range mapping {
		entries = append(entries, Entry{
			PathID:   pathID,
			URL:      url,
			FilePath: filepath.Join(corpusDir, filepath.FromSlash(pathID)),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		bi, ii, errI := splitPathID(entries[i].PathID)
		bj, ij, errJ := splitPathID(entries[j].PathID)
		if errI != nil || errJ != nil {
			return entries[i].PathID < entries[j].PathID
		}
		if bi != bj {
			return bi < bj
		}
		return ii < ij
	})

	return entries, nil
}

// splitPathID parses a "<bucket>/<index>" path_id into its two integer
// components for numeric sort ordering.
func splitPathID(pathID string) (bucket, index int, err error) {
	parts := strings.SplitN(pathID, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed path_id %q", pathID)
	}
	bucket, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed path_id bucket %q: %w", pathID, err)
	}
	index, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed path_id index %q: %w", pathID, err)
	}
	return bucket, index, nil
}
