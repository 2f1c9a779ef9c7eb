// Package stats tracks per-reply generation metrics (provider latency,
// stream shape, files produced, success/failure) and persists them to
// ~/.webviber/stats.json.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/arin/webviber/internal/config"
)

const (
	fileName   = "stats.json"
	maxRecords = 1000
)

// Record is a single instrumented reply.
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	Prompt       string    `json:"prompt"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	LatencyMs    int64     `json:"latency_ms"`
	FirstTokenMs int64     `json:"first_token_ms,omitempty"`
	Chunks       int       `json:"chunks"`
	Files        int       `json:"files"`
	Paths        []string  `json:"paths,omitempty"`
	Bytes        int       `json:"bytes"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
	Subcommand   string    `json:"subcommand,omitempty"` // "chat", "generate", ...
}

// Summary is the aggregated stats dashboard.
type Summary struct {
	TotalReplies      int            `json:"total_replies"`
	SuccessRate       float64        `json:"success_rate"`
	AvgLatencyMs      int64          `json:"avg_latency_ms"`
	AvgFirstTokenMs   int64          `json:"avg_first_token_ms"`
	AvgFiles          float64        `json:"avg_files"`
	TotalBytes        int            `json:"total_bytes"`
	ProviderBreakdown map[string]int `json:"provider_breakdown"`
	SubcmdBreakdown   map[string]int `json:"subcmd_breakdown"`
	TopPaths          []PathCount    `json:"top_paths"`
	TodayCount        int            `json:"today_count"`
	ThisWeekCount     int            `json:"this_week_count"`
}

// PathCount pairs a file path with how many replies wrote it.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

var fileMu sync.Mutex

func statsPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Save appends a new record to the stats file.
func Save(r Record) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	records, _ := loadAll()
	records = append(records, r)
	if len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statsPath(), data, 0o600)
}

// LoadAll returns all stored records.
func LoadAll() ([]Record, error) {
	fileMu.Lock()
	defer fileMu.Unlock()
	return loadAll()
}

func loadAll() ([]Record, error) {
	data, err := os.ReadFile(statsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Summarize computes aggregated stats from all records.
func Summarize() (*Summary, error) {
	records, err := LoadAll()
	if err != nil {
		return nil, err
	}
	return summarize(records, time.Now()), nil
}

func summarize(records []Record, now time.Time) *Summary {
	s := &Summary{
		TotalReplies:      len(records),
		ProviderBreakdown: map[string]int{},
		SubcmdBreakdown:   map[string]int{},
	}
	if len(records) == 0 {
		return s
	}

	var totalLatency, totalFirst int64
	var firstCount, successCount, fileCount int
	pathFreq := map[string]int{}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	for _, r := range records {
		if r.Success {
			successCount++
			fileCount += r.Files
		}
		totalLatency += r.LatencyMs
		if r.FirstTokenMs > 0 {
			totalFirst += r.FirstTokenMs
			firstCount++
		}
		s.TotalBytes += r.Bytes
		if r.Provider != "" {
			s.ProviderBreakdown[r.Provider]++
		}
		if r.Subcommand != "" {
			s.SubcmdBreakdown[r.Subcommand]++
		}
		for _, p := range r.Paths {
			pathFreq[p]++
		}
		if !r.Timestamp.Before(today) {
			s.TodayCount++
		}
		if r.Timestamp.After(weekAgo) {
			s.ThisWeekCount++
		}
	}

	s.SuccessRate = float64(successCount) / float64(len(records)) * 100
	s.AvgLatencyMs = totalLatency / int64(len(records))
	if firstCount > 0 {
		s.AvgFirstTokenMs = totalFirst / int64(firstCount)
	}
	if successCount > 0 {
		s.AvgFiles = float64(fileCount) / float64(successCount)
	}
	s.TopPaths = topN(pathFreq, 5)

	return s
}

func topN(freq map[string]int, n int) []PathCount {
	all := make([]PathCount, 0, len(freq))
	for p, count := range freq {
		all = append(all, PathCount{Path: p, Count: count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Path < all[j].Path
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
