// Package history provides recording of fetch attempts for later review
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/neutrinoguy/timefetch/internal/config"
)

// FetchEvent represents a single fetch attempt in a journal
type FetchEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Server    string        `json:"server"`
	Success   bool          `json:"success"`
	RTT       time.Duration `json:"rtt,omitempty"`
	Stratum   int           `json:"stratum,omitempty"`
	Result    string        `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Journal represents a recording of fetch attempts
type Journal struct {
	ID        string       `json:"id"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time,omitempty"`
	Events    []FetchEvent `json:"events"`
	Stats     JournalStats `json:"stats"`
}

// JournalStats contains journal statistics
type JournalStats struct {
	TotalFetches int           `json:"total_fetches"`
	Failures     int           `json:"failures"`
	AvgRTT       time.Duration `json:"avg_rtt"`
}

// Recorder accumulates fetch events and persists them on stop
type Recorder struct {
	mu      sync.RWMutex
	active  bool
	journal *Journal
	rtts    []time.Duration
}

// Global recorder instance
var globalRecorder *Recorder
var recorderOnce sync.Once

// GetRecorder returns the global fetch recorder
func GetRecorder() *Recorder {
	recorderOnce.Do(func() {
		globalRecorder = &Recorder{}
	})
	return globalRecorder
}

// Start begins a new journal
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return fmt.Errorf("recording already in progress")
	}

	r.journal = &Journal{
		ID:        fmt.Sprintf("journal_%d", time.Now().Unix()),
		StartTime: time.Now(),
		Events:    make([]FetchEvent, 0),
	}
	r.rtts = make([]time.Duration, 0)
	r.active = true

	return nil
}

// Stop ends the current journal and saves it
func (r *Recorder) Stop() (*Journal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return nil, fmt.Errorf("no recording in progress")
	}

	r.journal.EndTime = time.Now()

	if len(r.rtts) > 0 {
		var total time.Duration
		for _, d := range r.rtts {
			total += d
		}
		r.journal.Stats.AvgRTT = total / time.Duration(len(r.rtts))
	}

	if err := r.save(); err != nil {
		return nil, err
	}

	journal := r.journal
	r.active = false
	r.journal = nil

	return journal, nil
}

// IsRecording returns whether a journal is open
func (r *Recorder) IsRecording() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Record appends a fetch event to the open journal
func (r *Recorder) Record(event FetchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return
	}

	r.journal.Stats.TotalFetches++
	if !event.Success {
		r.journal.Stats.Failures++
	} else {
		r.rtts = append(r.rtts, event.RTT)
	}

	r.journal.Events = append(r.journal.Events, event)
}

// save writes the journal to a file
func (r *Recorder) save() error {
	dataDir, err := config.GetDataDir()
	if err != nil {
		return err
	}

	journalPath := filepath.Join(dataDir, config.HistoryDirName, r.journal.ID+".json")
	data, err := json.MarshalIndent(r.journal, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(journalPath, data, 0644)
}

// Summary provides a summary of a journal
type Summary struct {
	ID         string       `json:"id"`
	StartTime  time.Time    `json:"start_time"`
	EndTime    time.Time    `json:"end_time"`
	EventCount int          `json:"event_count"`
	Stats      JournalStats `json:"stats"`
}

// List returns summaries of saved journals
func List() ([]Summary, error) {
	dataDir, err := config.GetDataDir()
	if err != nil {
		return nil, err
	}

	historyDir := filepath.Join(dataDir, config.HistoryDirName)
	entries, err := os.ReadDir(historyDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Summary{}, nil
		}
		return nil, err
	}

	var journals []Summary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		journalPath := filepath.Join(historyDir, entry.Name())
		data, err := os.ReadFile(journalPath)
		if err != nil {
			continue
		}

		var journal Journal
		if err := json.Unmarshal(data, &journal); err != nil {
			continue
		}

		journals = append(journals, Summary{
			ID:         journal.ID,
			StartTime:  journal.StartTime,
			EndTime:    journal.EndTime,
			EventCount: len(journal.Events),
			Stats:      journal.Stats,
		})
	}

	return journals, nil
}

// Load loads a journal from disk
func Load(id string) (*Journal, error) {
	dataDir, err := config.GetDataDir()
	if err != nil {
		return nil, err
	}

	journalPath := filepath.Join(dataDir, config.HistoryDirName, id+".json")
	data, err := os.ReadFile(journalPath)
	if err != nil {
		return nil, err
	}

	var journal Journal
	if err := json.Unmarshal(data, &journal); err != nil {
		return nil, err
	}

	return &journal, nil
}

// Delete deletes a journal file
func Delete(id string) error {
	dataDir, err := config.GetDataDir()
	if err != nil {
		return err
	}

	journalPath := filepath.Join(dataDir, config.HistoryDirName, id+".json")
	return os.Remove(journalPath)
}

// GetCurrent returns the open journal's summary (if recording)
func (r *Recorder) GetCurrent() *Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.active || r.journal == nil {
		return nil
	}

	return &Summary{
		ID:         r.journal.ID,
		StartTime:  r.journal.StartTime,
		EventCount: len(r.journal.Events),
		Stats:      r.journal.Stats,
	}
}
