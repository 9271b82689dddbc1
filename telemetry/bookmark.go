package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkSettled       BookmarkType = "settled"
	BookmarkBondAvalanche BookmarkType = "bond_avalanche"
	BookmarkSpeedSpike    BookmarkType = "speed_spike"
	BookmarkNonFinite     BookmarkType = "non_finite"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	RunID       string       `csv:"run_id"`
	Type        BookmarkType `csv:"type"`
	Step        int64        `csv:"step"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"step", b.Step,
		"description", b.Description,
	)
}

// Thresholds used by the detector.
const (
	settledSpeed        = 0.05 // p90 speed below which a window counts as at rest
	settledWindows      = 3    // consecutive resting windows before triggering
	avalancheFraction   = 0.25 // bonds broken as a fraction of window-start bonds
	avalancheMinBroken  = 10
	speedSpikeFactor    = 4.0 // max speed relative to the rolling average
	speedSpikeMinWindow = 3
)

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	settledCount int  // consecutive windows at rest
	settled      bool // latched until motion resumes
	nonFinite    bool // latched after the first report
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkNonFinite(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkBondAvalanche(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSpeedSpike(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkSettled(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

// Settled reports whether the last windows were at rest.
func (bd *BookmarkDetector) Settled() bool {
	return bd.settled
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkNonFinite(stats WindowStats) *Bookmark {
	if stats.NonFinite == 0 || bd.nonFinite {
		return nil
	}
	bd.nonFinite = true
	return &Bookmark{
		RunID:       stats.RunID,
		Type:        BookmarkNonFinite,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("%d of %d particles have non-finite state", stats.NonFinite, stats.Particles),
	}
}

func (bd *BookmarkDetector) checkBondAvalanche(stats WindowStats) *Bookmark {
	if stats.BondsBroken < avalancheMinBroken {
		return nil
	}
	// Bonds alive at some point in the window
	pool := stats.Bonds + stats.BondsBroken
	fraction := float64(stats.BondsBroken) / float64(pool)
	if fraction < avalancheFraction {
		return nil
	}
	return &Bookmark{
		RunID:       stats.RunID,
		Type:        BookmarkBondAvalanche,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("%d bonds broke (%.0f%%), %d remain", stats.BondsBroken, fraction*100, stats.Bonds),
	}
}

func (bd *BookmarkDetector) checkSpeedSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < speedSpikeMinWindow {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.SpeedMax
	}
	avg := total / float64(len(history))
	if avg == 0 {
		return nil
	}

	if stats.SpeedMax > avg*speedSpikeFactor {
		return &Bookmark{
			RunID:       stats.RunID,
			Type:        BookmarkSpeedSpike,
			Step:        stats.WindowEndStep,
			Description: fmt.Sprintf("Max speed %.2f is %.1fx average (%.2f)", stats.SpeedMax, stats.SpeedMax/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	if stats.Particles == 0 || stats.SpeedP90 >= settledSpeed {
		bd.settledCount = 0
		bd.settled = false
		return nil
	}

	bd.settledCount++
	if bd.settledCount == settledWindows { // trigger once per resting spell
		bd.settled = true
		return &Bookmark{
			RunID:       stats.RunID,
			Type:        BookmarkSettled,
			Step:        stats.WindowEndStep,
			Description: fmt.Sprintf("p90 speed %.3f below %.2f for %d windows, mean height %.3f", stats.SpeedP90, settledSpeed, settledWindows, stats.HeightMean),
		}
	}
	return nil
}
