package transcript

import (
	"strings"
	"sync"
	"time"
)

// DefaultMergeWindow bounds the gap between consecutive segments of the
// same speaker that still read as one message.
const DefaultMergeWindow = 2 * time.Second

// Options tunes the assembler.
type Options struct {
	// MergeWindow is the maximum gap between a message's timestamp and
	// the next segment of the same speaker for them to merge. Zero or
	// negative disables the gap check, so same-speaker segments always
	// merge.
	MergeWindow time.Duration
	// Colors overrides the display palette. Empty keeps the default.
	Colors []string
}

// DefaultOptions returns the production assembler settings.
func DefaultOptions() Options {
	return Options{MergeWindow: DefaultMergeWindow}
}

// IngestResult summarizes what one Ingest call did.
type IngestResult struct {
	Appended    int // new messages opened
	Merged      int // segments folded into an existing message
	Skipped     int // empty segments dropped
	NewSpeakers int // speakers that got a color this call
}

// Assembler folds recognition segments into the conversation transcript.
// Thread-safe.
type Assembler struct {
	mu          sync.Mutex
	palette     *Palette
	mergeWindow time.Duration
	messages    []Message
}

// NewAssembler creates an assembler with default options.
func NewAssembler() *Assembler {
	return NewAssemblerWithOptions(DefaultOptions())
}

// NewAssemblerWithOptions creates an assembler with explicit options.
func NewAssemblerWithOptions(opts Options) *Assembler {
	return &Assembler{
		palette:     NewPaletteWithColors(opts.Colors),
		mergeWindow: opts.MergeWindow,
	}
}

// Ingest folds a batch of segments into the transcript in order.
// A segment merges into the last message when the speaker matches and
// the gap fits the merge window; otherwise it opens a new message.
// Whitespace-only segments are dropped.
func (a *Assembler) Ingest(segments []Segment) IngestResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	var result IngestResult
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			result.Skipped++
			continue
		}

		speaker := seg.Speaker
		if speaker == "" {
			speaker = UnknownSpeaker
		}

		before := a.palette.Allocations()
		color := a.palette.ColorFor(speaker)
		if a.palette.Allocations() > before {
			result.NewSpeakers++
		}

		if n := len(a.messages); n > 0 {
			last := &a.messages[n-1]
			if last.Speaker == speaker && a.withinMergeWindow(seg.StartTime, last.Timestamp) {
				last.Text += " " + text
				result.Merged++
				continue
			}
		}

		a.messages = append(a.messages, Message{
			Speaker:   speaker,
			Text:      text,
			Timestamp: seg.StartTime,
			Color:     color,
		})
		result.Appended++
	}
	return result
}

func (a *Assembler) withinMergeWindow(segStart, lastTimestamp float64) bool {
	if a.mergeWindow <= 0 {
		return true
	}
	return segStart-lastTimestamp < a.mergeWindow.Seconds()
}

// Messages returns a copy of the assembled transcript.
func (a *Assembler) Messages() []Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// Len returns the number of assembled messages.
func (a *Assembler) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.messages)
}

// Speakers returns how many distinct speakers have appeared.
func (a *Assembler) Speakers() int {
	return a.palette.Allocations()
}

// Reset clears the transcript and the color assignments.
func (a *Assembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = nil
	a.palette.Reset()
}
