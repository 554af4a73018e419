package fallback

import (
	"strings"
	"sync"
)

// DefaultHistorySize is how many lines the responder remembers.
const DefaultHistorySize = 4

// Speaker identifies who said a history line.
type Speaker string

const (
	// SpeakerHuman is the audience member.
	SpeakerHuman Speaker = "Human"
	// SpeakerRobot is the performer.
	SpeakerRobot Speaker = "Robot"
)

// Line is one remembered utterance.
type Line struct {
	Speaker Speaker
	Text    string
}

// History is a bounded, ordered record of recent lines. The oldest line is
// dropped once the cap is reached.
type History struct {
	mu    sync.Mutex
	lines []Line
	size  int
}

// NewHistory creates a history holding at most size lines.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size, lines: make([]Line, 0, size)}
}

// Append adds lines in order and truncates to the newest entries.
func (h *History) Append(lines ...Line) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, lines...)
	if over := len(h.lines) - h.size; over > 0 {
		h.lines = append(h.lines[:0], h.lines[over:]...)
	}
}

// Last returns a copy of up to n of the newest lines, oldest first.
func (h *History) Last(n int) []Line {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > len(h.lines) {
		n = len(h.lines)
	}
	if n <= 0 {
		return nil
	}
	return append([]Line(nil), h.lines[len(h.lines)-n:]...)
}

// Lines returns a copy of every remembered line, oldest first.
func (h *History) Lines() []Line {
	return h.Last(h.Cap())
}

// Len returns the number of remembered lines.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.lines)
}

// Cap returns the maximum number of lines kept.
func (h *History) Cap() int { return h.size }

// Reset forgets everything.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = h.lines[:0]
}

// render formats lines for the prompt, naming the robot speaker robotName.
func render(lines []Line, robotName string) string {
	if len(lines) == 0 {
		return "None"
	}
	parts := make([]string, len(lines))
	for i, l := range lines {
		who := string(l.Speaker)
		if l.Speaker == SpeakerRobot {
			who = robotName
		}
		parts[i] = who + ": " + l.Text
	}
	return strings.Join(parts, " | ")
}
