// Package activity estimates player presence from the game server's recent
// log output when the status protocols are unavailable.
//
// The estimate is heuristic. Player names are pulled out with a single-word
// regex, so renamed players, duplicate names and re-joins inside the window
// can skew the count; it is only consulted when probing returned Unknown.
package activity

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/rusenback/idlemon/internal/model"
)

// LogSource returns up to maxLines of recent log text, most recent last.
// since > 0 limits the tail to lines newer than now-since.
type LogSource interface {
	Tail(ctx context.Context, maxLines int, since time.Duration) ([]string, error)
}

// activityPatterns indicate a player doing something, or the server saving
// a world someone is in. Matched case-insensitively.
var activityPatterns = []string{
	"joined the game",
	"left the game",
	"logged in with entity id",
	"lost connection",
	"[not secure]",
	"issued server command",
	"was slain",
	"drowned",
	"fell",
	"has made the advancement",
	"uuid of player",
	"moving too quickly",
	"tried to swim in lava",
	"went up in flames",
	"blew up",
	"hit the ground too hard",
	"was shot",
	"was killed",
	"starved to death",
	"suffocated",
	"experienced kinetic energy",
	"fell out of the world",
	"saving chunks",
	"automatic saving",
	"threadedanvilchunkstorage",
}

// connectionPatterns are weaker transport-level hints
var connectionPatterns = []string{"connection", "disconnect", "timeout", "handshake"}

const connectionEventThreshold = 2

var (
	joinPattern  = regexp.MustCompile(`(?i)(\w+)\s+(?:joined the game|logged in)`)
	leavePattern = regexp.MustCompile(`(?i)(\w+)\s+(?:left the game|lost connection|disconnected)`)
)

// Windows controls how much of the tail each heuristic looks at
type Windows struct {
	Tail               int
	ActivityLookback   int
	ConnectionLookback int
	EstimateLookback   int
}

func DefaultWindows() Windows {
	return Windows{Tail: 200, ActivityLookback: 50, ConnectionLookback: 30, EstimateLookback: 50}
}

// Analyzer combines both heuristics over a single log fetch
type Analyzer struct {
	src     LogSource
	windows Windows
	logger  *slog.Logger
}

func NewAnalyzer(src LogSource, windows Windows, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{src: src, windows: windows, logger: logger}
}

// Analyze fetches the tail once and runs both heuristics on it. A failed or
// empty fetch yields RecentActivity=true so log trouble alone can never drive
// a shutdown.
func (a *Analyzer) Analyze(ctx context.Context) model.ActivitySignal {
	lines, ok := a.fetch(ctx, a.windows.Tail, 0)
	if !ok {
		return model.ActivitySignal{RecentActivity: true, FetchFailed: true}
	}

	sig := model.ActivitySignal{
		RecentActivity: DetectRecentActivity(lines, a.windows.ActivityLookback, a.windows.ConnectionLookback),
		EstimatedCount: EstimatePlayerCount(lines, a.windows.EstimateLookback),
	}
	a.logger.Info("log analysis",
		"recent_activity", sig.RecentActivity,
		"estimated_players", sig.EstimatedCount,
		"lines", len(lines))
	return sig
}

// FinalCheck re-reads a wider tail bounded by since and scans every line of
// it. Used once, immediately before a shutdown. An empty tail inside a
// positive since window means the server was silent, not that logs failed.
func (a *Analyzer) FinalCheck(ctx context.Context, tail, lookback int, since time.Duration) bool {
	lines, ok := a.fetch(ctx, tail, since)
	if !ok {
		return true
	}
	return DetectRecentActivity(lines, lookback, a.windows.ConnectionLookback)
}

func (a *Analyzer) fetch(ctx context.Context, tail int, since time.Duration) ([]string, bool) {
	if a.src == nil {
		a.logger.Warn("no log source configured, assuming activity")
		return nil, false
	}
	lines, err := a.src.Tail(ctx, tail, since)
	if err != nil {
		a.logger.Error("failed to fetch server logs, assuming activity", "error", err)
		return nil, false
	}
	if len(lines) == 0 {
		// a time-bounded tail is legitimately empty on a quiet server
		if since > 0 {
			a.logger.Info("no log lines in window", "since", since)
			return nil, true
		}
		a.logger.Warn("no logs available from container, assuming activity")
		return nil, false
	}
	return lines, true
}

// DetectRecentActivity reports whether any activity pattern appears in the
// last lookback lines, or more than two connection keywords appear in the
// last connLookback lines.
func DetectRecentActivity(lines []string, lookback, connLookback int) bool {
	for _, line := range lastN(lines, lookback) {
		if containsAny(strings.ToLower(line), activityPatterns) {
			return true
		}
	}

	events := 0
	for _, line := range lastN(lines, connLookback) {
		if containsAny(strings.ToLower(line), connectionPatterns) {
			events++
		}
	}
	return events > connectionEventThreshold
}

// EstimatePlayerCount walks the last lookback lines newest first, adding
// joiners to a name set and removing leavers. The set size is the estimate.
func EstimatePlayerCount(lines []string, lookback int) int {
	players := make(map[string]struct{})
	window := lastN(lines, lookback)

	for i := len(window) - 1; i >= 0; i-- {
		line := window[i]

		switch Classify(line) {
		case LineJoin:
			if m := joinPattern.FindStringSubmatch(line); m != nil {
				players[m[1]] = struct{}{}
			}
		case LineLeave:
			if m := leavePattern.FindStringSubmatch(line); m != nil {
				delete(players, m[1])
			}
		}
	}
	return len(players)
}

// LineKind is what a single log line says about player presence
type LineKind int

const (
	LineOther LineKind = iota
	LineJoin
	LineLeave
	LineActivity
	LineConnection
)

// Classify buckets one log line using the same keywords the heuristics
// match on. Join and leave take precedence over the broader patterns.
func Classify(line string) LineKind {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "joined the game"), strings.Contains(lower, "logged in"):
		return LineJoin
	case strings.Contains(lower, "left the game"),
		strings.Contains(lower, "lost connection"),
		strings.Contains(lower, "disconnected"):
		return LineLeave
	case containsAny(lower, activityPatterns):
		return LineActivity
	case containsAny(lower, connectionPatterns):
		return LineConnection
	}
	return LineOther
}

func lastN(lines []string, n int) []string {
	if n <= 0 || n >= len(lines) {
		return lines
	}
	return lines[len(lines)-n:]
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
