// Package format renders selected memories and their rationale into the
// single text artifact injected into the assistant's context window.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/salience/internal/analysis"
	"github.com/lazypower/salience/internal/scoring"
	"github.com/lazypower/salience/internal/track"
)

const (
	maxMemories     = 3
	maxTags         = 3
	maxSessionLines = 2
	contentMaxLen   = 120

	separator = "────────────────────────────────────────"
)

// Glyph bands by relevance score.
func intensityGlyph(score float64) string {
	switch {
	case score > 0.7:
		return "🔥"
	case score > 0.5:
		return "⭐"
	default:
		return "💡"
	}
}

// RenderInjection builds the injection artifact. Returns "" when there are
// no memories to inject; callers must treat that as "inject nothing".
func RenderInjection(memories []scoring.Scored, a analysis.Analysis, change analysis.Change, sessions []track.SessionSummary, now time.Time) string {
	if len(memories) == 0 {
		return ""
	}
	if len(memories) > maxMemories {
		memories = memories[:maxMemories]
	}

	var b strings.Builder
	b.WriteString(separator + "\n")
	b.WriteString("🧠 Salience — memory context update\n")

	if len(change.NewTopics) > 0 {
		names := make([]string, len(change.NewTopics))
		for i, t := range change.NewTopics {
			names[i] = t.Name
		}
		fmt.Fprintf(&b, "New topics detected: %s\n", strings.Join(names, ", "))
	}
	if change.ChangedIntents && a.Intent != nil {
		fmt.Fprintf(&b, "Focus shifted to: %s\n", a.Intent.Name)
	}

	if len(sessions) > 0 {
		if len(sessions) > maxSessionLines {
			sessions = sessions[:maxSessionLines]
		}
		b.WriteString("\nRecent session context:\n")
		for _, s := range sessions {
			line := "• session ended " + humanAge(now.Sub(s.EndTime))
			if s.Outcome != "" {
				line += " (" + s.Outcome + ")"
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString("\nRelevant context:\n")
	for _, m := range memories {
		fmt.Fprintf(&b, "%s %s\n", intensityGlyph(m.RelevanceScore), truncateContent(m.Content))
		if len(m.Tags) > 0 {
			tags := m.Tags
			if len(tags) > maxTags {
				tags = tags[:maxTags]
			}
			fmt.Fprintf(&b, "   tags: %s\n", strings.Join(tags, ", "))
		}
	}

	b.WriteString(separator + "\n")
	return b.String()
}

// truncateContent collapses whitespace and trims to the display budget on a
// rune boundary.
func truncateContent(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)
	if len(runes) <= contentMaxLen {
		return flat
	}
	return string(runes[:contentMaxLen]) + "..."
}

// humanAge renders a duration as "X minutes/hours/days ago".
func humanAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return "moments ago"
	case d < time.Hour:
		m := int(d.Minutes())
		return fmt.Sprintf("%d %s ago", m, plural(m, "minute"))
	case d < 24*time.Hour:
		h := int(d.Hours())
		return fmt.Sprintf("%d %s ago", h, plural(h, "hour"))
	default:
		days := int(d.Hours() / 24)
		return fmt.Sprintf("%d %s ago", days, plural(days, "day"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
