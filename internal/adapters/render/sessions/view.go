package sessions

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/locus-sync/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type RenderOptions struct {
	Now        time.Time
	StaleAfter time.Duration
}

func renderView(snapshot domain.Snapshot, opts RenderOptions, s styles) string {
	header := fmt.Sprintf("sessions: %d", len(snapshot.Sessions))
	if !snapshot.TakenAt.IsZero() {
		header += fmt.Sprintf(" (snapshot %s)", formatAge(snapshot.TakenAt, opts.Now))
	}
	if isStale(snapshot.TakenAt, opts) {
		header += " " + s.staleTag.Render("[stale]")
	}

	lines := []string{
		s.title.Render("Locus Sessions"),
		s.header.Render(header),
	}

	if len(snapshot.Sessions) == 0 {
		lines = append(lines, s.empty.Render("No active sessions."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, summary := range snapshot.Sessions {
		lines = append(lines, s.section.Render(renderSession(summary, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSession(summary domain.SessionSummary, opts RenderOptions, s styles) string {
	title := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.session.Render(sessionTitle(summary)),
		" ",
		stateBadge(summary.SelfState, s),
	)
	if tags := sessionTags(summary); tags != "" {
		title += " " + s.tag.Render(tags)
	}

	parts := []string{title}
	for _, field := range []struct {
		label string
		value string
	}{
		{"locus", summary.LocusURL},
		{"meeting", summary.MeetingNumber},
		{"sip", summary.SipURI},
		{"conversation", summary.ConversationURL},
		{"breakout", summary.BreakoutURL},
		{"correlation", summary.CorrelationID},
	} {
		if field.value == "" {
			continue
		}
		parts = append(parts, detailLine(field.label, field.value, s))
	}
	if !summary.CreatedAt.IsZero() {
		parts = append(parts, detailLine("created", formatAge(summary.CreatedAt, opts.Now), s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func detailLine(label, value string, s styles) string {
	return s.key.Render(fmt.Sprintf("  %-13s", label+":")) + s.detail.Render(value)
}

func sessionTitle(summary domain.SessionSummary) string {
	kind := string(summary.Type)
	if kind == "" {
		kind = "UNKNOWN"
	}
	return fmt.Sprintf("%s %s", kind, shortID(summary.ID))
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func stateBadge(state string, s styles) string {
	switch state {
	case domain.StateJoined:
		return s.joined.Render(state)
	case domain.StateLeft, domain.StateDeclined:
		return s.left.Render(state)
	case "":
		return s.pending.Render("PENDING")
	default:
		return s.pending.Render(state)
	}
}

func sessionTags(summary domain.SessionSummary) string {
	var tags []string
	if summary.Scheduled {
		tags = append(tags, "[scheduled]")
	}
	if summary.ActiveBreakout {
		tags = append(tags, "[breakout]")
	}
	return strings.Join(tags, " ")
}

func isStale(takenAt time.Time, opts RenderOptions) bool {
	if takenAt.IsZero() || opts.Now.IsZero() || opts.StaleAfter <= 0 {
		return false
	}
	return opts.Now.Sub(takenAt) > opts.StaleAfter
}

func formatAge(at, now time.Time) string {
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}

	elapsed := now.Sub(at)
	if elapsed < time.Minute {
		return "just now"
	}
	if elapsed < time.Hour {
		return plural(int(elapsed.Minutes()), "minute") + " ago"
	}
	if elapsed < 24*time.Hour {
		return plural(int(elapsed.Hours()), "hour") + " ago"
	}
	return plural(int(math.Floor(elapsed.Hours()/24)), "day") + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
