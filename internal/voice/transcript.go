package voice

import (
	"fmt"
	"strings"
	"time"

	"bishop-bot/internal/ai"
)

var rule = strings.Repeat("=", 50)

func renderTranscript(rec Recording, text string, at time.Time) string {
	participants := rec.SortedParticipants()
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Session Transcript - %s\n", at.Format(time.DateTime))
	fmt.Fprintf(&b, "Guild: %s\n", rec.GuildID)
	fmt.Fprintf(&b, "Session: %s\n", rec.SessionID)
	fmt.Fprintf(&b, "Participants: %s\n", strings.Join(names, ", "))
	b.WriteString(rule + "\n\n")
	b.WriteString(text)
	b.WriteString("\n\n" + rule + "\n")
	b.WriteString("Session Participants:\n")
	for _, p := range participants {
		fmt.Fprintf(&b, "- %s (ID: %s)\n", p.Name, p.UserID)
	}
	return b.String()
}

func renderTimestamped(rec Recording, segments []ai.Segment, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Timestamped Transcript - %s\n", at.Format(time.DateTime))
	fmt.Fprintf(&b, "Guild: %s\n", rec.GuildID)
	fmt.Fprintf(&b, "Session: %s\n", rec.SessionID)
	b.WriteString(rule + "\n\n")
	for _, seg := range segments {
		fmt.Fprintf(&b, "[%s - %s] %s\n", clock(seg.Start), clock(seg.End), seg.Text)
	}
	return b.String()
}

// clock formats seconds as MM:SS; minutes keep counting past an hour.
func clock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
