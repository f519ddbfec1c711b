package templates

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// ReminderLine is one hearing listed in a reminder email
type ReminderLine struct {
	CaseNumber string
	CaseTitle  string
	Court      string
	Date       time.Time
	Time       string
	Purpose    string
}

// RenderHearingReminderEmail lists tomorrow's hearings for one advocate
func RenderHearingReminderEmail(advocateName string, lines []ReminderLine) string {
	var b strings.Builder
	name := strings.TrimSpace(advocateName)
	if name == "" {
		name = "Counsel"
	}
	fmt.Fprintf(&b, "<p>Dear %s,</p>", html.EscapeString(name))
	fmt.Fprintf(&b, "<p>You have %d hearing(s) in the next 24 hours.</p>", len(lines))
	b.WriteString("<table><tr><th>Case</th><th>Court</th><th>When</th><th>Purpose</th></tr>")
	for _, l := range lines {
		when := l.Date.Format("02 Jan 2006")
		if l.Time != "" {
			when += " " + l.Time
		}
		fmt.Fprintf(&b, "<tr><td>%s<br>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(l.CaseNumber),
			html.EscapeString(l.CaseTitle),
			html.EscapeString(l.Court),
			html.EscapeString(when),
			html.EscapeString(l.Purpose),
		)
	}
	b.WriteString("</table>")
	return renderLayout("Upcoming hearings", b.String())
}

// HearingReminderText is the plain text alternative of the reminder email
func HearingReminderText(lines []ReminderLine) string {
	var b strings.Builder
	b.WriteString("Upcoming hearings in the next 24 hours:\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "- %s (%s) at %s on %s", l.CaseNumber, l.CaseTitle, l.Court, l.Date.Format("02 Jan 2006"))
		if l.Time != "" {
			fmt.Fprintf(&b, " %s", l.Time)
		}
		if l.Purpose != "" {
			fmt.Fprintf(&b, ": %s", l.Purpose)
		}
		b.WriteString("\n")
	}
	return b.String()
}
