// Package output provides styled terminal output helpers (success, error,
// warning, store and visit formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/marcus/visita/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	visitedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	probStyles   = map[models.PurchaseProb]lipgloss.Style{
		models.ProbHigh: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.ProbLow:  lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	}
	statusStyles = map[models.VisitStatus]lipgloss.Style{
		models.VisitPending: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.VisitDone:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// JSON outputs data as JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// FormatProb formats a purchase probability with color
func FormatProb(p models.PurchaseProb) string {
	style, ok := probStyles[p]
	if !ok {
		return string(p)
	}
	return style.Render(fmt.Sprintf("[%s]", p))
}

// FormatVisitStatus formats an appointment status with color
func FormatVisitStatus(s models.VisitStatus) string {
	style, ok := statusStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// FormatVisitDays renders weekday numbers as short names, e.g. "Mon, Wed"
func FormatVisitDays(days []int) string {
	if len(days) == 0 {
		return ""
	}
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d < len(weekdayNames) {
			names = append(names, weekdayNames[d])
		}
	}
	return strings.Join(names, ", ")
}

// VisitedBadge returns a check mark for stores visited in the last week
func VisitedBadge(s *models.Store, now time.Time) string {
	if s.RecentlyVisited(now) {
		return visitedStyle.Render("✓")
	}
	return subtleStyle.Render("·")
}

// FormatStoreShort formats a store in short single-line format
func FormatStoreShort(s *models.Store, now time.Time) string {
	var parts []string
	parts = append(parts, VisitedBadge(s, now))
	parts = append(parts, titleStyle.Render(fmt.Sprintf("#%d", s.ID)))
	parts = append(parts, s.Name)
	if s.Region != "" {
		parts = append(parts, subtleStyle.Render(s.Region))
	}
	parts = append(parts, FormatProb(s.PurchaseProb))
	if days := FormatVisitDays(s.VisitDays); days != "" {
		parts = append(parts, subtleStyle.Render(days))
	}
	return strings.Join(parts, "  ")
}

// FormatStoreLong formats a store with its orders and visit history.
// Note lines are truncated to width columns; width <= 0 disables
// truncation.
func FormatStoreLong(s *models.Store, now time.Time, width int) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("#%d: %s", s.ID, s.Name)))
	sb.WriteString("\n")
	if s.Region != "" {
		sb.WriteString(fmt.Sprintf("Region: %s\n", s.Region))
	}
	if s.SellerName != "" {
		sb.WriteString(fmt.Sprintf("Seller: %s\n", s.SellerName))
	}
	if s.Address != "" {
		sb.WriteString(fmt.Sprintf("Address: %s\n", s.Address))
	}
	if s.Phone != "" {
		sb.WriteString(fmt.Sprintf("Phone: %s\n", s.Phone))
	}
	sb.WriteString(fmt.Sprintf("Ideal time: %s | Probability: %s", s.IdealTime, FormatProb(s.PurchaseProb)))
	if days := FormatVisitDays(s.VisitDays); days != "" {
		sb.WriteString(fmt.Sprintf(" | Days: %s", days))
	}
	sb.WriteString("\n")
	if s.LastVisit != nil {
		sb.WriteString(fmt.Sprintf("Last visit: %s\n", FormatTimeAgo(*s.LastVisit)))
	}

	if s.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(subtleStyle.Render("Notes:"))
		sb.WriteString("\n")
		for _, line := range strings.Split(s.Description, "\n") {
			if width > 0 {
				line = Truncate(line, width)
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}

	if len(s.Orders) > 0 {
		sb.WriteString("\nORDERS:\n")
		for _, o := range s.Orders {
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", o.Date, formatOrderItems(o)))
		}
	}

	if len(s.VisitLogs) > 0 {
		sb.WriteString("\nVISIT HISTORY:\n")
		for _, l := range s.VisitLogs {
			line := fmt.Sprintf("  %s  %s", l.VisitedAt.Format("2006-01-02 15:04"), l.VisitType)
			if l.Note != "" {
				line += "  " + l.Note
			}
			sb.WriteString(line + "\n")
		}
	}

	return sb.String()
}

func formatOrderItems(o models.Order) string {
	if len(o.Items) == 0 {
		return o.Text
	}
	parts := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.ProductName, item.Count))
	}
	s := strings.Join(parts, ", ")
	if o.Text != "" {
		s += "  (" + o.Text + ")"
	}
	return s
}

// FormatVisit formats a scheduled appointment as a single line
func FormatVisit(v *models.Visit) string {
	var parts []string
	parts = append(parts, titleStyle.Render(fmt.Sprintf("#%d", v.ID)))
	when := v.VisitDate
	if v.VisitTime != "" {
		when += " " + v.VisitTime
	}
	parts = append(parts, when)
	if v.StoreName != "" {
		parts = append(parts, v.StoreName)
	}
	if v.StoreRegion != "" {
		parts = append(parts, subtleStyle.Render(v.StoreRegion))
	}
	if v.Note != "" {
		parts = append(parts, subtleStyle.Render(v.Note))
	}
	parts = append(parts, FormatVisitStatus(v.Status))
	return strings.Join(parts, "  ")
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}
