package notify

import (
	"fmt"
	"strings"

	"krewup/internal/models"
)

// FormatJobAlert renders a job alert in Telegram MarkdownV2.
func FormatJobAlert(job *models.Job, distanceKm float64) string {
	var sb strings.Builder

	sb.WriteString("🔔 *New job near you*\n\n")
	sb.WriteString(fmt.Sprintf("*%s*\n", EscapeMarkdown(job.Title)))

	if job.EmployerName != "" {
		sb.WriteString(fmt.Sprintf("🏢 %s\n", EscapeMarkdown(job.EmployerName)))
	}

	sb.WriteString(fmt.Sprintf("🛠 %s\n", EscapeMarkdown(job.Trade)))

	if job.Location != "" {
		sb.WriteString(fmt.Sprintf("📍 %s\n", EscapeMarkdown(job.Location)))
	}

	sb.WriteString(fmt.Sprintf("📏 %s km away\n", EscapeMarkdown(fmt.Sprintf("%.1f", distanceKm))))

	return sb.String()
}

func EscapeMarkdown(text string) string {
	// \ _ * [ ] ( ) ~ ` > # + - = | { } . !
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"(", "\\(",
		")", "\\)",
		"~", "\\~",
		"`", "\\`",
		">", "\\>",
		"#", "\\#",
		"+", "\\+",
		"-", "\\-",
		"=", "\\=",
		"|", "\\|",
		"{", "\\{",
		"}", "\\}",
		".", "\\.",
		"!", "\\!",
	)

	return replacer.Replace(text)
}
