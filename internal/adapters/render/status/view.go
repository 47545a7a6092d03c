package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/modal-accounts-cli/internal/application"
	"github.com/bnema/modal-accounts-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultBalanceScale = 80.0
	barWidth            = 24
	usernameColumn      = 16
)

type RenderOptions struct {
	Now time.Time
	// BalanceScale is the balance drawn as a full bar.
	BalanceScale float64
	Pending      []application.PendingSwitch
}

func renderView(overview application.Overview, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Modal Accounts"),
		s.header.Render(fmt.Sprintf("accounts: %d/%d  total: $%.2f  available: %d  minimum: $%.2f",
			len(overview.Accounts), overview.MaxAccounts, overview.TotalBalance, overview.Available(), overview.MinBalance)),
		s.detail.Render(sessionLine(overview.Session, opts.Now)),
	}

	if len(overview.SetupsInFlight) > 0 {
		lines = append(lines, s.detail.Render("setup running: "+strings.Join(overview.SetupsInFlight, ", ")))
	}
	for _, pending := range opts.Pending {
		lines = append(lines, s.warning.Render(fmt.Sprintf("auto-switch away from %s %s", pending.Username, formatDeadline(pending.Deadline, opts.Now))))
	}

	if len(overview.Accounts) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured. Add one with `ma account add`."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	rows := make([]string, 0, len(overview.Accounts))
	for _, account := range overview.Accounts {
		rows = append(rows, accountLine(account, overview.MinBalance, opts, s))
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func sessionLine(session domain.SessionStatus, now time.Time) string {
	if session.Deployment == nil {
		return "session: " + string(session.State)
	}

	deployment := session.Deployment
	readiness := "booting"
	if session.Ready {
		readiness = "ready"
	}

	line := fmt.Sprintf("session: %s %s on %s (%s)", session.State, deployment.Username, deployment.GPU, readiness)
	if !deployment.StartedAt.IsZero() && !now.IsZero() {
		line += ", up " + formatUptime(now.Sub(deployment.StartedAt))
	}
	if deployment.ComfyUIURL != "" {
		line += "  " + deployment.ComfyUIURL
	}

	return line
}

func accountLine(account domain.Account, minBalance float64, opts RenderOptions, s styles) string {
	marker := " "
	name := s.account.Render(padRight(account.Username, usernameColumn))
	if account.IsActive {
		marker = s.active.Render("●")
		name = s.active.Render(padRight(account.Username, usernameColumn))
	}

	scale := opts.BalanceScale
	if scale <= 0 {
		scale = defaultBalanceScale
	}
	fraction := account.Balance / scale

	balanceStyle := lipgloss.NewStyle().Foreground(interpolateColor(fraction, 0, 1))
	parts := []string{
		marker,
		" ",
		name,
		" ",
		renderBalanceBar(fraction, barWidth, s),
		" ",
		balanceStyle.Render(fmt.Sprintf("$%7.2f", account.Balance)),
		" ",
		s.status(account.Status).Render(padRight(string(account.Status), len(domain.StatusBuilding))),
	}
	if account.SelectedGPU != "" {
		parts = append(parts, " ", s.detail.Render(account.SelectedGPU))
	}
	if account.BelowThreshold(minBalance) {
		parts = append(parts, " ", s.warning.Render("[low]"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func renderBalanceBar(fraction float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampFraction(fraction)))
	empty := width - filled

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", empty)),
		s.barBracket.Render("]"),
	)
}

func clampFraction(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func padRight(value string, width int) string {
	if len(value) >= width {
		return value
	}
	return value + strings.Repeat(" ", width-len(value))
}

func formatDeadline(deadline, now time.Time) string {
	if deadline.IsZero() {
		return "pending"
	}
	if now.IsZero() {
		return "at " + deadline.Format("15:04")
	}
	if !deadline.After(now) {
		return "now"
	}

	minutes := int(math.Ceil(deadline.Sub(now).Minutes()))
	suffix := "minutes"
	if minutes == 1 {
		suffix = "minute"
	}

	return fmt.Sprintf("in %d %s (%s)", minutes, suffix, deadline.Format("15:04"))
}

func formatUptime(d time.Duration) string {
	if d < time.Minute {
		return "<1m"
	}
	d = d.Truncate(time.Minute)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}

	return fmt.Sprintf("%dh%02dm", hours, minutes)
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp from 240 to 255.
	baseColor := 240.0
	targetColor := 255.0
	colorCode := int(baseColor + (targetColor-baseColor)*normalized)

	return lipgloss.Color(fmt.Sprintf("%d", colorCode))
}
