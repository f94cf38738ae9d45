package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/solace-app/solace/internal/model"
	"github.com/solace-app/solace/internal/progress"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	quoteStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Italic(true)
	authorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	lockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pointsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	// one style per intensity bucket, darkest to brightest
	bucketStyles = [6]lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("22")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("28")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
	}

	tierBadges = map[model.Tier]string{
		model.TierBronze: "●",
		model.TierSilver: "●●",
		model.TierGold:   "●●●",
	}
)

// RenderQuote formats a delivered quote for the terminal.
func RenderQuote(text, author, channel string) string {
	lines := []string{quoteStyle.Render(text)}
	if author != "" {
		lines = append(lines, authorStyle.Render("— "+author))
	}
	lines = append(lines, authorStyle.Render("channel: "+channel))
	return strings.Join(lines, "\n")
}

// RenderStats shows the streaks and a one-row heatmap, oldest day first.
func RenderStats(current, longest int, cells []progress.HeatmapDay) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Activity"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("current streak: %d day(s)   longest: %d day(s)\n", current, longest))
	b.WriteString(RenderHeatmap(cells))
	return b.String()
}

// RenderHeatmap draws one glyph per day, colored by intensity bucket.
func RenderHeatmap(cells []progress.HeatmapDay) string {
	if len(cells) == 0 {
		return ""
	}
	glyphs := make([]string, 0, len(cells))
	for _, c := range cells {
		bucket := c.Bucket
		if bucket < 0 {
			bucket = 0
		}
		if bucket > 5 {
			bucket = 5
		}
		glyphs = append(glyphs, bucketStyles[bucket].Render("■"))
	}
	span := cells[0].Day + " .. " + cells[len(cells)-1].Day
	return strings.Join(glyphs, "") + "\n" + authorStyle.Render(span)
}

// AchievementView is the render-ready projection of one achievement.
type AchievementView struct {
	Title       string
	Description string
	Tier        model.Tier
	Points      int
	Requirement int
	Progress    int
	Unlocked    bool
	Hidden      bool
}

// RenderAchievements lists achievements with tier badges and progress.
// Locked hidden achievements are masked unless showHidden is set.
func RenderAchievements(items []AchievementView, showHidden bool) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Achievements"))
	b.WriteString("\n")
	for _, item := range items {
		badge := tierBadges[item.Tier]
		switch {
		case item.Unlocked:
			b.WriteString(fmt.Sprintf("%s %s %s %s\n", badge, item.Title,
				pointsStyle.Render(fmt.Sprintf("+%d", item.Points)), item.Description))
		case item.Hidden && !showHidden:
			b.WriteString(lockedStyle.Render(fmt.Sprintf("%s ???", badge)))
			b.WriteString("\n")
		default:
			b.WriteString(lockedStyle.Render(fmt.Sprintf("%s %s (%d/%d) %s",
				badge, item.Title, item.Progress, item.Requirement, item.Description)))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
