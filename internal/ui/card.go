package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/cur8/internal/formatter"
	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/swipe"
)

// Terminal cells per gesture unit.
const (
	cardWidth      = 44
	unitsPerColumn = 8.0
	unitsPerRow    = 40.0
	baseTopMargin  = 3
	maxSkew        = 3.0
)

// renderCard draws track displaced by pose inside a terminal of width columns.
//
// Rotation is drawn as a horizontal skew: a clockwise pose pushes the top of the card right and the bottom left.
func renderCard(track *models.Track, pose swipe.Pose, width int) string {
	var b strings.Builder
	b.WriteString(styles.title.UnsetMarginBottom().Render(track.Name))
	b.WriteString("\n")
	b.WriteString(deref(track.Artists, "Unknown artist"))
	if track.AlbumName != nil && *track.AlbumName != "" {
		b.WriteString("\n")
		b.WriteString(styles.muted.Render(*track.AlbumName))
	}
	b.WriteString("\n\n")

	if d := track.Duration(); d > 0 {
		b.WriteString(styles.muted.Render(formatter.FormatDuration(d)))
		b.WriteString("  ")
	}
	if track.PreviewURL != nil {
		b.WriteString(styles.ok.Render("♪ Preview"))
	} else {
		b.WriteString(styles.muted.Render("No preview"))
	}

	box := styles.cardBorder(pose.X, swipe.SwipeThreshold).Width(cardWidth).Render(b.String())
	if stamp := stampFor(pose.X); stamp != "" {
		box = lipgloss.JoinVertical(lipgloss.Center, stamp, box)
	} else {
		box = "\n" + box
	}

	return displace(box, pose, width)
}

func stampFor(offset float64) string {
	switch {
	case offset > swipe.SwipeThreshold:
		return styles.ok.Render("KEEP ♥")
	case offset < -swipe.SwipeThreshold:
		return styles.err.Render("✗ REMOVE")
	default:
		return ""
	}
}

// displace shifts and skews a rendered block according to pose.
func displace(block string, pose swipe.Pose, width int) string {
	lines := strings.Split(block, "\n")

	base := 2
	if width > 0 {
		base = max(0, (width-lipgloss.Width(block))/2)
	}
	shift := int(math.Round(pose.X / unitsPerColumn))
	top := max(0, baseTopMargin+int(math.Round(pose.Y/unitsPerRow)))

	mid := float64(len(lines)-1) / 2
	var b strings.Builder
	b.WriteString(strings.Repeat("\n", top))
	for i, line := range lines {
		skew := 0.0
		if mid > 0 {
			skew = pose.Rotate / swipe.RotationRange * (mid - float64(i)) / mid * maxSkew
		}
		indent := max(0, base+shift+int(math.Round(skew)))
		b.WriteString(strings.Repeat(" ", indent))
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
