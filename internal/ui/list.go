package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/swipe"
)

var (
	_ list.Item = reviewedItem{}
)

// reviewedItem wraps a confirmed [swipe.Decision] to implement [list.Item].
type reviewedItem struct {
	decision swipe.Decision
}

func (i reviewedItem) FilterValue() string { return i.decision.Track.Name }

func (i reviewedItem) Title() string {
	mark := styles.ok.Render("✓ kept")
	if i.decision.Action == models.ActionRemove {
		mark = styles.err.Render("✗ removed")
	}
	return fmt.Sprintf("%s  %s", mark, i.decision.Track.Name)
}

func (i reviewedItem) Description() string {
	t := i.decision.Track
	desc := deref(t.Artists, "Unknown artist")
	if t.AlbumName != nil && *t.AlbumName != "" {
		desc = fmt.Sprintf("%s • %s", desc, *t.AlbumName)
	}
	return desc
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
