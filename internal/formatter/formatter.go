// package formatter renders track lists for export (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/shared"
)

// Format is an export file format.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "txt"
)

// ParseFormat accepts the format names and their common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "txt", "text", "":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// FormatDuration renders d as m:ss.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ExportToCSV converts tracks to CSV with columns: Spotify ID, Name, Artists, Album, Duration, Preview URL
func ExportToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Spotify ID", "Name", "Artists", "Album", "Duration", "Preview URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		duration := ""
		if track.DurationMS != nil {
			duration = strconv.Itoa(*track.DurationMS / 1000)
		}
		record := []string{
			track.SpotifyTrackID,
			track.Name,
			value(track.Artists),
			value(track.AlbumName),
			duration,
			value(track.PreviewURL),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts tracks to a Markdown document headed by title.
func ExportToMarkdown(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(tracks)))

	for i, track := range tracks {
		albumPart := ""
		if album := value(track.AlbumName); album != "" {
			albumPart = fmt.Sprintf(" (%s)", album)
		}
		line := fmt.Sprintf("%d. %s - %s%s [%s]", i+1, artists(track), track.Name, albumPart, FormatDuration(track.Duration()))
		if preview := value(track.PreviewURL); preview != "" {
			line += fmt.Sprintf(" [preview](%s)", preview)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts tracks to a numbered plain text list.
func ExportToText(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s\n", title))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, artists(track), track.Name))
	}

	return buf.Bytes(), nil
}

func artists(track models.Track) string {
	if a := value(track.Artists); a != "" {
		return a
	}
	return "Unknown artist"
}

// Export renders tracks in format.
func Export(format Format, title string, tracks []models.Track) ([]byte, error) {
	switch format {
	case CSV:
		return ExportToCSV(tracks)
	case Markdown:
		return ExportToMarkdown(title, tracks)
	case Text:
		return ExportToText(title, tracks)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteExport renders tracks and writes them to path.
//
// Defaults to saved_tracks.{format} in the working directory. Returns the path written.
func WriteExport(format Format, path, title string, tracks []models.Track) (string, error) {
	if path == "" {
		path = "saved_tracks." + string(format)
	}

	data, err := Export(format, title, tracks)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
