package formatter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/shared"
	th "github.com/desertthunder/cur8/internal/testing"
)

func ptr[T any](v T) *T { return &v }

func sampleTracks() []models.Track {
	return []models.Track{
		{
			SpotifyTrackID: "sp1",
			Name:           "Song One",
			Artists:        ptr("Artist One, Artist Two"),
			AlbumName:      ptr("Album One"),
			DurationMS:     ptr(185000),
			PreviewURL:     ptr("https://p.scdn.co/mp3-preview/1"),
		},
		{
			SpotifyTrackID: "sp2",
			Name:           "Song Two",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"csv", CSV},
		{"CSV", CSV},
		{"markdown", Markdown},
		{"md", Markdown},
		{"text", Text},
		{"", Text},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil {
			t.Fatalf("ParseFormat(%q) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(185 * time.Second); got != "3:05" {
		t.Errorf("expected 3:05, got %s", got)
	}
	if got := FormatDuration(0); got != "0:00" {
		t.Errorf("expected 0:00, got %s", got)
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleTracks())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Spotify ID,Name,Artists,Album,Duration,Preview URL") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `sp1,Song One,"Artist One, Artist Two",Album One,185,https://p.scdn.co/mp3-preview/1`) {
			t.Errorf("CSV missing first record, got: %s", output)
		}
		if !strings.Contains(output, "sp2,Song Two,,,,") {
			t.Errorf("expected empty columns for missing metadata, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown("Liked Songs", sampleTracks())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "# Liked Songs\n") {
			t.Errorf("Markdown missing title, got: %s", output)
		}
		if !strings.Contains(output, "**Tracks**: 2") {
			t.Error("Markdown missing track count")
		}
		if !strings.Contains(output, "1. Artist One, Artist Two - Song One (Album One) [3:05] [preview](https://p.scdn.co/mp3-preview/1)") {
			t.Errorf("Markdown missing first track, got: %s", output)
		}
		if !strings.Contains(output, "2. Unknown artist - Song Two [0:00]") {
			t.Errorf("Markdown missing second track, got: %s", output)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText("Liked Songs", sampleTracks())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Tracks: 2") {
			t.Error("text missing track count")
		}
		if !strings.Contains(output, "1. Artist One, Artist Two - Song One") {
			t.Errorf("text missing first track, got: %s", output)
		}
	})

	t.Run("Export rejects unknown formats", func(t *testing.T) {
		if _, err := Export(Format("xml"), "", nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("WithDefaultPath", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteExport(CSV, "", "Liked Songs", sampleTracks())
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if path != "saved_tracks.csv" {
			t.Errorf("expected default path, got %s", path)
		}

		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "Song One") {
			t.Errorf("unexpected export content: %s", content)
		}
	})

	t.Run("WithCustomPath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "liked.md")

		got, err := WriteExport(Markdown, path, "Liked Songs", sampleTracks())
		if err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		th.AssertFileExists(t, path)
	})

	t.Run("WithUnwritablePath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "dir", "out.txt")

		if _, err := WriteExport(Text, path, "Liked Songs", nil); err == nil {
			t.Fatal("expected error writing into a missing directory")
		}
		if _, err := os.Stat(path); err == nil {
			t.Error("expected no file to be written")
		}
	})
}
