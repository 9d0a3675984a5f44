// package formatter renders track lists to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/songgraph/internal/models"
)

// formatDuration renders a track length in milliseconds as m:ss.
func formatDuration(durationMS int) string {
	seconds := durationMS / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// TracksToCSV converts a track list to CSV with columns: ID, Name, Artists, Album, Duration, Popularity, Valence, Energy, Danceability, Tempo
func TracksToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artists", "Album", "Duration", "Popularity", "Valence", "Energy", "Danceability", "Tempo"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ID,
			track.Name,
			strings.Join(track.ArtistNames, "; "),
			track.AlbumName,
			formatDuration(track.DurationMS),
			strconv.Itoa(track.Popularity),
			strconv.FormatFloat(track.Valence, 'f', 3, 64),
			strconv.FormatFloat(track.Energy, 'f', 3, 64),
			strconv.FormatFloat(track.Danceability, 'f', 3, 64),
			strconv.FormatFloat(track.Tempo, 'f', 1, 64),
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

// TracksToMarkdown converts a track list to a Markdown document.
func TracksToMarkdown(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		albumPart := ""
		if track.AlbumName != "" {
			albumPart = fmt.Sprintf(" (%s)", track.AlbumName)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n",
			i+1, strings.Join(track.ArtistNames, ", "), track.Name, albumPart, formatDuration(track.DurationMS)))
	}

	return buf.Bytes(), nil
}

// TracksToText converts a track list to plain text.
func TracksToText(title string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s\n", title))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(tracks)))

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, strings.Join(track.ArtistNames, ", "), track.Name))
	}

	return buf.Bytes(), nil
}

// WriteTracks renders the track list in the named format ("csv", "markdown"
// or "text") and writes it to path.
func WriteTracks(tracks []models.Track, title, path, format string) (string, error) {
	var data []byte
	var err error

	switch format {
	case "csv":
		data, err = TracksToCSV(tracks)
	case "markdown", "md":
		data, err = TracksToMarkdown(title, tracks)
	case "text", "txt":
		data, err = TracksToText(title, tracks)
	default:
		return "", fmt.Errorf("unknown format: %s", format)
	}
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}
