package subtitle

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUndecodable reports subtitle bytes that could not be decoded as text in
// any of the attempted encodings.
var ErrUndecodable = fmt.Errorf("subtitle data is not valid text")

// Parse decodes SRT bytes into a track. Malformed blocks are dropped rather
// than failing the whole file; a file with zero valid blocks yields an empty
// track and no error. The result is sorted by (start, end).
func Parse(data []byte) (Track, error) {
	content, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return Track{}, nil
	}

	var track Track
	for _, block := range strings.Split(content, "\n\n") {
		cue, ok := parseBlock(block)
		if !ok {
			continue
		}
		track = append(track, cue)
	}
	if track == nil {
		return Track{}, nil
	}
	track.Sort()
	return track, nil
}

// ParseFile reads and parses an SRT file.
func ParseFile(path string) (Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	track, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return track, nil
}

// Serialize renders a track as SRT bytes. Indices are renumbered 1..N in
// output order regardless of the stored cue indices.
func Serialize(track Track) []byte {
	var sb strings.Builder
	for i, cue := range track {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("\n")
		sb.WriteString(FormatTimestamp(cue.Start))
		sb.WriteString(" --> ")
		sb.WriteString(FormatTimestamp(cue.End))
		sb.WriteString("\n")
		sb.WriteString(cue.Text)
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// WriteFile serializes the track and writes it atomically: the content lands
// in a temp file in the target directory which is then renamed into place, so
// a failed write never leaves a partial track behind.
func WriteFile(path string, track Track) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp track: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(Serialize(track)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write track: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close track: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("finalize track: %w", err)
	}
	return nil
}

// decodeText attempts plain UTF-8 first, then a BOM-directed decode that
// covers UTF-8-sig and UTF-16 variants.
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return strings.TrimPrefix(string(data), "\ufeff"), nil
	}
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err == nil && utf8.Valid(decoded) {
		return strings.TrimPrefix(string(decoded), "\ufeff"), nil
	}
	return "", ErrUndecodable
}

// parseBlock extracts a cue from one SRT block. Blocks missing an index line,
// a timecode line, or whose end does not exceed the start are rejected.
func parseBlock(block string) (Cue, bool) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	if len(lines) < 2 {
		return Cue{}, false
	}

	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil || index < 1 {
		return Cue{}, false
	}

	parts := strings.Split(lines[1], "-->")
	if len(parts) != 2 {
		return Cue{}, false
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return Cue{}, false
	}
	end, err := ParseTimestamp(parts[1])
	if err != nil {
		return Cue{}, false
	}
	if end <= start {
		return Cue{}, false
	}

	text := ""
	if len(lines) > 2 {
		text = strings.Join(lines[2:], "\n")
	}
	return Cue{Index: index, Start: start, End: end, Text: text}, true
}

// ParseTimestamp parses an SRT timestamp (HH:MM:SS,mmm). A period before the
// milliseconds is tolerated since some writers emit it.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

// FormatTimestamp renders a duration as an SRT timestamp, truncated to
// millisecond resolution.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	millis := d.Milliseconds()
	hours := millis / 3_600_000
	millis -= hours * 3_600_000
	minutes := millis / 60_000
	millis -= minutes * 60_000
	seconds := millis / 1_000
	millis -= seconds * 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
