package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Levels recognized in ghostkeeper log lines, lowest first.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

var (
	textLevel   = regexp.MustCompile(`\blevel=(DEBUG|INFO|WARN|ERROR)\b`)
	jsonLevel   = regexp.MustCompile(`"level":"(DEBUG|INFO|WARN|ERROR)"`)
	prettyLevel = regexp.MustCompile(`^\d{2}:\d{2}:\d{2} (DBG|INF|WRN|ERR) `)

	prettyTags = map[string]string{
		"DBG": LevelDebug,
		"INF": LevelInfo,
		"WRN": LevelWarn,
		"ERR": LevelError,
	}
	rank = map[string]int{
		LevelDebug: 0,
		LevelInfo:  1,
		LevelWarn:  2,
		LevelError: 3,
	}
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Level extracts the level of a line written by any of the logger formats.
// It returns "" when the line carries no level.
func Level(line string) string {
	if m := prettyLevel.FindStringSubmatch(line); m != nil {
		return prettyTags[m[1]]
	}
	if m := jsonLevel.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := textLevel.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// Filter keeps lines at or above min. Lines without a level follow the
// line before them, so multi-line records stay together.
func Filter(lines []string, min string) []string {
	floor, ok := rank[strings.ToUpper(min)]
	if !ok || floor == 0 {
		return lines
	}
	out := make([]string, 0, len(lines))
	keep := false
	for _, line := range lines {
		if lvl := Level(line); lvl != "" {
			keep = rank[lvl] >= floor
		}
		if keep {
			out = append(out, line)
		}
	}
	return out
}
