package source

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// 042_2025-09-12_fix-login.md
	numberedName = regexp.MustCompile(`^(\d+)_(\d{4}-\d{2}-\d{2})_(.+)\.[^.]+$`)

	// snapshot-1757638560000.sh
	epochMillis = regexp.MustCompile(`(?:^|\D)(\d{13})(?:\D|$)`)
)

const titlePrefix = "**Title**:"

// DocumentID derives the stable id of a document from its file name.
//
//	NNN_YYYY-MM-DD_title.ext  -> YYYY-MM-DD-TNNNN
//	name with a 13-digit epoch-millisecond stamp -> YYYY-MM-DD-THHMMSS.mmm (UTC)
//	anything else -> base name without extension
func DocumentID(path string) string {
	base := filepath.Base(path)

	if m := numberedName.FindStringSubmatch(base); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return fmt.Sprintf("%s-T%04d", m[2], n)
		}
	}

	if m := epochMillis.FindStringSubmatch(base); m != nil {
		if ms, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return time.UnixMilli(ms).UTC().Format("2006-01-02-T150405.000")
		}
	}

	if id := strings.TrimSuffix(base, filepath.Ext(base)); id != "" {
		return id
	}
	return base
}

// Title returns the value of a "**Title**: " line, else the text of a leading
// "# " heading, else "".
func Title(content string) string {
	var heading string
	leading := true

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if rest, ok := strings.CutPrefix(line, titlePrefix); ok {
			return strings.TrimSpace(rest)
		}
		if line == "" || !leading {
			continue
		}
		leading = false
		if rest, ok := strings.CutPrefix(line, "# "); ok {
			heading = strings.TrimSpace(rest)
		}
	}
	return heading
}
