// Package parser turns a bullet-structured Markdown note into typed line records.
package parser

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// IndentWidth is the number of leading spaces per bullet depth level.
const IndentWidth = 4

// LineKind is the type of a parsed line.
type LineKind int

const (
	LineOther LineKind = iota
	LineHeader
	LineBullet
)

func (k LineKind) String() string {
	switch k {
	case LineHeader:
		return "header"
	case LineBullet:
		return "bullet"
	default:
		return "other"
	}
}

var (
	bulletRe   = regexp.MustCompile(`^([ \t]*)- (.+)$`)
	dateFileRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\.md$`)
)

// Line is one parsed line of a note.
type Line struct {
	// Number is the 1-based line number in the source file.
	Number int
	Kind   LineKind
	// Depth is floor(leading spaces / IndentWidth); tabs count as IndentWidth spaces.
	Depth int
	// Content is the bullet text after "- " or the header text without leading '#'.
	Content string
	Raw     string
}

// HeaderText returns the normalized (lowercased, trimmed) header text.
func (l Line) HeaderText() string {
	return strings.ToLower(strings.TrimSpace(l.Content))
}

// Result holds the output of parsing a note.
type Result struct {
	Frontmatter map[string]interface{}
	Lines       []Line
}

// Parse splits data into line records. A leading YAML frontmatter block is
// decoded into Frontmatter and its lines are reported as LineOther.
func Parse(data []byte) *Result {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	raw := strings.Split(text, "\n")

	fm, fmLines := splitFrontmatter(data)

	lines := make([]Line, 0, len(raw))
	for i, r := range raw {
		l := Line{Number: i + 1, Raw: r}
		if i >= fmLines {
			classify(&l)
		}
		lines = append(lines, l)
	}
	return &Result{Frontmatter: fm, Lines: lines}
}

func classify(l *Line) {
	trimmed := strings.TrimSpace(l.Raw)
	if strings.HasPrefix(trimmed, "#") {
		l.Kind = LineHeader
		l.Content = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		return
	}
	m := bulletRe.FindStringSubmatch(l.Raw)
	if m == nil {
		return
	}
	l.Kind = LineBullet
	l.Depth = indentWidth(m[1]) / IndentWidth
	l.Content = m[2]
}

func indentWidth(ws string) int {
	n := 0
	for _, r := range ws {
		if r == '\t' {
			n += IndentWidth
		} else {
			n++
		}
	}
	return n
}

// splitFrontmatter decodes a leading "---" YAML block and returns the number
// of source lines it occupies. Invalid or unterminated blocks count as body.
func splitFrontmatter(data []byte) (map[string]interface{}, int) {
	const delim = "---"
	if !bytes.HasPrefix(data, []byte(delim+"\n")) && !bytes.HasPrefix(data, []byte(delim+"\r\n")) {
		return nil, 0
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " ") != delim {
			continue
		}
		var fm map[string]interface{}
		if err := yaml.Unmarshal([]byte(strings.Join(lines[1:i], "\n")), &fm); err != nil {
			return nil, 0
		}
		return fm, i + 1
	}
	return nil, 0
}

// DateFromFilename returns the YYYY-MM-DD date encoded in a daily-note file
// name, or "" when the name does not follow that convention.
func DateFromFilename(path string) string {
	m := dateFileRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return ""
	}
	if _, err := time.Parse(time.DateOnly, m[1]); err != nil {
		return ""
	}
	return m[1]
}
