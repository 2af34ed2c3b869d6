package storage

import (
	"errors"
	"io/fs"
	"strings"
)

// AppendToSection appends bullet lines under "## header" in the note at
// path, creating the note and the section when missing. Lines already
// present in the section are skipped. It returns the number of lines added.
func AppendToSection(p Provider, path, header string, lines []string) (int, error) {
	data, err := p.Read(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}

	text := strings.TrimRight(string(data), "\n")
	var doc []string
	if text != "" {
		doc = strings.Split(text, "\n")
	}

	start := -1
	for i, l := range doc {
		if isHeader(l) && strings.EqualFold(headerText(l), header) {
			start = i
			break
		}
	}
	if start < 0 {
		if len(doc) > 0 {
			doc = append(doc, "")
		}
		doc = append(doc, "## "+header)
		start = len(doc) - 1
	}

	end := len(doc)
	for i := start + 1; i < len(doc); i++ {
		if isHeader(doc[i]) {
			end = i
			break
		}
	}
	insertAt := end
	for insertAt > start+1 && strings.TrimSpace(doc[insertAt-1]) == "" {
		insertAt--
	}

	existing := make(map[string]struct{})
	for _, l := range doc[start+1 : end] {
		existing[strings.TrimSpace(l)] = struct{}{}
	}
	var add []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if !strings.HasPrefix(l, "- ") {
			l = "- " + l
		}
		if _, dup := existing[l]; dup {
			continue
		}
		existing[l] = struct{}{}
		add = append(add, l)
	}
	if len(add) == 0 {
		return 0, nil
	}

	out := make([]string, 0, len(doc)+len(add))
	out = append(out, doc[:insertAt]...)
	out = append(out, add...)
	out = append(out, doc[insertAt:]...)
	return len(add), p.Write(path, []byte(strings.Join(out, "\n")+"\n"))
}

func isHeader(l string) bool { return strings.HasPrefix(strings.TrimSpace(l), "#") }

func headerText(l string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(l), "#"))
}
