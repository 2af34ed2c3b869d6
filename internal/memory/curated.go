package memory

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/starford/maxwell/internal/storage"
)

// CuratedFile is one hand-maintained memory file.
type CuratedFile struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

var curatedFiles = []struct{ name, title string }{
	{"RESET.md", "Operational Context"},
	{"MEMORY.md", "Stable Preferences"},
	{"USER.md", "About You"},
}

// LoadCurated reads RESET.md, MEMORY.md and USER.md from p, skipping any
// that do not exist.
func LoadCurated(p storage.Provider) ([]CuratedFile, error) {
	var out []CuratedFile
	for _, f := range curatedFiles {
		data, err := p.Read(f.name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		out = append(out, CuratedFile{Name: f.name, Title: f.title, Body: string(data)})
	}
	return out, nil
}

// FormatCurated renders curated files for prompt injection.
func FormatCurated(files []CuratedFile) string {
	parts := make([]string, 0, len(files))
	for _, f := range files {
		parts = append(parts, "# "+f.Title+" ("+f.Name+")\n"+f.Body)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// CuratedMemory returns the formatted curated memory, or "" when no curated
// directory is configured.
func (s *Service) CuratedMemory() (string, error) {
	if s.curated == nil {
		return "", nil
	}
	files, err := LoadCurated(s.curated)
	if err != nil {
		return "", err
	}
	return FormatCurated(files), nil
}
