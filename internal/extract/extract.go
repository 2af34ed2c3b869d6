// Package extract derives entities, observations and relations from parsed notes.
package extract

import (
	"regexp"
	"strings"

	"github.com/starford/maxwell/internal/models"
	"github.com/starford/maxwell/internal/parser"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	urlRe      = regexp.MustCompile(`https?://[^\s)]+`)
	checkboxRe = regexp.MustCompile(`^\[([ xX])\]\s+(.+)$`)
)

// Options controls extraction.
type Options struct {
	// Today (YYYY-MM-DD) is the creation date for notes whose file name
	// carries no date.
	Today string
	// RetainRootAcrossHeaders keeps the root entity and parent stack across
	// headers instead of clearing them. This is the legacy indexer quirk:
	// bullets under an unrelated later header, such as "## Reading", still
	// attach to the last root entity. Off by default, so each header starts
	// a fresh context.
	RetainRootAcrossHeaders bool
}

// EntityMention is an entity touched by an extraction and how often.
type EntityMention struct {
	Entity   models.Entity
	Mentions int
}

// Extraction is the result of extracting one note.
type Extraction struct {
	Path string
	// Date is the file-name date, or "" for undated notes.
	Date         string
	CreatedAt    string
	Entities     []EntityMention
	Observations []models.Observation
	Relations    []models.Relation
}

// Extractor walks the lines of one note.
type Extractor struct {
	state  ExtractionState
	opts   Options
	out    *Extraction
	dateID string

	entityIdx map[string]int
	relSeen   map[string]struct{}
	obsSeen   map[string]struct{}
}

// NewExtractor returns an Extractor for the note at path. When the file name
// carries a date its date entity is registered before any line is seen.
func NewExtractor(path string, opts Options) *Extractor {
	date := parser.DateFromFilename(path)
	created := date
	if created == "" {
		created = opts.Today
	}
	e := &Extractor{
		opts:      opts,
		out:       &Extraction{Path: path, Date: date, CreatedAt: created},
		entityIdx: make(map[string]int),
		relSeen:   make(map[string]struct{}),
		obsSeen:   make(map[string]struct{}),
	}
	if date != "" {
		e.dateID = e.mention(date, models.KindDate, DatePermalink(date))
	}
	return e
}

// Extract parses data and runs every line through a new Extractor.
func Extract(path string, data []byte, opts Options) *Extraction {
	e := NewExtractor(path, opts)
	for _, l := range parser.Parse(data).Lines {
		e.Line(l)
	}
	return e.Result()
}

// State returns a copy of the current extraction state.
func (e *Extractor) State() ExtractionState {
	s := e.state
	s.Stack = append([]frame(nil), e.state.Stack...)
	return s
}

// Result returns the accumulated extraction.
func (e *Extractor) Result() *Extraction { return e.out }

// Line processes one parsed line.
func (e *Extractor) Line(l parser.Line) {
	switch l.Kind {
	case parser.LineHeader:
		e.state.EnterHeader(l.Content, e.opts.RetainRootAcrossHeaders)
	case parser.LineBullet:
		e.bullet(l)
	}
}

func (e *Extractor) bullet(l parser.Line) {
	content := l.Content
	isCheckbox := false
	var completed bool
	if m := checkboxRe.FindStringSubmatch(content); m != nil {
		isCheckbox = true
		completed = m[1] != " "
		content = m[2]
	}
	content = StripComments(content)
	if content == "" {
		return
	}

	parent := e.state.parentFor(l.Depth)
	var linked []string
	for _, name := range wikilinks(content) {
		permalink := Permalink(name)
		if permalink == "" {
			continue
		}
		id := e.mention(name, models.KindProject, permalink)
		if l.Depth == 0 {
			e.state.setRoot(id)
			continue
		}
		if parent != "" {
			e.relate(parent, id, models.RelChildOf)
		}
		linked = append(linked, id)
	}
	for _, id := range linked {
		e.state.push(id, l.Depth)
	}

	for _, u := range urls(content) {
		id := e.mention(u, models.KindURL, URLPermalink(u))
		if e.state.Root != "" {
			e.relate(e.state.Root, id, models.RelReferences)
		}
	}

	owner := e.state.Owner(e.dateID)
	if owner == "" {
		return
	}
	obs := models.Observation{
		ID:         ObservationID(owner, l.Number, content),
		EntityID:   owner,
		Category:   Categorize(content, isCheckbox, e.state.Reserved),
		Content:    content,
		SourceFile: e.out.Path,
		SourceLine: l.Number,
		CreatedAt:  e.out.CreatedAt,
	}
	if isCheckbox {
		obs.Completed = &completed
	}
	if _, dup := e.obsSeen[obs.ID]; dup {
		return
	}
	e.obsSeen[obs.ID] = struct{}{}
	e.out.Observations = append(e.out.Observations, obs)
}

// mention registers one mention of an entity and returns its id.
func (e *Extractor) mention(name string, kind models.EntityKind, permalink string) string {
	id := EntityID(permalink)
	if i, ok := e.entityIdx[id]; ok {
		e.out.Entities[i].Mentions++
		return id
	}
	e.entityIdx[id] = len(e.out.Entities)
	e.out.Entities = append(e.out.Entities, EntityMention{
		Entity: models.Entity{
			ID:        id,
			Name:      name,
			Kind:      kind,
			Permalink: permalink,
			FirstSeen: e.out.CreatedAt,
			LastSeen:  e.out.CreatedAt,
		},
		Mentions: 1,
	})
	return id
}

func (e *Extractor) relate(from, to string, typ models.RelationType) {
	if from == to {
		return
	}
	id := RelationID(from, to, typ)
	if _, ok := e.relSeen[id]; ok {
		return
	}
	e.relSeen[id] = struct{}{}
	e.out.Relations = append(e.out.Relations, models.Relation{
		ID:         id,
		FromID:     from,
		ToID:       to,
		Type:       typ,
		SourceFile: e.out.Path,
		CreatedAt:  e.out.CreatedAt,
	})
}

// wikilinks returns the deduplicated link targets of s, dropping aliases.
func wikilinks(s string) []string {
	matches := wikilinkRe.FindAllStringSubmatch(s, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1]
		if i := strings.Index(target, "|"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

func urls(s string) []string {
	matches := urlRe.FindAllString(s, -1)
	seen := make(map[string]struct{}, len(matches))
	out := matches[:0]
	for _, u := range matches {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
