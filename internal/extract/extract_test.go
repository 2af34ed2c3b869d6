package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/maxwell/internal/models"
	"github.com/starford/maxwell/internal/parser"
)

func byContent(t *testing.T, ex *Extraction, content string) models.Observation {
	t.Helper()
	for _, o := range ex.Observations {
		if o.Content == content {
			return o
		}
	}
	t.Fatalf("no observation with content %q", content)
	return models.Observation{}
}

func entityByPermalink(ex *Extraction, permalink string) (EntityMention, bool) {
	for _, e := range ex.Entities {
		if e.Entity.Permalink == permalink {
			return e, true
		}
	}
	return EntityMention{}, false
}

func TestExtract_EmailActionsLandOnDateEntity(t *testing.T) {
	src := "- [[Maxwell]]\n    - some task\n## Email Actions\n- [10:00] replied to test@example.com: \"Test\"\n"
	ex := Extract("daily/2026-01-30.md", []byte(src), Options{Today: "2026-02-01"})

	maxwell := EntityID(Permalink("Maxwell"))
	dateID := EntityID(DatePermalink("2026-01-30"))

	task := byContent(t, ex, "some task")
	assert.Equal(t, maxwell, task.EntityID)
	assert.Equal(t, 2, task.SourceLine)
	assert.Equal(t, "2026-01-30", task.CreatedAt)

	email := byContent(t, ex, `[10:00] replied to test@example.com: "Test"`)
	assert.Equal(t, dateID, email.EntityID)
	assert.Equal(t, models.CategoryNote, email.Category)

	date, ok := entityByPermalink(ex, "date:2026-01-30")
	require.True(t, ok)
	assert.Equal(t, models.KindDate, date.Entity.Kind)
	assert.Equal(t, "2026-01-30", date.Entity.Name)
}

func TestExtract_RetainRootAcrossHeaders(t *testing.T) {
	src := "- [[Maxwell]]\n## Email Actions\n- replied to someone\n"
	ex := Extract("daily/2026-01-30.md", []byte(src), Options{RetainRootAcrossHeaders: true})

	obs := byContent(t, ex, "replied to someone")
	assert.Equal(t, EntityID("maxwell"), obs.EntityID)
}

func TestExtract_ReservedHeaderCategorizesReference(t *testing.T) {
	src := "## Reading\n- Some article title\n- https://example.com/post\n## Notes\n- plain again\n"
	ex := Extract("daily/2026-01-30.md", []byte(src), Options{})

	assert.Equal(t, models.CategoryReference, byContent(t, ex, "Some article title").Category)
	assert.Equal(t, models.CategoryReference, byContent(t, ex, "https://example.com/post").Category)
	assert.Equal(t, models.CategoryNote, byContent(t, ex, "plain again").Category)
}

func TestExtract_StripsHTMLComments(t *testing.T) {
	src := "- [[Maxwell]] merged PR <!-- pr_opened:owner/repo#123 secretword -->\n- <!-- only a comment -->\n"
	ex := Extract("daily/2026-01-30.md", []byte(src), Options{})

	require.Len(t, ex.Observations, 1)
	assert.Equal(t, "[[Maxwell]] merged PR", ex.Observations[0].Content)
	for _, o := range ex.Observations {
		assert.NotContains(t, o.Content, "<!--")
		assert.NotContains(t, o.Content, "secretword")
	}
}

func TestExtract_Checkboxes(t *testing.T) {
	src := "- [[Maxwell]]\n    - [ ] write tests\n    - [x] ship it\n"
	ex := Extract("projects/maxwell.md", []byte(src), Options{Today: "2026-02-01"})

	open := byContent(t, ex, "write tests")
	assert.Equal(t, models.CategoryTask, open.Category)
	require.NotNil(t, open.Completed)
	assert.False(t, *open.Completed)
	assert.True(t, open.IsPendingTask())

	done := byContent(t, ex, "ship it")
	require.NotNil(t, done.Completed)
	assert.True(t, *done.Completed)
	assert.Equal(t, "2026-02-01", done.CreatedAt)
}

func TestExtract_ChildOfRelations(t *testing.T) {
	src := "- [[Alpha]]\n    - [[Beta]]\n        - [[Gamma]]\n    - [[Delta]]\n- [[Epsilon]]\n"
	ex := Extract("projects/p.md", []byte(src), Options{Today: "2026-02-01"})

	type edge struct{ from, to string }
	var got []edge
	for _, r := range ex.Relations {
		require.Equal(t, models.RelChildOf, r.Type)
		got = append(got, edge{r.FromID, r.ToID})
	}
	assert.Equal(t, []edge{
		{"entity:alpha", "entity:beta"},
		{"entity:beta", "entity:gamma"},
		{"entity:alpha", "entity:delta"},
	}, got)
}

func TestExtract_URLsReferenceRoot(t *testing.T) {
	src := "- [[Maxwell]] docs at https://example.com/docs and https://example.com/docs\n"
	ex := Extract("daily/2026-01-30.md", []byte(src), Options{})

	u, ok := entityByPermalink(ex, URLPermalink("https://example.com/docs"))
	require.True(t, ok)
	assert.Equal(t, models.KindURL, u.Entity.Kind)
	assert.Equal(t, 1, u.Mentions)

	require.Len(t, ex.Relations, 1)
	assert.Equal(t, models.RelReferences, ex.Relations[0].Type)
	assert.Equal(t, "entity:maxwell", ex.Relations[0].FromID)
	assert.Equal(t, u.Entity.ID, ex.Relations[0].ToID)
}

func TestExtract_URLWithoutRootHasNoRelation(t *testing.T) {
	ex := Extract("daily/2026-01-30.md", []byte("- https://example.com\n"), Options{})
	assert.Empty(t, ex.Relations)
	assert.Equal(t, models.CategoryLink, ex.Observations[0].Category)
}

func TestExtract_UndatedWithoutRootDropsLine(t *testing.T) {
	ex := Extract("projects/loose.md", []byte("- floating thought\n"), Options{Today: "2026-02-01"})
	assert.Empty(t, ex.Observations)
	assert.Empty(t, ex.Entities)
}

func TestExtract_MentionCounts(t *testing.T) {
	src := "- [[Maxwell]]\n- [[Maxwell]] again [[Maxwell]]\n"
	ex := Extract("daily/2026-01-30.md", []byte(src), Options{})

	m, ok := entityByPermalink(ex, "maxwell")
	require.True(t, ok)
	assert.Equal(t, 2, m.Mentions)
}

func TestExtract_Deterministic(t *testing.T) {
	src := "- [[Alpha]]\n    - [[Beta]] https://x.dev\n    - [ ] todo\n"
	a := Extract("daily/2026-01-30.md", []byte(src), Options{})
	b := Extract("daily/2026-01-30.md", []byte(src), Options{})
	assert.Equal(t, a, b)
}

func TestExtractor_StatePerLine(t *testing.T) {
	e := NewExtractor("daily/2026-01-30.md", Options{})
	lines := parser.Parse([]byte("- [[Alpha]]\n    - [[Beta]]\n## Review\n")).Lines

	e.Line(lines[0])
	st := e.State()
	assert.Equal(t, "entity:alpha", st.Root)
	assert.Len(t, st.Stack, 1)

	e.Line(lines[1])
	st = e.State()
	assert.Len(t, st.Stack, 2)
	assert.Equal(t, "entity:beta", st.Stack[1].EntityID)

	e.Line(lines[2])
	st = e.State()
	assert.True(t, st.Reserved)
	assert.Empty(t, st.Root)
	assert.Empty(t, st.Stack)
}
