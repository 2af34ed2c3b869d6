package memory

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/maxwell/internal/apperr"
	"github.com/starford/maxwell/internal/index"
	"github.com/starford/maxwell/internal/models"
	"github.com/starford/maxwell/internal/testutil"
)

var fixedNow = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// testService returns a notes root and a Service with indexing and daily
// note writes enabled.
func testService(t *testing.T) (string, *Service) {
	t.Helper()
	root, notes := testutil.TestNotes(t)
	db := testutil.TestDB(t)
	ix := index.NewIndexer(db, notes, testutil.Logger(), index.WithClock(clock))
	svc := NewService(db, ix,
		WithClock(clock),
		WithLogger(testutil.Logger()),
		WithNotes(notes, "daily"),
		WithCurated(notes),
	)
	return root, svc
}

func indexNotes(t *testing.T, svc *Service, root string, notes map[string]string) {
	t.Helper()
	for rel, content := range notes {
		testutil.WriteNote(t, root, rel, content)
	}
	_, err := svc.IndexAll()
	require.NoError(t, err)
}

func TestEndToEnd_EmailActionsStayOnDateEntity(t *testing.T) {
	root, svc := testService(t)
	indexNotes(t, svc, root, map[string]string{
		"daily/2026-01-30.md": "- [[Maxwell]]\n    - some task\n## Email Actions\n- [10:00] replied to test@example.com: \"Test\"\n",
	})

	maxwell, err := svc.FindEntity("Maxwell")
	require.NoError(t, err)
	own, err := svc.Observations(maxwell.ID)
	require.NoError(t, err)
	var contents []string
	for _, o := range own {
		contents = append(contents, o.Content)
	}
	assert.Contains(t, contents, "some task")
	assert.NotContains(t, contents, `[10:00] replied to test@example.com: "Test"`)

	day, err := svc.ActivityByDate("2026-01-30")
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, `[10:00] replied to test@example.com: "Test"`, day[0].Content)
	assert.Equal(t, "entity:date:2026-01-30", day[0].EntityID)
}

func TestFindEntity_RoundTrip(t *testing.T) {
	root, svc := testService(t)
	indexNotes(t, svc, root, map[string]string{
		"projects/my-project.md": "- [[My Project]]\n    - kickoff\n",
	})

	byName, err := svc.FindEntity("My Project")
	require.NoError(t, err)
	byPermalink, err := svc.FindEntity("my-project")
	require.NoError(t, err)
	assert.Equal(t, byName.ID, byPermalink.ID)
	assert.Equal(t, "my-project", byName.Permalink)

	_, err = svc.FindEntity("nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestActivityByDate_RejectsBadDate(t *testing.T) {
	_, svc := testService(t)
	_, err := svc.ActivityByDate("30-01-2026")
	assert.ErrorIs(t, err, apperr.ErrInvalidOptions)
}

func TestRecentActivity(t *testing.T) {
	root, svc := testService(t)
	indexNotes(t, svc, root, map[string]string{
		"daily/2026-01-30.md": "- fresh\n",
		"daily/2026-01-01.md": "- stale\n",
	})

	recent, err := svc.RecentActivity(7, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "fresh", recent[0].Content)

	_, err = svc.RecentActivity(-1, 10)
	assert.ErrorIs(t, err, apperr.ErrInvalidOptions)
}

func TestIndexNote_WithoutIndexer(t *testing.T) {
	svc := NewService(testutil.TestDB(t), nil)
	assert.Error(t, svc.IndexNote("daily/2026-01-30.md"))
	_, err := svc.IndexAll()
	assert.Error(t, err)
}

func TestRecordIntegrationEvent_FillsDefaults(t *testing.T) {
	_, svc := testService(t)

	ev, err := svc.RecordIntegrationEvent(models.IntegrationEvent{
		Project: "maxwell",
		Kind:    "push",
		Line:    "pushed 3 commits",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "2026-02-01", ev.Date)
	assert.Equal(t, "2026-02-01T09:00:00Z", ev.OccurredAt)

	_, err = svc.RecordIntegrationEvent(models.IntegrationEvent{Kind: "push"})
	assert.ErrorIs(t, err, apperr.ErrInvalidOptions)
}

func TestLogToDailyNote(t *testing.T) {
	root, svc := testService(t)

	n, err := svc.LogToDailyNote("", "Email Actions", []string{"replied to alice", "replied to alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(filepath.Join(root, "daily", "2026-02-01.md"))
	require.NoError(t, err)
	assert.Equal(t, "## Email Actions\n- replied to alice\n", string(data))

	day, err := svc.ActivityByDate("2026-02-01")
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, "replied to alice", day[0].Content)

	n, err = svc.LogToDailyNote("2026-02-01", "Email Actions", []string{"replied to alice"})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = svc.LogToDailyNote("", "", []string{"x"})
	assert.ErrorIs(t, err, apperr.ErrInvalidOptions)
	_, err = svc.LogToDailyNote("tomorrow", "Email Actions", []string{"x"})
	assert.ErrorIs(t, err, apperr.ErrInvalidOptions)
}

func TestStats(t *testing.T) {
	root, svc := testService(t)
	indexNotes(t, svc, root, map[string]string{
		"daily/2026-01-30.md": "- [[Maxwell]]\n    - [[Bob]] joined\n",
	})

	st, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, st.Entities)
	assert.Equal(t, 2, st.Observations)
	assert.Equal(t, 1, st.Relations)
}
