package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/maxwell/internal/testutil"
)

func TestLoadCurated(t *testing.T) {
	root, notes := testutil.TestNotes(t)
	testutil.WriteNote(t, root, "RESET.md", "focus on launch\n")
	testutil.WriteNote(t, root, "USER.md", "prefers short answers\n")
	testutil.WriteNote(t, root, "MEMORY.md", "   \n")

	files, err := LoadCurated(notes)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "RESET.md", files[0].Name)
	assert.Equal(t, "USER.md", files[1].Name)

	assert.Equal(t,
		"# Operational Context (RESET.md)\nfocus on launch\n\n\n---\n\n# About You (USER.md)\nprefers short answers\n",
		FormatCurated(files))
}

func TestCuratedMemory(t *testing.T) {
	root, svc := testService(t)
	out, err := svc.CuratedMemory()
	require.NoError(t, err)
	assert.Equal(t, "", out)

	testutil.WriteNote(t, root, "MEMORY.md", "use tabs")
	out, err = svc.CuratedMemory()
	require.NoError(t, err)
	assert.Equal(t, "# Stable Preferences (MEMORY.md)\nuse tabs", out)

	out, err = (&Service{}).CuratedMemory()
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
