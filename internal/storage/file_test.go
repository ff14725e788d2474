package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "trigsched/pkg/logx"
)

func rec(i int) FiringRecord {
	return FiringRecord{
		ID:          fmt.Sprintf("r%d", i),
		TriggerID:   "t",
		Group:       "g",
		Destination: "/x$cmd",
		Command:     "on",
		FiredAt:     time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
		OK:          true,
	}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: d}, logxNop())
		require.NoError(t, err)
		assert.Nil(t, st)
	}
	_, err := Open(Config{Driver: "redis"}, logxNop())
	assert.Error(t, err)
	_, err = Open(Config{Driver: "file"}, logxNop())
	assert.Error(t, err)
}

func TestFileJournalRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state", "journal.db")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logxNop())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, st.AppendFiring(ctx, rec(i)))
	}
	got, err := st.RecentFirings(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r4", got[0].ID)
	assert.Equal(t, "r3", got[1].ID)
	require.NoError(t, st.Close())
	assert.Error(t, st.AppendFiring(ctx, rec(9)))

	// Reopen replays the journal.
	st, err = Open(Config{Driver: "file", Path: path}, logxNop())
	require.NoError(t, err)
	defer st.Close()
	got, err = st.RecentFirings(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, rec(4).FiredAt, got[0].FiredAt.UTC())
	assert.FileExists(t, filepath.Join(filepath.Dir(path), "journal.firings.jsonl"))
}

func TestFileJournalCompacts(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "j")
	ctx := context.Background()
	st, err := Open(Config{Driver: "file", Path: path}, logxNop())
	require.NoError(t, err)
	defer st.Close()

	for i := 0; i < fileCompactAt+10; i++ {
		require.NoError(t, st.AppendFiring(ctx, rec(i)))
	}
	fs := st.(*fileStore)
	assert.Less(t, fs.lines, fileCompactAt)

	got, err := st.RecentFirings(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("r%d", fileCompactAt+9), got[0].ID)
	all, _ := st.RecentFirings(ctx, 0)
	assert.Len(t, all, fileKeep)
}

func logxNop() logx.Logger { return logx.Nop() }
