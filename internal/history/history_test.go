package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	require.NoError(t, s.Append("python3", "print(1)"))
	require.NoError(t, s.Append("python3", "print(2)"))
	require.NoError(t, s.Append("julia", "1 + 1"))

	entries, err := s.Recent("python3", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "print(2)", entries[0].Source)
	require.Equal(t, "print(1)", entries[1].Source)
}

func TestAppendSkipsEmptyAndConsecutiveDuplicates(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	require.NoError(t, s.Append("python3", ""))
	require.NoError(t, s.Append("python3", "x = 1"))
	require.NoError(t, s.Append("python3", "x = 1"))
	require.NoError(t, s.Append("python3", "x = 2"))
	require.NoError(t, s.Append("python3", "x = 1"))

	entries, err := s.Recent("python3", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "x = 1", entries[0].Source)
	require.Equal(t, "x = 2", entries[1].Source)
}

func TestRecentRespectsLimitAndKernel(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append("python3", string(rune('a'+i))))
	}
	entries, err := s.Recent("python3", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "e", entries[0].Source)

	entries, err = s.Recent("julia", 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Append("python3", "persisted"))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	entries, err := s2.Recent("python3", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "persisted", entries[0].Source)
}
