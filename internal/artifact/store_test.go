package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrelay/internal/log"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), log.Get())
	require.NoError(t, err)
	return store
}

func TestReserveNameShape(t *testing.T) {
	store := newTestStore(t)

	name, err := store.ReserveName("report.pdf", "pdf")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(name, "report-"), "got %q", name)
	assert.True(t, strings.HasSuffix(name, ".pdf"), "got %q", name)
	// base + dash + 12 hex chars + extension
	assert.Len(t, name, len("report-")+12+len(".pdf"))
}

func TestReserveNameNoCollisions(t *testing.T) {
	store := newTestStore(t)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		name, err := store.ReserveName("same.pdf", "pdf")
		require.NoError(t, err)
		_, dup := seen[name]
		require.False(t, dup, "duplicate name %q", name)
		seen[name] = struct{}{}
	}
}

func TestReserveNameSanitizesHostileInput(t *testing.T) {
	store := newTestStore(t)

	name, err := store.ReserveName("../../etc/passwd.pdf", "pdf")
	require.NoError(t, err)
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, "..")

	// A name that sanitizes to nothing falls back to a default.
	name, err = store.ReserveName("///.pdf", "zip")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "document-"), "got %q", name)
	assert.True(t, strings.HasSuffix(name, ".zip"), "got %q", name)
}

func TestPersistWritesDurablyAndHashes(t *testing.T) {
	store := newTestStore(t)
	content := strings.Repeat("pdf bytes ", 1000)

	record, err := store.Persist("out-abc123.pdf", strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "out-abc123.pdf", record.Name)
	assert.Equal(t, int64(len(content)), record.Size)
	assert.NotEmpty(t, record.ID)
	assert.True(t, strings.HasPrefix(record.Checksum, "blake3:"), "got %q", record.Checksum)
	assert.False(t, record.CreatedAt.IsZero())

	written, err := os.ReadFile(filepath.Join(store.Root(), "out-abc123.pdf"))
	require.NoError(t, err)
	assert.Equal(t, content, string(written))
}

func TestPersistRefusesSecondWriter(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Persist("dup.pdf", strings.NewReader("first"))
	require.NoError(t, err)

	_, err = store.Persist("dup.pdf", strings.NewReader("second"))
	require.Error(t, err)

	// The first write is untouched.
	written, err := os.ReadFile(filepath.Join(store.Root(), "dup.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(written))
}

func TestPersistRejectsTraversalNames(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Persist("../escape.pdf", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = store.Persist("", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Persist("gone.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	store.Remove("gone.pdf")
	_, _, err = store.Open("gone.pdf")
	assert.True(t, os.IsNotExist(err))

	// Second removal of an absent file must not panic or error.
	store.Remove("gone.pdf")
	store.Remove("never-existed.pdf")
}

func TestOpenAndCount(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Persist("a.pdf", strings.NewReader("aaa"))
	require.NoError(t, err)
	_, err = store.Persist("b.zip", strings.NewReader("bbbb"))
	require.NoError(t, err)

	f, size, err := store.Open("a.pdf")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, int64(3), size)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, _, err = store.Open("missing.pdf")
	assert.True(t, os.IsNotExist(err))
}
