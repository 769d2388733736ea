package cred

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePasswd(t *testing.T, path, body string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestFileChecker(t *testing.T) {
	h := testHasher(t)
	path := filepath.Join(t.TempDir(), "passwd")
	body := "# users\n\n" +
		"alice:" + mustHash(t, h, "wonderland") + ":Alice Liddell\n" +
		"bob:" + mustHash(t, h, "builder") + "\n"
	writePasswd(t, path, body, time.Unix(1_700_000_000, 0))

	chk, err := NewFile(path, h, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, chk.Len())

	name, ok, err := chk.Check(t.Context(), "alice", "wonderland")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Alice Liddell", name)

	name, ok, err = chk.Check(t.Context(), "bob", "builder")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, name)

	_, ok, err = chk.Check(t.Context(), "alice", "looking-glass")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = chk.Check(t.Context(), "carol", "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileCheckerReloadsOnChange(t *testing.T) {
	h := testHasher(t)
	path := filepath.Join(t.TempDir(), "passwd")
	writePasswd(t, path, "alice:"+mustHash(t, h, "old")+"\n", time.Unix(1_700_000_000, 0))

	chk, err := NewFile(path, h, nil)
	require.NoError(t, err)

	writePasswd(t, path, "alice:"+mustHash(t, h, "new")+"\n", time.Unix(1_700_000_100, 0))
	_, ok, err := chk.Check(t.Context(), "alice", "new")
	require.NoError(t, err)
	assert.True(t, ok, "changed file must be picked up")

	// A broken rewrite keeps the last good entries.
	writePasswd(t, path, "garbage\n", time.Unix(1_700_000_200, 0))
	_, ok, err = chk.Check(t.Context(), "alice", "new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileCheckerRejectsMalformed(t *testing.T) {
	h := testHasher(t)
	dir := t.TempDir()
	for name, body := range map[string]string{
		"no hash":   "alice\n",
		"bad hash":  "alice:plaintext\n",
		"no user":   ":" + mustHash(t, h, "x") + "\n",
		"duplicate": "a:" + mustHash(t, h, "x") + "\na:" + mustHash(t, h, "y") + "\n",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		_, err := NewFile(path, h, nil)
		assert.Error(t, err, name)
	}

	_, err := NewFile(filepath.Join(dir, "missing"), h, nil)
	assert.Error(t, err)
}
