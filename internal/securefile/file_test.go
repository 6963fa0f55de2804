package securefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

var fastKDF = Envelope{Version: 1, ArgonTime: 1, ArgonMemory: 1024, ArgonThreads: 1, ArgonKeyLen: 32}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	opt := Options{KDF: fastKDF, AAD: []byte("test:v1")}

	require.NoError(t, Write(path, doc{Name: "a", Count: 2}, []byte("pw"), opt))

	got, err := Read[doc](path, []byte("pw"), opt)
	require.NoError(t, err)
	assert.Equal(t, doc{Name: "a", Count: 2}, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRead_WrongPasswordOrAAD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, Write(path, doc{Name: "a"}, []byte("pw"), Options{KDF: fastKDF, AAD: []byte("x")}))

	_, err := Read[doc](path, []byte("nope"), Options{AAD: []byte("x")})
	assert.ErrorIs(t, err, ErrInvalidPasswordOrCorrupt)

	_, err = Read[doc](path, []byte("pw"), Options{AAD: []byte("y")})
	assert.ErrorIs(t, err, ErrInvalidPasswordOrCorrupt)
}

func TestRead_Missing(t *testing.T) {
	_, err := Read[doc](filepath.Join(t.TempDir(), "missing.json"), []byte("pw"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvFolder(t *testing.T) {
	t.Setenv("QCC_ENV", "")
	f, err := EnvFolder()
	require.NoError(t, err)
	assert.Empty(t, f)

	t.Setenv("QCC_ENV", "Dev")
	f, err = EnvFolder()
	require.NoError(t, err)
	assert.Equal(t, "develop", f)

	t.Setenv("QCC_ENV", "staging")
	_, err = EnvFolder()
	assert.Error(t, err)
}

func TestDataDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SNAP_REAL_HOME", "")
	t.Setenv("HOME", home)
	t.Setenv("QCC_ENV", "local")

	dir, err := DataDir("app")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "app", "local"), dir)
}
