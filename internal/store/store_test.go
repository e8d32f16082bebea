package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_SetsUserVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestSetGet(t *testing.T) {
	s := createTestStore(t)

	_, ok, err := s.Get("intake:nombre")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("intake:nombre", "Ana"))
	require.NoError(t, s.Set("intake:nombre", "Ana María"))

	v, ok, err := s.Get("intake:nombre")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ana María", v)
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.db")

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set("manual:producto", "ESTA"))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err := s2.Get("manual:producto")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ESTA", v)
}

func TestDelete_OnlyNamedKeys(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.Set("intake:nombre", "Ana"))
	require.NoError(t, s.Set("intake:correo", "ana@example.com"))
	require.NoError(t, s.Set("manual:nombre", "Luis"))

	require.NoError(t, s.Delete("intake:nombre", "intake:correo", "intake:missing"))

	keys, err := s.Keys("")
	require.NoError(t, err)
	assert.Equal(t, []string{"manual:nombre"}, keys)
}

func TestKeys_Prefix(t *testing.T) {
	s := createTestStore(t)

	require.NoError(t, s.Set("intake:sucursal", "sede pereira"))
	require.NoError(t, s.Set("intake:nombre", "Ana"))
	require.NoError(t, s.Set("intakex:nombre", "other"))

	keys, err := s.Keys("intake:")
	require.NoError(t, err)
	assert.Equal(t, []string{"intake:nombre", "intake:sucursal"}, keys)
}

func TestMigrateToV1_NamespacesBareKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Build a version-0 database by hand
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO fields (key, value, updated_at) VALUES
		('nombre', 'Ana', 1),
		('sucursal', 'sede bogota', 1),
		('intake:sucursal', 'sede pereira', 2)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	keys, err := s.Keys("")
	require.NoError(t, err)
	assert.Equal(t, []string{"intake:nombre", "intake:sucursal"}, keys)

	v, _, err := s.Get("intake:sucursal")
	require.NoError(t, err)
	assert.Equal(t, "sede pereira", v, "existing namespaced key wins")
}

func TestSplitKey(t *testing.T) {
	ns, f := SplitKey("manual:producto")
	assert.Equal(t, "manual", ns)
	assert.Equal(t, "producto", f)

	ns, f = SplitKey("nombre")
	assert.Equal(t, "", ns)
	assert.Equal(t, "nombre", f)

	assert.Equal(t, "intake:correo", NamespaceKey("intake", "correo"))
}
