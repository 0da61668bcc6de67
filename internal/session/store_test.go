package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorized(t *testing.T) {
	loggedOut := adminFixture()
	loggedOut.IsLoggedIn = false

	user := oauthFixture()

	lowercaseAdmin := oauthFixture()
	lowercaseAdmin.Role = "admin"

	tests := []struct {
		name   string
		s      Session
		policy Policy
		want   bool
	}{
		{name: "no session", s: nil, policy: RequireLogin, want: false},
		{name: "login flag unset", s: loggedOut, policy: RequireLogin, want: false},
		{name: "admin with login policy", s: adminFixture(), policy: RequireLogin, want: true},
		{name: "admin with admin policy", s: adminFixture(), policy: RequireAdmin, want: true},
		{name: "user with login policy", s: user, policy: RequireLogin, want: true},
		{name: "user with admin policy", s: user, policy: RequireAdmin, want: false},
		{name: "role compared without case", s: lowercaseAdmin, policy: RequireAdmin, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorized(tt.s, tt.policy))
		})
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store reads as logged out", func(t *testing.T) {
		store := NewMemoryStore()
		s, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.False(t, IsAuthorized(ctx, store, RequireLogin))
	})

	t.Run("save replaces the record", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, oauthFixture()))
		assert.Equal(t, "u-42", store.UserID())

		require.NoError(t, store.Save(ctx, adminFixture()))
		s, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, KindAdmin, s.Kind())
		assert.Empty(t, store.UserID())
	})

	t.Run("malformed record is deleted", func(t *testing.T) {
		store := NewMemoryStore()
		store.PutRaw([]byte(`{"kind":"admin","admin":`))

		s, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
		assert.Nil(t, store.Raw())

		s, err = store.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("logout clears record and user id", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, oauthFixture()))
		assert.True(t, IsAuthorized(ctx, store, RequireLogin))

		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Clear(ctx))
		assert.False(t, IsAuthorized(ctx, store, RequireLogin))
		assert.Empty(t, store.UserID())
	})
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()
	var store Store = Unavailable{}

	s, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, store.Save(ctx, adminFixture()), ErrStorageUnavailable)
	assert.NoError(t, store.Clear(ctx))
	assert.False(t, IsAuthorized(ctx, store, RequireLogin))
}

func TestNewFileStore(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "session")

		store, err := NewFileStore(dir)
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})

	t.Run("degrades to unavailable when the directory cannot be created", func(t *testing.T) {
		parent := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(parent, []byte("x"), 0600))

		store := OpenFileStore(filepath.Join(parent, "session"))
		assert.IsType(t, Unavailable{}, store)
	})
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewFileStore(dir)
		require.NoError(t, err)

		require.NoError(t, store.Save(ctx, oauthFixture()))

		info, err := os.Stat(filepath.Join(dir, sessionFile))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		_, err = os.Stat(filepath.Join(dir, sessionFile+".tmp"))
		assert.True(t, os.IsNotExist(err))

		s, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, oauthFixture(), s)

		id, err := store.UserID()
		require.NoError(t, err)
		assert.Equal(t, "u-42", id)
	})

	t.Run("record survives a new store on the same directory", func(t *testing.T) {
		dir := t.TempDir()
		first, err := NewFileStore(dir)
		require.NoError(t, err)
		require.NoError(t, first.Save(ctx, adminFixture()))

		second, err := NewFileStore(dir)
		require.NoError(t, err)
		assert.True(t, IsAuthorized(ctx, second, RequireAdmin))
	})

	t.Run("admin login removes a stale user id", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, store.Save(ctx, oauthFixture()))
		require.NoError(t, store.Save(ctx, adminFixture()))

		id, err := store.UserID()
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("malformed file is deleted", func(t *testing.T) {
		dir := t.TempDir()
		store, err := NewFileStore(dir)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, sessionFile), []byte("{oops"), 0600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, userIDFile), []byte("u-1"), 0600))

		s, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)

		_, err = os.Stat(filepath.Join(dir, sessionFile))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(filepath.Join(dir, userIDFile))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, oauthFixture()))

		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Clear(ctx))

		s, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
	})
}
