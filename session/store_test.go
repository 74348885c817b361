package session

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/adconsole/storage"
	"github.com/jmcleod/adconsole/storage/memory"
)

type brokenSlot struct {
	loadErr error
	saveErr error
}

func (b brokenSlot) Load() (string, error) { return "", b.loadErr }
func (b brokenSlot) Save(string) error     { return b.saveErr }
func (b brokenSlot) Remove() error         { return nil }

func TestNewStore(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		store, err := NewStore(newTestSlot(t, memory.NewRepository()))
		require.NoError(t, err)
		snap := store.Snapshot()
		assert.Equal(t, StateAnonymous, snap.State)
		assert.False(t, snap.Authenticated())
		assert.NotNil(t, snap.Permissions)
		assert.True(t, snap.RestoredAt.IsZero())
	})

	t.Run("NilSlot", func(t *testing.T) {
		store, err := NewStore(nil)
		require.NoError(t, err)
		assert.Equal(t, StateAnonymous, store.State())
	})

	t.Run("LoadError", func(t *testing.T) {
		boom := errors.New("disk on fire")
		_, err := NewStore(brokenSlot{loadErr: boom})
		assert.ErrorIs(t, err, boom)
	})
}

func TestSealedSlot(t *testing.T) {
	t.Run("RoundTripIsSealed", func(t *testing.T) {
		repo := memory.NewRepository()
		slot := newTestSlot(t, repo)
		require.NoError(t, slot.Save("secret-bearer"))

		env, err := repo.Get("session", "token")
		require.NoError(t, err)
		assert.False(t, bytes.Contains(env.Ciphertext, []byte("secret-bearer")))

		tok, err := slot.Load()
		require.NoError(t, err)
		assert.Equal(t, "secret-bearer", tok)
	})

	t.Run("RemoveIsIdempotent", func(t *testing.T) {
		slot := newTestSlot(t, memory.NewRepository())
		require.NoError(t, slot.Save("x"))
		require.NoError(t, slot.Remove())
		require.NoError(t, slot.Remove())
		_, err := slot.Load()
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ForeignKeyDiscardsEntry", func(t *testing.T) {
		repo := memory.NewRepository()
		require.NoError(t, newTestSlot(t, repo).Save("x"))

		other := make([]byte, 32)
		slot, err := NewSealedSlot(repo, other)
		require.NoError(t, err)
		_, err = slot.Load()
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = repo.Get("session", "token")
		assert.ErrorIs(t, err, storage.ErrNotFound, "unreadable entry is removed")

		store, err := NewStore(newTestSlot(t, repo))
		require.NoError(t, err)
		assert.Equal(t, StateAnonymous, store.State())
	})

	t.Run("BadDeviceKey", func(t *testing.T) {
		_, err := NewSealedSlot(memory.NewRepository(), []byte("short"))
		assert.Error(t, err)
		_, err = NewSealedSlot(nil, testDeviceKey())
		assert.Error(t, err)
	})
}

func TestStoreWriteAt(t *testing.T) {
	store, err := NewStore(newTestSlot(t, memory.NewRepository()))
	require.NoError(t, err)

	gen, err := store.writeAt(0, setBearer("t"), nextGeneration())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), gen)

	_, err = store.writeAt(0, setBearer("other"))
	assert.ErrorIs(t, err, ErrStaleSession)
	assert.Equal(t, "t", store.Snapshot().BearerToken)
}

func TestStorePersistFailureKeepsMemory(t *testing.T) {
	boom := errors.New("read-only")
	store, err := NewStore(brokenSlot{loadErr: storage.ErrNotFound, saveErr: boom})
	require.NoError(t, err)

	err = store.write(setBearer("t"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "t", store.Snapshot().BearerToken)
}

func TestSnapshotIsACopy(t *testing.T) {
	store, err := NewStore(nil)
	require.NoError(t, err)
	require.NoError(t, store.write(setIdentity(&Identity{Username: "a"}), setPermissions([]string{"p"})))

	snap := store.Snapshot()
	snap.Identity.Username = "mutated"
	snap.Permissions[0] = "mutated"

	again := store.Snapshot()
	assert.Equal(t, "a", again.Identity.Username)
	assert.Equal(t, []string{"p"}, again.Permissions)
}
