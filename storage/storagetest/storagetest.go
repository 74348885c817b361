// Package storagetest holds the behavioural suite every storage.Repository
// backend must pass.
package storagetest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/adconsole/storage"
)

// Factory returns a fresh, empty repository for one subtest.
type Factory func(t *testing.T) storage.Repository

func sampleEnvelope(ct string) *storage.Envelope {
	return &storage.Envelope{
		Ver:        1,
		Scheme:     "aes256gcm",
		Nonce:      []byte("nonce1234567"),
		Ciphertext: []byte(ct),
		SealedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// RunRepositoryTests runs the common suite against the repository returned
// by newRepo.
func RunRepositoryTests(t *testing.T, newRepo Factory) {
	t.Helper()

	t.Run("PutAndGet", func(t *testing.T) {
		repo := newRepo(t)
		env := sampleEnvelope("ciphertext")
		require.NoError(t, repo.Put("session", "token", env))

		got, err := repo.Get("session", "token")
		require.NoError(t, err)
		assert.Equal(t, env.Ver, got.Ver)
		assert.Equal(t, env.Scheme, got.Scheme)
		assert.Equal(t, env.Nonce, got.Nonce)
		assert.Equal(t, env.Ciphertext, got.Ciphertext)
		assert.True(t, env.SealedAt.Equal(got.SealedAt))
	})

	t.Run("Overwrite", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put("session", "token", sampleEnvelope("first")))
		require.NoError(t, repo.Put("session", "token", sampleEnvelope("second")))

		got, err := repo.Get("session", "token")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), got.Ciphertext)
	})

	t.Run("GetMissing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get("session", "token")
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)

		require.NoError(t, repo.Put("session", "other", sampleEnvelope("x")))
		_, err = repo.Get("session", "token")
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("Delete", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put("session", "token", sampleEnvelope("x")))
		require.NoError(t, repo.Delete("session", "token"))

		_, err := repo.Get("session", "token")
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.Delete("session", "never-existed")
		assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
	})

	t.Run("ListIsNamespaced", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put("session", "token", sampleEnvelope("a")))
		require.NoError(t, repo.Put("session", "profile", sampleEnvelope("b")))
		require.NoError(t, repo.Put("prefs", "theme", sampleEnvelope("c")))

		keys, err := repo.List("session")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"token", "profile"}, keys)

		keys, err = repo.List("nonexistent")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}
