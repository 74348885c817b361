package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/adconsole/notify"
	"github.com/jmcleod/adconsole/storage"
	"github.com/jmcleod/adconsole/storage/memory"
)

type fakeBackend struct {
	login  func(ctx context.Context, username, password string) (*LoginResult, error)
	verify func(ctx context.Context) (*Identity, error)
	csrf   func(ctx context.Context) (string, error)
}

func (f *fakeBackend) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	return f.login(ctx, username, password)
}

func (f *fakeBackend) Verify(ctx context.Context) (*Identity, error) {
	return f.verify(ctx)
}

func (f *fakeBackend) AntiForgeryToken(ctx context.Context) (string, error) {
	return f.csrf(ctx)
}

type messageError struct{ msg string }

func (e *messageError) Error() string          { return "backend: " + e.msg }
func (e *messageError) BackendMessage() string { return e.msg }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDeviceKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return key
}

func newTestSlot(t *testing.T, repo storage.Repository) *SealedSlot {
	t.Helper()
	slot, err := NewSealedSlot(repo, testDeviceKey())
	require.NoError(t, err)
	return slot
}

type harness struct {
	repo     *memory.Repository
	slot     *SealedSlot
	store    *Store
	backend  *fakeBackend
	recorder *notify.Recorder
	ctrl     *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{repo: memory.NewRepository(), recorder: &notify.Recorder{}}
	h.slot = newTestSlot(t, h.repo)
	store, err := NewStore(h.slot)
	require.NoError(t, err)
	h.store = store
	h.backend = &fakeBackend{
		login: func(context.Context, string, string) (*LoginResult, error) {
			return regularLogin("t1"), nil
		},
		verify: func(context.Context) (*Identity, error) {
			return &Identity{ID: 7, Username: "a"}, nil
		},
		csrf: func(context.Context) (string, error) { return "c2", nil },
	}
	h.ctrl = NewController(store, h.backend, WithNotifier(h.recorder), WithLogger(quietLogger()))
	return h
}

func regularLogin(token string) *LoginResult {
	return &LoginResult{
		AccessToken: token,
		CSRFToken:   "c1",
		User:        &Identity{ID: 7, Username: "a"},
		Permissions: []string{"campaigns.read"},
	}
}

func superLogin(token string) *LoginResult {
	return &LoginResult{
		AccessToken: token,
		CSRFToken:   "c1",
		User:        &Identity{ID: 1, Username: "root", IsSuperuser: true},
	}
}

func (h *harness) persisted(t *testing.T) (string, bool) {
	t.Helper()
	tok, err := h.slot.Load()
	if errors.Is(err, storage.ErrNotFound) {
		return "", false
	}
	require.NoError(t, err)
	return tok, true
}

func TestLoginScenario(t *testing.T) {
	h := newHarness(t)

	res, err := h.ctrl.Login(context.Background(), "a", "p")
	require.NoError(t, err)
	assert.Equal(t, "t1", res.AccessToken)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "t1", snap.BearerToken)
	assert.Equal(t, "c1", snap.AntiForgeryToken)
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.True(t, HasPermission(snap, "campaigns.read"))
	assert.False(t, HasPermission(snap, "users.write"))
	assert.Equal(t, uint64(1), snap.Generation)

	tok, ok := h.persisted(t)
	require.True(t, ok)
	assert.Equal(t, "t1", tok)
}

func TestLoginPermissionsFollowLatestLogin(t *testing.T) {
	h := newHarness(t)
	sequence := []struct {
		res       *LoginResult
		wantStar  bool
		failLogin bool
	}{
		{res: superLogin("s1"), wantStar: true},
		{res: regularLogin("r1"), wantStar: false},
		{failLogin: true, wantStar: false},
		{res: superLogin("s2"), wantStar: true},
		{failLogin: true, wantStar: true},
		{res: &LoginResult{AccessToken: "r2", User: &Identity{ID: 3}}, wantStar: false},
	}
	for i, step := range sequence {
		h.backend.login = func(context.Context, string, string) (*LoginResult, error) {
			if step.failLogin {
				return nil, &messageError{msg: "Invalid credentials"}
			}
			return step.res, nil
		}
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		if step.failLogin {
			require.Error(t, err, "step %d", i)
		} else {
			require.NoError(t, err, "step %d", i)
		}
		assert.Equal(t, step.wantStar, containsStar(h.ctrl.Snapshot().Permissions), "step %d", i)
	}
	assert.Equal(t, []string{}, h.ctrl.Snapshot().Permissions, "absent list becomes empty")
}

func containsStar(perms []string) bool {
	for _, p := range perms {
		if p == WildcardPermission {
			return true
		}
	}
	return false
}

func TestLoginFailure(t *testing.T) {
	t.Run("BackendMessage", func(t *testing.T) {
		h := newHarness(t)
		h.backend.login = func(context.Context, string, string) (*LoginResult, error) {
			return nil, &messageError{msg: "Invalid credentials"}
		}
		_, err := h.ctrl.Login(context.Background(), "a", "wrong")
		require.Error(t, err)
		var me *messageError
		assert.ErrorAs(t, err, &me)

		assert.Equal(t, StateAnonymous, h.ctrl.State())
		entries := h.recorder.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, notify.MsgLoginFailed, entries[0].Key)
		assert.Equal(t, "Invalid credentials", entries[0].Text)
		_, ok := h.persisted(t)
		assert.False(t, ok)
	})

	t.Run("GenericFallback", func(t *testing.T) {
		h := newHarness(t)
		h.backend.login = func(context.Context, string, string) (*LoginResult, error) {
			return nil, errors.New("connection refused")
		}
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		require.Error(t, err)
		entries := h.recorder.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, notify.MsgLoginFailed, entries[0].Key)
		assert.Empty(t, entries[0].Text)
	})

	t.Run("MalformedResponse", func(t *testing.T) {
		h := newHarness(t)
		h.backend.login = func(context.Context, string, string) (*LoginResult, error) {
			return &LoginResult{CSRFToken: "c"}, nil
		}
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		require.ErrorIs(t, err, ErrMalformedLogin)
		assert.False(t, h.ctrl.Snapshot().Authenticated())
	})

	t.Run("FromExpiredReturnsToAnonymous", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		require.NoError(t, err)
		require.True(t, h.ctrl.Expire(context.Background(), h.ctrl.Snapshot().Generation))

		h.backend.login = func(context.Context, string, string) (*LoginResult, error) {
			return nil, errors.New("nope")
		}
		_, err = h.ctrl.Login(context.Background(), "a", "p")
		require.Error(t, err)
		assert.Equal(t, StateAnonymous, h.ctrl.State())
	})

	t.Run("ReloginFailureKeepsSession", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		require.NoError(t, err)
		before := h.ctrl.Snapshot()

		h.backend.login = func(context.Context, string, string) (*LoginResult, error) {
			return nil, errors.New("nope")
		}
		_, err = h.ctrl.Login(context.Background(), "b", "p")
		require.Error(t, err)
		assert.True(t, before.Equal(h.ctrl.Snapshot()))
	})
}

func TestLoginRequiresCredentials(t *testing.T) {
	h := newHarness(t)
	h.backend.login = func(context.Context, string, string) (*LoginResult, error) {
		t.Fatal("backend must not be called")
		return nil, nil
	}
	for _, c := range []struct{ user, pass string }{{"", "p"}, {"  ", "p"}, {"a", ""}} {
		_, err := h.ctrl.Login(context.Background(), c.user, c.pass)
		assert.ErrorIs(t, err, ErrCredentialsRequired)
	}
	assert.Equal(t, 3, h.recorder.Count(notify.MsgCredentialsRequired))
	assert.Equal(t, StateAnonymous, h.ctrl.State())
}

func TestLogoutIsTotalAndIdempotent(t *testing.T) {
	h := newHarness(t)
	_, err := h.ctrl.Login(context.Background(), "a", "p")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		h.ctrl.Logout(context.Background())
		snap := h.ctrl.Snapshot()
		assert.Empty(t, snap.BearerToken)
		assert.Empty(t, snap.AntiForgeryToken)
		assert.Nil(t, snap.Identity)
		assert.Empty(t, snap.Permissions)
		assert.Equal(t, StateAnonymous, snap.State)
		_, ok := h.persisted(t)
		assert.False(t, ok)
	}
}

func TestVerify(t *testing.T) {
	t.Run("NoToken", func(t *testing.T) {
		h := newHarness(t)
		h.backend.verify = func(context.Context) (*Identity, error) {
			t.Fatal("backend must not be called")
			return nil, nil
		}
		_, err := h.ctrl.Verify(context.Background())
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("UpdatesIdentityOnly", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		require.NoError(t, err)
		h.backend.verify = func(context.Context) (*Identity, error) {
			return &Identity{ID: 7, Username: "a", Email: "a@example.com"}, nil
		}

		id, err := h.ctrl.Verify(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", id.Email)

		snap := h.ctrl.Snapshot()
		assert.Equal(t, "a@example.com", snap.Identity.Email)
		assert.Equal(t, []string{"campaigns.read"}, snap.Permissions)
		assert.Equal(t, "c1", snap.AntiForgeryToken)
	})

	t.Run("FailureLogsOut", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		require.NoError(t, err)
		boom := errors.New("boom")
		h.backend.verify = func(context.Context) (*Identity, error) { return nil, boom }

		_, err = h.ctrl.Verify(context.Background())
		require.ErrorIs(t, err, boom)
		snap := h.ctrl.Snapshot()
		assert.False(t, snap.Authenticated())
		assert.Nil(t, snap.Identity)
		assert.Equal(t, StateAnonymous, snap.State)
		_, ok := h.persisted(t)
		assert.False(t, ok)
	})

	t.Run("CancelledContextKeepsSession", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		require.NoError(t, err)
		before := h.ctrl.Snapshot()
		h.backend.verify = func(ctx context.Context) (*Identity, error) {
			return nil, ctx.Err()
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = h.ctrl.Verify(ctx)
		require.ErrorIs(t, err, context.Canceled)

		snap := h.ctrl.Snapshot()
		assert.True(t, snap.Authenticated())
		assert.True(t, before.Equal(snap))
		tok, ok := h.persisted(t)
		require.True(t, ok)
		assert.Equal(t, before.BearerToken, tok)
	})

	t.Run("RestoredSession", func(t *testing.T) {
		repo := memory.NewRepository()
		slot := newTestSlot(t, repo)
		require.NoError(t, slot.Save("persisted"))

		store, err := NewStore(slot)
		require.NoError(t, err)
		snap := store.Snapshot()
		assert.Equal(t, StateAuthenticated, snap.State)
		assert.Equal(t, "persisted", snap.BearerToken)
		assert.Nil(t, snap.Identity)
		assert.False(t, snap.RestoredAt.IsZero())

		ctrl := NewController(store, &fakeBackend{
			verify: func(context.Context) (*Identity, error) { return &Identity{ID: 9, Username: "z"}, nil },
		}, WithLogger(quietLogger()))
		_, err = ctrl.Verify(context.Background())
		require.NoError(t, err)
		snap = ctrl.Snapshot()
		assert.Equal(t, "z", snap.Identity.Username)
		assert.True(t, snap.RestoredAt.IsZero())
	})
}

func TestRefreshAntiForgeryToken(t *testing.T) {
	t.Run("NoToken", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.ctrl.RefreshAntiForgeryToken(context.Background())
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("Overwrites", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		require.NoError(t, err)
		tok, err := h.ctrl.RefreshAntiForgeryToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "c2", tok)
		assert.Equal(t, "c2", h.ctrl.Snapshot().AntiForgeryToken)
	})

	t.Run("FailureLeavesSession", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		require.NoError(t, err)
		before := h.ctrl.Snapshot()
		h.backend.csrf = func(context.Context) (string, error) { return "", errors.New("boom") }

		_, err = h.ctrl.RefreshAntiForgeryToken(context.Background())
		require.Error(t, err)
		assert.True(t, before.Equal(h.ctrl.Snapshot()))
	})
}

func TestLateResponsesAreDiscarded(t *testing.T) {
	t.Run("LoginAfterLogout", func(t *testing.T) {
		h := newHarness(t)
		release := make(chan struct{})
		started := make(chan struct{})
		h.backend.login = func(context.Context, string, string) (*LoginResult, error) {
			close(started)
			<-release
			return regularLogin("late"), nil
		}

		errCh := make(chan error, 1)
		go func() {
			_, err := h.ctrl.Login(context.Background(), "a", "p")
			errCh <- err
		}()
		<-started
		h.ctrl.Logout(context.Background())
		close(release)

		require.ErrorIs(t, <-errCh, ErrStaleSession)
		assert.False(t, h.ctrl.Snapshot().Authenticated())
		_, ok := h.persisted(t)
		assert.False(t, ok)
	})

	t.Run("VerifyAfterRelogin", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		require.NoError(t, err)

		release := make(chan struct{})
		started := make(chan struct{})
		h.backend.verify = func(context.Context) (*Identity, error) {
			close(started)
			<-release
			return &Identity{ID: 99, Username: "old"}, nil
		}
		errCh := make(chan error, 1)
		go func() {
			_, err := h.ctrl.Verify(context.Background())
			errCh <- err
		}()
		<-started
		h.backend.login = func(context.Context, string, string) (*LoginResult, error) {
			return regularLogin("t2"), nil
		}
		_, err = h.ctrl.Login(context.Background(), "a", "p")
		require.NoError(t, err)
		close(release)

		require.ErrorIs(t, <-errCh, ErrStaleSession)
		assert.Equal(t, "a", h.ctrl.Snapshot().Identity.Username)
	})
}

func TestConcurrentLoginsFirstCompletedWins(t *testing.T) {
	h := newHarness(t)
	slow := make(chan struct{})
	h.backend.login = func(_ context.Context, username, _ string) (*LoginResult, error) {
		if username == "slow" {
			<-slow
			return regularLogin("slow-token"), nil
		}
		return regularLogin("fast-token"), nil
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Login(context.Background(), "slow", "p")
		errCh <- err
	}()
	require.Eventually(t, func() bool { return h.ctrl.State() == StateAuthenticating }, 2*time.Second, 5*time.Millisecond)

	_, err := h.ctrl.Login(context.Background(), "fast", "p")
	require.NoError(t, err)
	close(slow)

	require.ErrorIs(t, <-errCh, ErrStaleSession)
	assert.Equal(t, "fast-token", h.ctrl.Snapshot().BearerToken)
	tok, ok := h.persisted(t)
	require.True(t, ok)
	assert.Equal(t, "fast-token", tok)
}

func TestFailedLoginWaitsForOtherLogins(t *testing.T) {
	h := newHarness(t)
	slow := make(chan struct{})
	h.backend.login = func(_ context.Context, username, _ string) (*LoginResult, error) {
		if username == "slow" {
			<-slow
			return regularLogin("slow-token"), nil
		}
		return nil, errors.New("nope")
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Login(context.Background(), "slow", "p")
		errCh <- err
	}()
	require.Eventually(t, func() bool { return h.ctrl.State() == StateAuthenticating }, 2*time.Second, 5*time.Millisecond)

	_, err := h.ctrl.Login(context.Background(), "fast", "p")
	require.Error(t, err)
	assert.Equal(t, StateAuthenticating, h.ctrl.State())

	close(slow)
	require.NoError(t, <-errCh)
	snap := h.ctrl.Snapshot()
	assert.Equal(t, StateAuthenticated, snap.State)
	assert.Equal(t, "slow-token", snap.BearerToken)
}

func TestExpire(t *testing.T) {
	t.Run("StaleGenerationIgnored", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		require.NoError(t, err)
		old := h.ctrl.Snapshot().Generation
		_, err = h.ctrl.Login(context.Background(), "a", "p")
		require.NoError(t, err)

		assert.False(t, h.ctrl.Expire(context.Background(), old))
		assert.True(t, h.ctrl.Snapshot().Authenticated())
	})

	t.Run("BurstResetsOnce", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.ctrl.Login(context.Background(), "a", "p")
		require.NoError(t, err)
		gen := h.ctrl.Snapshot().Generation

		var wg sync.WaitGroup
		var mu sync.Mutex
		resets := 0
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if h.ctrl.Expire(context.Background(), gen) {
					mu.Lock()
					resets++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, resets)
		snap := h.ctrl.Snapshot()
		assert.Equal(t, StateExpired, snap.State)
		assert.Equal(t, gen+1, snap.Generation)
		assert.False(t, snap.Authenticated())
	})
}
