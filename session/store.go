package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/adconsole/storage"
)

// Reader is the read-only view of the session used by the gateway and the
// navigation guard.
type Reader interface {
	Snapshot() Snapshot
}

// Store is the credential store. Reads are open to everyone; every write
// goes through the unexported mutators used by Controller.
type Store struct {
	mu          sync.RWMutex
	slot        TokenSlot
	bearer      *memguard.Enclave
	csrf        *memguard.Enclave
	identity    *Identity
	permissions []string
	state       State
	settled     State // last state other than StateAuthenticating
	logins      int   // logins in flight
	generation  uint64
	restoredAt  time.Time
}

var _ Reader = (*Store)(nil)

// NewStore builds the store and seeds the bearer token from slot. A store
// with a restored token starts in StateAuthenticated pending verification.
func NewStore(slot TokenSlot) (*Store, error) {
	if slot == nil {
		slot = nopSlot{}
	}
	s := &Store{slot: slot, permissions: []string{}}
	token, err := slot.Load()
	switch {
	case err == nil:
		s.bearer = sealString(token)
		s.state = StateAuthenticated
		s.restoredAt = time.Now().UTC()
	case errors.Is(err, storage.ErrNotFound):
		s.state = StateAnonymous
	default:
		return nil, fmt.Errorf("loading persisted token: %w", err)
	}
	s.settled = s.state
	return s, nil
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		BearerToken:      openString(s.bearer),
		AntiForgeryToken: openString(s.csrf),
		Identity:         s.identity.clone(),
		Permissions:      slices.Clone(s.permissions),
		State:            s.state,
		Generation:       s.generation,
		RestoredAt:       s.restoredAt,
	}
}

// Generation returns the current session generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// State returns the current controller state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// change replaces one field. It runs with the write lock held.
type change func(s *Store, p *persist)

// persist records what the durable slot must do once the fields are set.
type persist struct {
	save   bool
	remove bool
	token  string
}

func setBearer(token string) change {
	return func(s *Store, p *persist) {
		s.bearer = sealString(token)
		s.restoredAt = time.Time{}
		if token == "" {
			*p = persist{remove: true}
			return
		}
		*p = persist{save: true, token: token}
	}
}

func setAntiForgery(token string) change {
	return func(s *Store, _ *persist) { s.csrf = sealString(token) }
}

func setIdentity(id *Identity) change {
	return func(s *Store, _ *persist) {
		s.identity = id.clone()
		s.restoredAt = time.Time{}
	}
}

func setPermissions(perms []string) change {
	return func(s *Store, _ *persist) {
		if perms == nil {
			perms = []string{}
		}
		s.permissions = slices.Clone(perms)
	}
}

func setState(st State) change {
	return func(s *Store, _ *persist) {
		s.state = st
		if st != StateAuthenticating {
			s.settled = st
		}
	}
}

func nextGeneration() change {
	return func(s *Store, _ *persist) { s.generation++ }
}

// write applies changes unconditionally. The returned error only reports a
// durable slot failure; the in-memory fields are already replaced.
func (s *Store) write(changes ...change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(changes)
}

// writeAt applies changes only while generation is still current and
// returns the generation after the write.
func (s *Store) writeAt(generation uint64, changes ...change) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return s.generation, ErrStaleSession
	}
	err := s.applyLocked(changes)
	return s.generation, err
}

func (s *Store) applyLocked(changes []change) error {
	var p persist
	for _, c := range changes {
		c(s, &p)
	}
	switch {
	case p.save:
		if err := s.slot.Save(p.token); err != nil {
			return fmt.Errorf("persisting token: %w", err)
		}
	case p.remove:
		if err := s.slot.Remove(); err != nil {
			return fmt.Errorf("removing persisted token: %w", err)
		}
	}
	return nil
}

// resetChanges empties every field and lands in st.
func resetChanges(st State) []change {
	return []change{
		setBearer(""),
		setAntiForgery(""),
		setIdentity(nil),
		setPermissions(nil),
		setState(st),
		nextGeneration(),
	}
}

// begin marks a login in flight and returns the generation it started under.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logins++
	s.state = StateAuthenticating
	return s.generation
}

// settle closes a login attempt. Once no login is in flight, a store still
// in StateAuthenticating returns to the session it held before, or to
// StateAnonymous when there was none.
func (s *Store) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logins > 0 {
		s.logins--
	}
	if s.logins > 0 || s.state != StateAuthenticating {
		return
	}
	if s.settled == StateAuthenticated {
		s.state = StateAuthenticated
		return
	}
	s.state = StateAnonymous
}

func sealString(v string) *memguard.Enclave {
	if v == "" {
		return nil
	}
	return memguard.NewEnclave([]byte(v))
}

func openString(e *memguard.Enclave) string {
	if e == nil {
		return ""
	}
	lb, err := e.Open()
	if err != nil {
		memguard.SafePanic(err)
	}
	defer lb.Destroy()
	return string(lb.Bytes())
}

type nopSlot struct{}

func (nopSlot) Load() (string, error) { return "", storage.ErrNotFound }
func (nopSlot) Save(string) error     { return nil }
func (nopSlot) Remove() error         { return nil }
