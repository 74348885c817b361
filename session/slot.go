package session

import (
	"errors"
	"fmt"

	"github.com/awnumar/memguard"

	icrypto "github.com/jmcleod/adconsole/internal/crypto"
	"github.com/jmcleod/adconsole/internal/util"
	"github.com/jmcleod/adconsole/storage"
)

const (
	tokenNamespace = "session"
	tokenKey       = "token"
	slotVersion    = 1
)

var (
	tokenAAD      = icrypto.AADSlot("adconsole", tokenNamespace, tokenKey, slotVersion)
	tokenKeyInfo  = []byte("adconsole session token v1")
	tokenKeySalt  = []byte("adconsole")
	errCorruptTok = errors.New("persisted token unreadable")
)

// TokenSlot is the durable home of the bearer token across restarts.
// Load returns storage.ErrNotFound when nothing is persisted.
type TokenSlot interface {
	Load() (string, error)
	Save(token string) error
	Remove() error
}

// SealedSlot persists the bearer token in a storage.Repository, sealed with
// AES-256-GCM under a key derived from the device key.
type SealedSlot struct {
	repo storage.Repository
	key  *memguard.Enclave
}

var _ TokenSlot = (*SealedSlot)(nil)

// NewSealedSlot derives the sealing key from deviceKey. deviceKey is not
// retained.
func NewSealedSlot(repo storage.Repository, deviceKey []byte) (*SealedSlot, error) {
	if repo == nil {
		return nil, fmt.Errorf("nil repository")
	}
	if len(deviceKey) != util.AESKeySize {
		return nil, fmt.Errorf("device key must be %d bytes, got %d", util.AESKeySize, len(deviceKey))
	}
	k, err := util.DeriveKey(deviceKey, tokenKeySalt, tokenKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("deriving token key: %w", err)
	}
	return &SealedSlot{repo: repo, key: memguard.NewEnclave(k)}, nil
}

func (s *SealedSlot) withKey(fn func(key []byte) error) error {
	lb, err := s.key.Open()
	if err != nil {
		return fmt.Errorf("opening token key: %w", err)
	}
	defer lb.Destroy()
	return fn(lb.Bytes())
}

// Load returns the persisted token. An entry that no longer opens (device
// key rotated, file tampered with) is removed and reported as
// storage.ErrNotFound.
func (s *SealedSlot) Load() (string, error) {
	env, err := s.repo.Get(tokenNamespace, tokenKey)
	if err != nil {
		return "", err
	}
	var token string
	err = s.withKey(func(key []byte) error {
		plain, err := storage.OpenRecord(key, env, tokenAAD)
		if err != nil {
			return fmt.Errorf("%w: %v", errCorruptTok, err)
		}
		token = string(plain)
		util.WipeBytes(plain)
		return nil
	})
	if errors.Is(err, errCorruptTok) {
		if rmErr := s.Remove(); rmErr != nil {
			return "", fmt.Errorf("removing unreadable token: %w", rmErr)
		}
		return "", fmt.Errorf("%v: %w", err, storage.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", storage.ErrNotFound
	}
	return token, nil
}

func (s *SealedSlot) Save(token string) error {
	return s.withKey(func(key []byte) error {
		env, err := storage.SealRecord(key, []byte(token), tokenAAD)
		if err != nil {
			return fmt.Errorf("sealing token: %w", err)
		}
		return s.repo.Put(tokenNamespace, tokenKey, env)
	})
}

// Remove deletes the persisted token. Removing an absent token succeeds.
func (s *SealedSlot) Remove() error {
	err := s.repo.Delete(tokenNamespace, tokenKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}
