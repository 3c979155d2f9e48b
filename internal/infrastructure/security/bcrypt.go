package security

import (
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/marketplace-auth/internal/domain"
)

// BcryptHasher is the credential collaborator behind password storage and login.
type BcryptHasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	return string(b), nil
}

// Compare returns nil only when password matches hash.
// An empty hash (no such account) is compared against a throwaway hash of the same cost
// so the caller spends the same time as for a wrong password, then fails.
func (h *BcryptHasher) Compare(hash string, password string) error {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(h.dummyHash(), []byte(password))
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (h *BcryptHasher) dummyHash() []byte {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("unused-placeholder-password"), h.cost)
	})
	return h.dummy
}
