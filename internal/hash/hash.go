package hash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMalformedHash means the stored value is not a bcrypt hash.
var ErrMalformedHash = errors.New("malformed password hash")

type Bcrypt struct {
	Cost int
}

func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{Cost: cost}
}

func (b *Bcrypt) Hash(plain string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(plain), b.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hashbytes), nil
}

// Verify returns false, nil on mismatch.
func (b *Bcrypt) Verify(hashed, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	case errors.Is(err, bcrypt.ErrHashTooShort):
		return false, ErrMalformedHash
	default:
		var verErr bcrypt.HashVersionTooNewError
		var prefixErr bcrypt.InvalidHashPrefixError
		if errors.As(err, &verErr) || errors.As(err, &prefixErr) {
			return false, ErrMalformedHash
		}
		return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}
}
