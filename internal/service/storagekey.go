package service

import (
	"fmt"

	nanoid "github.com/jaevor/go-nanoid"
)

const StorageKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// KeyGenerator produces random storage keys. Uniqueness is not guaranteed,
// callers rely on the unique index of the files table.
type KeyGenerator interface {
	NewKey() string
}

type nanoKeyGenerator struct {
	gen func() string
}

func NewKeyGenerator(length int) (KeyGenerator, error) {
	gen, err := nanoid.CustomASCII(StorageKeyAlphabet, length)
	if err != nil {
		return nil, fmt.Errorf("storage key generator: %w", err)
	}
	return &nanoKeyGenerator{gen: gen}, nil
}

func (g *nanoKeyGenerator) NewKey() string { return g.gen() }

// KeyGeneratorFunc adapts a plain function.
type KeyGeneratorFunc func() string

func (f KeyGeneratorFunc) NewKey() string { return f() }
