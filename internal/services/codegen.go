package services

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

// Alphabet is the URL-safe alphabet generated codes are drawn from (64 symbols).
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// DefaultCodeLength is the length of generated codes unless configured otherwise.
const DefaultCodeLength = 7

// CodeGenerator produces candidate short codes. Uniqueness is checked by the caller.
type CodeGenerator interface {
	Generate() string
}

// NanoidGenerator produces nanoid codes of a fixed length.
// 64^7 (~4.4e12) possible codes at the default length keeps collisions rare.
type NanoidGenerator struct {
	length int
	next   func() string
}

// NewNanoidGenerator builds a generator of codes of exactly length symbols.
// A length below 1 is a programming error and panics. Lengths 1 and above 255 are
// valid in principle but go-nanoid cannot produce them, so they return an error;
// the configuration layer only accepts lengths from 2 to 255 for that reason.
func NewNanoidGenerator(length int) (*NanoidGenerator, error) {
	if length < 1 {
		panic(fmt.Sprintf("services: invalid short code length %d", length))
	}
	next, err := nanoid.Standard(length)
	if err != nil {
		return nil, fmt.Errorf("create code generator (length %d): %w", length, err)
	}
	return &NanoidGenerator{length: length, next: next}, nil
}

// Generate returns a fresh random code. Safe for concurrent use.
func (g *NanoidGenerator) Generate() string {
	return g.next()
}

// Length returns the configured code length.
func (g *NanoidGenerator) Length() int {
	return g.length
}
