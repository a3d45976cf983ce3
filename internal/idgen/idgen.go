package idgen

import (
	"fmt"
	"math/rand/v2"

	nanoid "github.com/jaevor/go-nanoid"
)

// SafeAlphabet is the URL-path-safe character set ids are drawn from
const SafeAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Generated ids are between MinLength and MaxLength characters long
const (
	MinLength = 1
	MaxLength = 11
)

// Generator produces random candidate ids of variable length
type Generator struct {
	next     func() string // always returns MaxLength characters
	intn     func(n int) int
	reserved map[string]bool
}

// New creates a generator backed by nanoid with the safe alphabet
func New() (*Generator, error) {
	next, err := nanoid.CustomASCII(SafeAlphabet, MaxLength)
	if err != nil {
		return nil, fmt.Errorf("nanoid generator: %w", err)
	}

	return &Generator{
		next: next,
		intn: rand.IntN,
	}, nil
}

// Generate returns a candidate id with a length picked uniformly from
// [MinLength, MaxLength]. The id is a prefix of a full-length nanoid; every
// character is independent, so any prefix is uniform over the alphabet.
func (g *Generator) Generate() string {
	for {
		length := MinLength + g.intn(MaxLength-MinLength+1)
		id := g.next()[:length]
		if !g.reserved[id] {
			return id
		}
	}
}

// WithReserved makes Generate skip the given ids, e.g. fixed route names
// that would shadow a short link. Call before the generator is shared.
func (g *Generator) WithReserved(ids ...string) *Generator {
	if g.reserved == nil {
		g.reserved = make(map[string]bool, len(ids))
	}
	for _, id := range ids {
		g.reserved[id] = true
	}
	return g
}

// IsValid reports whether id could have been produced by a Generator
func IsValid(id string) bool {
	if len(id) < MinLength || len(id) > MaxLength {
		return false
	}

	for i := 0; i < len(id); i++ {
		if !isSafeChar(id[i]) {
			return false
		}
	}
	return true
}

func isSafeChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_'
}
