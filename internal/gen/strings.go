package gen

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/tohu/internal/seed"
)

// Character set presets accepted by NewCharString.
var charsetPresets = map[string]string{
	"<alphanumeric>":           "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
	"<alphanumeric_lowercase>": "abcdefghijklmnopqrstuvwxyz0123456789",
	"<alphanumeric_uppercase>": "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789",
	"<lowercase>":              "abcdefghijklmnopqrstuvwxyz",
	"<uppercase>":              "ABCDEFGHIJKLMNOPQRSTUVWXYZ",
	"<digits>":                 "0123456789",
	"<hexdigits>":              "0123456789abcdefABCDEF",
	"<punctuation>":            "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~",
}

// CharString yields fixed-length strings drawn uniformly from a charset.
type CharString struct {
	base
	leaf
	length  int
	charset []rune
	rng     *seed.Rand
}

// NewCharString returns a generator of length-character strings. charset is
// either a literal set of characters or a preset such as "<alphanumeric>",
// "<lowercase>", "<uppercase>" or "<digits>".
func NewCharString(length int, charset string) (*CharString, error) {
	if length < 0 {
		return nil, configError("CharString", "length must not be negative, got %d", length)
	}
	if preset, ok := charsetPresets[charset]; ok {
		charset = preset
	} else if strings.HasPrefix(charset, "<") && strings.HasSuffix(charset, ">") {
		return nil, configError("CharString", "unknown charset preset %q", charset)
	}
	if charset == "" {
		return nil, configError("CharString", "charset must not be empty")
	}
	return newCharString(length, []rune(charset), "CharString"), nil
}

// NewDigitString returns a generator of length-digit strings.
func NewDigitString(length int) (*CharString, error) {
	if length < 0 {
		return nil, configError("DigitString", "length must not be negative, got %d", length)
	}
	return newCharString(length, []rune(charsetPresets["<digits>"]), "DigitString"), nil
}

func newCharString(length int, charset []rune, kind string) *CharString {
	g := &CharString{length: length, charset: charset}
	g.init(g, kind)
	return g
}

func (g *CharString) Next() (any, error) {
	var b strings.Builder
	b.Grow(g.length)
	for i := 0; i < g.length; i++ {
		b.WriteRune(g.charset[g.rng.IntN(len(g.charset))])
	}
	return b.String(), nil
}

func (g *CharString) reseed(s *seed.Stream) { g.rng = seed.NewRand(s.Next()) }

func (g *CharString) fresh([]Generator) Generator {
	return newCharString(g.length, g.charset, g.kind)
}

func (g *CharString) restoreFrom(src Generator) { g.rng = src.(*CharString).rng.Copy() }

// HashDigest yields random hex strings or raw byte strings.
type HashDigest struct {
	base
	leaf
	length    int
	asBytes   bool
	lowercase bool
	rng       *seed.Rand
}

// HashDigestOption configures NewHashDigest.
type HashDigestOption func(*HashDigest)

// AsBytes makes the generator yield []byte of the given length.
func AsBytes() HashDigestOption {
	return func(g *HashDigest) { g.asBytes = true }
}

// Lowercase makes the generator yield lowercase hex digits.
func Lowercase() HashDigestOption {
	return func(g *HashDigest) { g.lowercase = true }
}

// NewHashDigest returns a digest generator. By default it yields uppercase
// hex strings of exactly length characters, so length must be even.
func NewHashDigest(length int, opts ...HashDigestOption) (*HashDigest, error) {
	g := &HashDigest{length: length}
	for _, opt := range opts {
		opt(g)
	}
	if length < 0 {
		return nil, configError("HashDigest", "length must not be negative, got %d", length)
	}
	if !g.asBytes && length%2 != 0 {
		return nil, configError("HashDigest", "length must be even for hex output, got %d", length)
	}
	g.init(g, "HashDigest")
	return g, nil
}

func (g *HashDigest) Next() (any, error) {
	n := g.length
	if !g.asBytes {
		n /= 2
	}
	buf := make([]byte, n)
	_, _ = g.rng.Read(buf)
	if g.asBytes {
		return buf, nil
	}
	s := hex.EncodeToString(buf)
	if !g.lowercase {
		s = strings.ToUpper(s)
	}
	return s, nil
}

func (g *HashDigest) reseed(s *seed.Stream) { g.rng = seed.NewRand(s.Next()) }

func (g *HashDigest) fresh([]Generator) Generator {
	c := &HashDigest{length: g.length, asBytes: g.asBytes, lowercase: g.lowercase}
	c.init(c, "HashDigest")
	return c
}

func (g *HashDigest) restoreFrom(src Generator) { g.rng = src.(*HashDigest).rng.Copy() }

// UUID yields random (version 4) UUID strings drawn from the generator's
// own PRNG, so they are reproducible under Reset.
type UUID struct {
	base
	leaf
	rng *seed.Rand
}

// NewUUID returns a UUID generator.
func NewUUID() *UUID {
	g := &UUID{}
	g.init(g, "UUID")
	return g
}

func (g *UUID) Next() (any, error) {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return nil, err
	}
	return id.String(), nil
}

func (g *UUID) reseed(s *seed.Stream) { g.rng = seed.NewRand(s.Next()) }

func (g *UUID) fresh([]Generator) Generator { return NewUUID() }

func (g *UUID) restoreFrom(src Generator) { g.rng = src.(*UUID).rng.Copy() }
