package seed

import "math/rand/v2"

// Stream increments. They only need to differ from each other so that a
// generator's sub-seed stream and its value RNG never walk the same PCG
// sequence for equal seeds.
const (
	streamIncrement = 0x7A3C5E19B2D4F681
	randIncrement   = 0x2545F4914F6CDD1D
)

// MaxSubSeed is the exclusive upper bound of values returned by Next.
const MaxSubSeed = 1<<32 - 1

// Stream is a resettable source of 32-bit sub-seeds.
//
// The zero value is not usable; use New.
type Stream struct {
	master uint64
	src    *rand.PCG
	rng    *rand.Rand
}

// New returns a Stream in the state produced by Reset(0).
func New() *Stream {
	s := &Stream{src: rand.NewPCG(0, streamIncrement)}
	s.rng = rand.New(s.src)
	return s
}

// Reset re-initializes the stream from seed.
func (s *Stream) Reset(seed uint64) {
	s.master = seed
	s.src.Seed(seed, streamIncrement)
}

// Next returns the next sub-seed in [0, MaxSubSeed).
func (s *Stream) Next() uint32 {
	return uint32(s.rng.Uint64N(MaxSubSeed))
}

// Master returns the seed passed to the most recent Reset.
func (s *Stream) Master() uint64 {
	return s.master
}

// Copy returns an independent Stream with identical state.
func (s *Stream) Copy() *Stream {
	src := *s.src
	c := &Stream{master: s.master, src: &src}
	c.rng = rand.New(c.src)
	return c
}

// Rand is a generator-owned PRNG. It pairs the rand.Rand API with its PCG
// source so the state can be copied when a generator is spawned.
type Rand struct {
	*rand.Rand
	src *rand.PCG
}

// NewRand returns a Rand seeded from a sub-seed.
func NewRand(sub uint32) *Rand {
	src := rand.NewPCG(uint64(sub), randIncrement)
	return &Rand{Rand: rand.New(src), src: src}
}

// Reseed re-initializes r in place from a sub-seed.
func (r *Rand) Reseed(sub uint32) {
	r.src.Seed(uint64(sub), randIncrement)
}

// Copy returns an independent Rand with identical state.
func (r *Rand) Copy() *Rand {
	src := *r.src
	return &Rand{Rand: rand.New(&src), src: &src}
}

// Read fills p with random bytes, eight at a time in little-endian order.
// It always returns len(p), nil, so a Rand can be used as an io.Reader.
func (r *Rand) Read(p []byte) (int, error) {
	var v uint64
	for i := range p {
		if i%8 == 0 {
			v = r.Uint64()
		}
		p[i] = byte(v)
		v >>= 8
	}
	return len(p), nil
}
