// Package seed provides the deterministic sub-seed source that every
// generator owns.
//
// A Stream is reset with a master seed and then hands out 32-bit sub-seeds
// in the range [0, 2^32-1). Generators never seed their own PRNG from the
// master seed directly; they draw from their Stream so that two primitives
// reset with the same master seed still receive different sub-seeds.
//
// All randomness in tohu comes from math/rand/v2's PCG. The same PRNG is
// used for the Stream and for the per-generator RNGs built by NewRand, so
// output is stable across platforms for a given seed.
package seed
