// Package reshard supplies the keying half of a best-effort load-balancing
// transform: tagging every record in a bundle with a pseudo-random,
// monotonically-stepping key lets the surrounding engine group by key and
// redistribute the records across a fresh number of bundles before they
// reach the sink. The grouping itself belongs to the engine.
package reshard

import "math/rand"

// KeyGenerator produces the per-record keys for one bundle. Starting at a
// random point and stepping by a random odd increment spreads keys across
// the whole key space without collisions inside a bundle.
//
// Create one generator per bundle invocation. Sharing a generator (or a
// counter) across bundles would correlate their key sequences and skew the
// redistribution.
type KeyGenerator struct {
	next uint64
	step uint64
}

// NewKeyGenerator creates an independently-seeded generator.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{
		next: rand.Uint64(),
		step: 1 + 2*rand.Uint64(), // odd, so the walk covers the full key space
	}
}

// Next returns the key for the next record.
func (g *KeyGenerator) Next() uint64 {
	g.next += g.step
	return g.next
}
