// Package random provides the seeded pseudo-random source used by the
// simulation. Every consumer (bot decisions, spawn placement) draws from a
// Rand threaded through the game context; given the same seed and the same
// call sequence the outputs are identical on every machine, which is what
// keeps independently-running simulations in lockstep.
package random

const (
	modulus    = 2147483647 // 2^31 - 1
	multiplier = 16807
)

// Rand is a minstd linear congruential generator. The zero value is not
// usable; construct with New. Not safe for concurrent use, by design: each
// game owns exactly one instance and only the tick loop touches it.
type Rand struct {
	state uint64
}

func New(seed int64) *Rand {
	s := uint64(seed) % modulus
	if s == 0 {
		s = 1
	}
	return &Rand{state: s}
}

// Next advances the generator and returns a value in [1, 2^31-2].
func (r *Rand) Next() uint32 {
	r.state = r.state * multiplier % modulus
	return uint32(r.state)
}

// State exposes the internal cursor so it can be folded into the game state
// hash; two simulations that consumed a different number of draws must not
// hash equal.
func (r *Rand) State() uint64 { return r.state }

// NextInt returns a value in [min, max] inclusive. min > max panics: that is
// a programming error, not adversarial input.
func (r *Rand) NextInt(min, max int) int {
	if min > max {
		panic("random: NextInt min > max")
	}
	span := max - min + 1
	return min + int(r.Next())%span
}

// NextFloat returns a value in [0, 1).
func (r *Rand) NextFloat() float64 {
	return float64(r.Next()-1) / float64(modulus-1)
}

// Chance returns true with probability 1/odds.
func (r *Rand) Chance(odds int) bool {
	if odds <= 1 {
		return true
	}
	return int(r.Next())%odds == 0
}

// Shuffle permutes xs in place (Fisher-Yates).
func Shuffle[T any](r *Rand, xs []T) {
	for i := len(xs) - 1; i > 0; i-- {
		j := r.NextInt(0, i)
		xs[i], xs[j] = xs[j], xs[i]
	}
}

// Element returns a uniformly chosen element of xs. Empty xs panics.
func Element[T any](r *Rand, xs []T) T {
	if len(xs) == 0 {
		panic("random: Element of empty slice")
	}
	return xs[r.NextInt(0, len(xs)-1)]
}
