// Package rng derives reproducible random streams for schedule search.
//
// Every stream is a PCG generator (math/rand/v2) whose two 64-bit seed words
// are xxhash64 digests of "eventSeed|round|attempt" with distinct salts. The
// same triple always yields the same sequence; nothing reads the clock or any
// other entropy source.
package rng

import (
	"math/rand/v2"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

const (
	saltHi = "courtside/hi"
	saltLo = "courtside/lo"
)

// ForAttempt returns the generator for one (eventSeed, round, attempt) triple.
func ForAttempt(eventSeed string, round, attempt int) *rand.Rand {
	hi, lo := Seed(eventSeed, round, attempt)
	return rand.New(rand.NewPCG(hi, lo)) //nolint:gosec // deterministic by contract
}

// Seed returns the two PCG seed words for a triple.
func Seed(eventSeed string, round, attempt int) (uint64, uint64) {
	key := make([]byte, 0, len(eventSeed)+24)
	key = append(key, eventSeed...)
	key = append(key, '|')
	key = strconv.AppendInt(key, int64(round), 10)
	key = append(key, '|')
	key = strconv.AppendInt(key, int64(attempt), 10)

	return digest(saltHi, key), digest(saltLo, key)
}

func digest(salt string, key []byte) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(salt)
	_, _ = d.Write(key)
	return d.Sum64()
}

// Permutation returns a random ordering of [0, n) drawn from r.
func Permutation(r *rand.Rand, n int) []int {
	return r.Perm(n)
}
