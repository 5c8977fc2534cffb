package exec

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// bloomFilter is a small fixed-size Bloom filter built on xxhash, used by
// HashJoin to cheaply reject probe rows that cannot possibly match
// before paying for a real hash-map lookup. No bloom-filter library
// ships in the rest of the dependency stack, so this is hand-rolled on
// top of the xxhash primitive already used elsewhere for fingerprinting.
type bloomFilter struct {
	bits []uint64
	k    int
	m    uint64
}

// newBloomFilter sizes the filter for n expected entries at the given
// target false-positive rate using the standard m = -n*ln(p)/(ln2)^2 and
// k = (m/n)*ln2 formulas.
func newBloomFilter(n int, falsePositiveRate float64) *bloomFilter {
	if n < 1 {
		n = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	m := uint64(math.Ceil(-float64(n) * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2)))
	if m < 64 {
		m = 64
	}
	k := int(math.Round((float64(m) / float64(n)) * math.Ln2))
	if k < 1 {
		k = 1
	}
	words := (m + 63) / 64
	return &bloomFilter{bits: make([]uint64, words), k: k, m: m}
}

// hashes derives two independent digests so k positions can be combined
// from them (Kirsch-Mitzenmacher double hashing) instead of running k
// separate hash passes per key.
func (b *bloomFilter) hashes(key []byte) (h1, h2 uint64) {
	salted := make([]byte, len(key)+1)
	copy(salted, key)
	salted[len(key)] = 0xa5
	return xxhash.Sum64(key), xxhash.Sum64(salted)
}

func (b *bloomFilter) add(key []byte) {
	h1, h2 := b.hashes(key)
	for i := 0; i < b.k; i++ {
		pos := (h1 + uint64(i)*h2) % b.m
		b.bits[pos/64] |= 1 << (pos % 64)
	}
}

// estimatedFalsePositiveRate returns the expected false-positive rate for
// a filter sized as this one, after n entries have been added, using the
// standard (1 - e^(-k*n/m))^k approximation.
func (b *bloomFilter) estimatedFalsePositiveRate(n int) float64 {
	if b.m == 0 {
		return 0
	}
	return math.Pow(1-math.Exp(-float64(b.k)*float64(n)/float64(b.m)), float64(b.k))
}

// mayContain reports whether key could be in the set; false means
// definitely not, true means possibly (subject to false positives).
func (b *bloomFilter) mayContain(key []byte) bool {
	h1, h2 := b.hashes(key)
	for i := 0; i < b.k; i++ {
		pos := (h1 + uint64(i)*h2) % b.m
		if b.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}
