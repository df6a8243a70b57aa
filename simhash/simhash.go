package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// shingleSize is the n-gram width for fingerprint features. Three-word
// shingles keep word order relevant, so two postings sharing vocabulary
// but not phrasing still land apart.
const shingleSize = 3

// Fingerprint computes a 64-bit SimHash of the given text. Features are
// lowercased word 3-shingles hashed with FNV-64a; texts too short for a
// single shingle fall back to word-level features.
func Fingerprint(text string) uint64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	features := makeShingles(words, shingleSize)
	if len(features) == 0 {
		features = words
	}

	var vector [64]int

	for _, feature := range features {
		h := fnv.New64a()
		h.Write([]byte(feature))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}

	return fingerprint
}

// makeShingles creates n-gram shingles from a slice of tokens.
func makeShingles(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}

	shingles := make([]string, 0, len(tokens)-n+1)
	for i := 0; i <= len(tokens)-n; i++ {
		shingles = append(shingles, strings.Join(tokens[i:i+n], "_"))
	}
	return shingles
}

// Distance returns the Hamming distance between two SimHash fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar returns true if the Hamming distance between two fingerprints
// is less than or equal to the threshold.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}
