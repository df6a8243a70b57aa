package simhash

import "sort"

// Candidate is one stored fingerprint eligible for a similarity scan.
type Candidate struct {
	Key         string
	Fingerprint uint64
}

// Match is one ranked similarity result.
type Match struct {
	Key      string
	Distance int
}

// Rank orders candidates by Hamming distance to base, nearest first, and
// returns at most limit matches (limit <= 0 means all). The base posting
// itself is excluded by key. Ties order by key so results are stable.
func Rank(base uint64, baseKey string, candidates []Candidate, limit int) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if c.Key == baseKey {
			continue
		}
		matches = append(matches, Match{Key: c.Key, Distance: Distance(base, c.Fingerprint)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Key < matches[j].Key
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
