package qdrant

import (
	"hash/fnv"
	"sort"
	"strings"
	"unicode"
)

type sparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// queryEncoder turns question text into the sparse term vector the passage
// indexer stores. Term ids are FNV-1a hashes of lowercased letter/digit runs;
// weights saturate with the BM25 term-frequency curve.
type queryEncoder struct {
	k        float64
	maxTerms int
}

var defaultQueryEncoder = queryEncoder{k: 1.2, maxTerms: 256}

func encodeSparseQuery(query string) sparseVector {
	return defaultQueryEncoder.encode(query)
}

func (e queryEncoder) encode(query string) sparseVector {
	freq := make(map[uint32]int, 16)
	for _, token := range tokenizeAlphaNum(query) {
		freq[termID(token)]++
	}
	if len(freq) == 0 {
		return sparseVector{}
	}

	ids := make([]uint32, 0, len(freq))
	for id := range freq {
		ids = append(ids, id)
	}
	if len(ids) > e.maxTerms {
		// Keep the most frequent terms; id order breaks ties.
		sort.Slice(ids, func(i, j int) bool {
			if freq[ids[i]] != freq[ids[j]] {
				return freq[ids[i]] > freq[ids[j]]
			}
			return ids[i] < ids[j]
		})
		ids = ids[:e.maxTerms]
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := sparseVector{
		Indices: ids,
		Values:  make([]float32, len(ids)),
	}
	for i, id := range ids {
		tf := float64(freq[id])
		out.Values[i] = float32(tf * (e.k + 1) / (tf + e.k))
	}
	return out
}

// termID never returns 0, which the index reserves.
func termID(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	if sum := h.Sum32(); sum != 0 {
		return sum
	}
	return 1
}

func tokenizeAlphaNum(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
