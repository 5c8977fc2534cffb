package index

import (
	"math"
	"sort"
	"strings"
	"sync"
)

// defaultBM25K1 and defaultBM25B are the standard Okapi BM25 tuning
// constants (term-frequency saturation and length normalization).
const (
	defaultBM25K1 = 1.2
	defaultBM25B  = 0.75
)

type fieldKey struct {
	LabelID uint32
	KeyID   uint32
}

type docKey struct {
	fieldKey
	NodeID uint64
}

// posting is one term's occurrence in one document: how many times it
// appeared and at which token positions (positions back phrase queries).
type posting struct {
	NodeID    uint64
	TermFreq  int
	Positions []int
}

type docMeta struct {
	Length   int
	Language string
	Boost    float64
	Content  string
}

// SearchOptions configures a full-text query.
type SearchOptions struct {
	Limit       int
	MinScore    float64
	Language    string
	LabelID     *uint32
	KeyID       *uint32
	FuzzyDist   int // 0 disables fuzzy matching; 1 or 2 allowed
	Phrase      bool
	SnippetSize int // 0 disables highlighting
}

// SearchResult is one ranked hit.
type SearchResult struct {
	NodeID  uint64
	LabelID uint32
	KeyID   uint32
	Score   float64
	Snippet string
}

// FullTextIndex is a BM25-ranked inverted index over tokenized property
// text, scoped per (LabelId, KeyId) to support per-field search. It is a
// pure in-memory structure, persisted and rebuilt the same way the other
// secondary indexes are: by replaying primary storage.
type FullTextIndex struct {
	mu       sync.RWMutex
	analyzer AnalyzerKind
	k1, b    float64

	postings map[fieldKey]map[string][]posting
	docs     map[docKey]*docMeta
	sumLen   map[fieldKey]int64
	docCount map[fieldKey]int
}

// NewFullTextIndex builds an empty index using the given analyzer for all
// fields added to it.
func NewFullTextIndex(analyzer AnalyzerKind) *FullTextIndex {
	return &FullTextIndex{
		analyzer: analyzer,
		k1:       defaultBM25K1,
		b:        defaultBM25B,
		postings: make(map[fieldKey]map[string][]posting),
		docs:     make(map[docKey]*docMeta),
		sumLen:   make(map[fieldKey]int64),
		docCount: make(map[fieldKey]int),
	}
}

// AddDocument tokenizes content and indexes it under (labelID, keyID) for
// nodeID. boost scales this document's score on every query hit.
func (ft *FullTextIndex) AddDocument(nodeID uint64, labelID, keyID uint32, content, language string, boost float64) {
	if boost <= 0 {
		boost = 1.0
	}
	fk := fieldKey{labelID, keyID}
	terms := Analyze(ft.analyzer, language, content)

	ft.mu.Lock()
	defer ft.mu.Unlock()

	dk := docKey{fk, nodeID}
	if _, exists := ft.docs[dk]; exists {
		ft.removeLocked(dk)
	}

	positions := make(map[string][]int)
	for i, t := range terms {
		positions[t] = append(positions[t], i)
	}
	field, ok := ft.postings[fk]
	if !ok {
		field = make(map[string][]posting)
		ft.postings[fk] = field
	}
	for term, pos := range positions {
		field[term] = append(field[term], posting{NodeID: nodeID, TermFreq: len(pos), Positions: pos})
	}

	ft.docs[dk] = &docMeta{Length: len(terms), Language: language, Boost: boost, Content: content}
	ft.sumLen[fk] += int64(len(terms))
	ft.docCount[fk]++
}

// RemoveDocument deletes the (labelID, keyID) document for nodeID.
func (ft *FullTextIndex) RemoveDocument(nodeID uint64, labelID, keyID uint32) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.removeLocked(docKey{fieldKey{labelID, keyID}, nodeID})
}

func (ft *FullTextIndex) removeLocked(dk docKey) {
	meta, ok := ft.docs[dk]
	if !ok {
		return
	}
	field := ft.postings[dk.fieldKey]
	for term, list := range field {
		filtered := list[:0]
		for _, p := range list {
			if p.NodeID != dk.NodeID {
				filtered = append(filtered, p)
			}
		}
		if len(filtered) == 0 {
			delete(field, term)
		} else {
			field[term] = filtered
		}
	}
	ft.sumLen[dk.fieldKey] -= int64(meta.Length)
	ft.docCount[dk.fieldKey]--
	delete(ft.docs, dk)
}

// Search ranks documents against queryText under opts.
func (ft *FullTextIndex) Search(queryText string, opts SearchOptions) []SearchResult {
	ft.mu.RLock()
	defer ft.mu.RUnlock()

	queryTerms := Analyze(ft.analyzer, opts.Language, queryText)
	if len(queryTerms) == 0 {
		return nil
	}

	fields := ft.candidateFields(opts)
	scores := make(map[docKey]float64)

	for _, fk := range fields {
		field := ft.postings[fk]
		if len(field) == 0 {
			continue
		}
		n := ft.docCount[fk]
		avgdl := 1.0
		if n > 0 {
			avgdl = float64(ft.sumLen[fk]) / float64(n)
		}
		for _, qt := range queryTerms {
			for term, list := range ft.matchingTerms(field, qt, opts.FuzzyDist) {
				idf := math.Log(1 + (float64(n)-float64(len(list))+0.5)/(float64(len(list))+0.5))
				for _, p := range list {
					dk := docKey{fk, p.NodeID}
					meta := ft.docs[dk]
					if meta == nil {
						continue
					}
					tf := float64(p.TermFreq)
					denom := tf + ft.k1*(1-ft.b+ft.b*float64(meta.Length)/avgdl)
					scores[dk] += idf * (tf * (ft.k1 + 1)) / denom * meta.Boost
				}
				_ = term
			}
		}
		if opts.Phrase {
			ft.filterPhraseLocked(fk, queryTerms, scores)
		}
	}

	results := make([]SearchResult, 0, len(scores))
	for dk, score := range scores {
		if score < opts.MinScore {
			continue
		}
		r := SearchResult{NodeID: dk.NodeID, LabelID: dk.LabelID, KeyID: dk.KeyID, Score: score}
		if opts.SnippetSize > 0 {
			if meta := ft.docs[dk]; meta != nil {
				r.Snippet = snippet(meta.Content, queryTerms, opts.SnippetSize)
			}
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].NodeID < results[j].NodeID
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

func (ft *FullTextIndex) candidateFields(opts SearchOptions) []fieldKey {
	if opts.LabelID != nil && opts.KeyID != nil {
		return []fieldKey{{*opts.LabelID, *opts.KeyID}}
	}
	var out []fieldKey
	for fk := range ft.postings {
		if opts.LabelID != nil && fk.LabelID != *opts.LabelID {
			continue
		}
		if opts.KeyID != nil && fk.KeyID != *opts.KeyID {
			continue
		}
		out = append(out, fk)
	}
	return out
}

// matchingTerms finds every indexed term matching qt: itself exactly, plus
// (when fuzzyDist > 0) every indexed term within that edit distance.
func (ft *FullTextIndex) matchingTerms(field map[string][]posting, qt string, fuzzyDist int) map[string][]posting {
	out := make(map[string][]posting)
	if list, ok := field[qt]; ok {
		out[qt] = list
	}
	if fuzzyDist <= 0 {
		return out
	}
	for term, list := range field {
		if term == qt {
			continue
		}
		if editDistance(qt, term, fuzzyDist) <= fuzzyDist {
			out[term] = list
		}
	}
	return out
}

// filterPhraseLocked removes from scores any document where the query
// terms don't appear as a contiguous run of positions, turning a plain
// OR-of-terms match into an exact phrase match.
func (ft *FullTextIndex) filterPhraseLocked(fk fieldKey, queryTerms []string, scores map[docKey]float64) {
	field := ft.postings[fk]
	for dk := range scores {
		if dk.fieldKey != fk {
			continue
		}
		if !hasPhrase(field, queryTerms, dk.NodeID) {
			delete(scores, dk)
		}
	}
}

func hasPhrase(field map[string][]posting, queryTerms []string, nodeID uint64) bool {
	firstPositions := positionsFor(field, queryTerms[0], nodeID)
	for _, start := range firstPositions {
		matched := true
		for i := 1; i < len(queryTerms); i++ {
			if !containsPos(positionsFor(field, queryTerms[i], nodeID), start+i) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func positionsFor(field map[string][]posting, term string, nodeID uint64) []int {
	for _, p := range field[term] {
		if p.NodeID == nodeID {
			return p.Positions
		}
	}
	return nil
}

func containsPos(positions []int, pos int) bool {
	for _, p := range positions {
		if p == pos {
			return true
		}
	}
	return false
}

// snippet returns a window of content around the first query term match,
// truncated to size runes, for result highlighting.
func snippet(content string, queryTerms []string, size int) string {
	lower := strings.ToLower(content)
	idx := -1
	for _, t := range queryTerms {
		if i := strings.Index(lower, t); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	runes := []rune(content)
	if idx < 0 {
		if len(runes) <= size {
			return content
		}
		return string(runes[:size]) + "..."
	}
	start := idx - size/2
	if start < 0 {
		start = 0
	}
	end := start + size
	if end > len(runes) {
		end = len(runes)
	}
	out := string(runes[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}
