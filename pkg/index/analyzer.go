package index

import (
	"strings"
	"unicode"

	porterstemmer "github.com/blevesearch/go-porterstemmer"
)

// AnalyzerKind selects how raw text is turned into index terms.
type AnalyzerKind string

const (
	// AnalyzerSimple lowercases and splits on non-alphanumeric runes.
	AnalyzerSimple AnalyzerKind = "simple"
	// AnalyzerNGram emits character trigrams, useful for substring and
	// CJK-style matching where whitespace tokenization doesn't apply.
	AnalyzerNGram AnalyzerKind = "ngram"
	// AnalyzerStemmed applies the simple analyzer followed by an
	// English Porter stemmer, so "running" and "runs" share a term.
	// Other languages fall back to the simple analyzer: no stemmer for
	// them exists anywhere in the dependency set this engine draws on,
	// and a wrong stemmer is worse than none.
	AnalyzerStemmed AnalyzerKind = "stemmed"
)

const ngramSize = 3

// Analyze tokenizes content according to kind, returning terms in
// positional order (duplicates kept — term frequency is computed by the
// caller from this stream).
func Analyze(kind AnalyzerKind, language, content string) []string {
	switch kind {
	case AnalyzerNGram:
		return ngramTokenize(content)
	case AnalyzerStemmed:
		return stemmedTokenize(language, content)
	default:
		return simpleTokenize(content)
	}
}

func simpleTokenize(content string) []string {
	var terms []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			terms = append(terms, b.String())
			b.Reset()
		}
	}
	for _, r := range content {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return terms
}

func stemmedTokenize(language, content string) []string {
	words := simpleTokenize(content)
	if !strings.EqualFold(language, "") && !strings.EqualFold(language, "en") && !strings.EqualFold(language, "english") {
		return words
	}
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = porterstemmer.StemString(w)
	}
	return out
}

func ngramTokenize(content string) []string {
	lower := strings.ToLower(content)
	runes := []rune(lower)
	var terms []string
	for _, word := range strings.FieldsFunc(string(runes), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		wr := []rune(word)
		if len(wr) <= ngramSize {
			terms = append(terms, word)
			continue
		}
		for i := 0; i+ngramSize <= len(wr); i++ {
			terms = append(terms, string(wr[i:i+ngramSize]))
		}
	}
	return terms
}

// editDistance computes the Levenshtein distance between a and b, capped
// usefulness at maxDist: once the running distance exceeds maxDist along
// every path in a row, callers can treat the result as "too far" without
// caring about the exact number.
func editDistance(a, b string, maxDist int) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}
	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ar); i++ {
		curr[0] = i
		best := curr[0]
		for j := 1; j <= len(br); j++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			if curr[j] < best {
				best = curr[j]
			}
		}
		if best > maxDist {
			return best
		}
		prev, curr = curr, prev
	}
	return prev[len(br)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
