package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullTextIndexBasicSearch(t *testing.T) {
	ft := NewFullTextIndex(AnalyzerSimple)
	ft.AddDocument(1, 10, 20, "the quick brown fox jumps over the lazy dog", "en", 1.0)
	ft.AddDocument(2, 10, 20, "a completely unrelated sentence about cars", "en", 1.0)

	results := ft.Search("quick fox", SearchOptions{Limit: 10})
	require.NotEmpty(t, results)
	assert.Equal(t, uint64(1), results[0].NodeID)
}

func TestFullTextIndexLabelKeyScoping(t *testing.T) {
	ft := NewFullTextIndex(AnalyzerSimple)
	ft.AddDocument(1, 10, 20, "graph database engine", "en", 1.0)
	ft.AddDocument(2, 99, 20, "graph database engine", "en", 1.0)

	label := uint32(10)
	results := ft.Search("graph", SearchOptions{LabelID: &label})
	require.Len(t, results, 1)
	assert.Equal(t, uint64(1), results[0].NodeID)
}

func TestFullTextIndexRemoveDocument(t *testing.T) {
	ft := NewFullTextIndex(AnalyzerSimple)
	ft.AddDocument(1, 10, 20, "searchable content here", "en", 1.0)
	ft.RemoveDocument(1, 10, 20)

	results := ft.Search("searchable", SearchOptions{})
	assert.Empty(t, results)
}

func TestFullTextIndexFuzzyMatch(t *testing.T) {
	ft := NewFullTextIndex(AnalyzerSimple)
	ft.AddDocument(1, 10, 20, "database transaction commit", "en", 1.0)

	results := ft.Search("databse", SearchOptions{FuzzyDist: 2})
	require.NotEmpty(t, results)
	assert.Equal(t, uint64(1), results[0].NodeID)
}

func TestFullTextIndexPhraseMatch(t *testing.T) {
	ft := NewFullTextIndex(AnalyzerSimple)
	ft.AddDocument(1, 10, 20, "the quick brown fox", "en", 1.0)
	ft.AddDocument(2, 10, 20, "brown and quick is the fox", "en", 1.0)

	results := ft.Search("quick brown", SearchOptions{Phrase: true})
	require.Len(t, results, 1)
	assert.Equal(t, uint64(1), results[0].NodeID)
}

func TestFullTextIndexSnippet(t *testing.T) {
	ft := NewFullTextIndex(AnalyzerSimple)
	ft.AddDocument(1, 10, 20, "this is a long sentence containing the target word somewhere inside it", "en", 1.0)

	results := ft.Search("target", SearchOptions{SnippetSize: 20})
	require.NotEmpty(t, results)
	assert.NotEmpty(t, results[0].Snippet)
}

func TestStemmedAnalyzerMatchesVariants(t *testing.T) {
	ft := NewFullTextIndex(AnalyzerStemmed)
	ft.AddDocument(1, 10, 20, "running runners ran", "en", 1.0)

	results := ft.Search("run", SearchOptions{})
	require.NotEmpty(t, results)
}
