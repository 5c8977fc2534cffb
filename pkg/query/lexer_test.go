package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func tokenKinds(t *testing.T, src string) []Kind {
	t.Helper()
	l := NewLexer(src)
	var kinds []Kind
	for {
		tok, err := l.Next()
		require.NoError(t, err)
		kinds = append(kinds, tok.Kind)
		if tok.Kind == EOF {
			return kinds
		}
	}
}

func TestLexerPunctuationAndArrows(t *testing.T) {
	kinds := tokenKinds(t, `(a)-[:T]->(b)<-[:U]-(c)`)
	require.Contains(t, kinds, Arrow)
	require.Contains(t, kinds, BackArrow)
}

func TestLexerKnnOperator(t *testing.T) {
	kinds := tokenKinds(t, `a <-> b`)
	require.Contains(t, kinds, Knn)
}

func TestLexerKeywordsCaseInsensitive(t *testing.T) {
	l := NewLexer("match")
	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, KwMatch, tok.Kind)
}

func TestLexerStringEscapes(t *testing.T) {
	l := NewLexer(`"a\nb"`)
	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, StringLit, tok.Kind)
	require.Equal(t, "a\nb", tok.Text)
}

func TestLexerNumberLiterals(t *testing.T) {
	l := NewLexer("42 3.14")
	tok1, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, IntLit, tok1.Kind)
	tok2, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, FloatLit, tok2.Kind)
}

func TestLexerParam(t *testing.T) {
	l := NewLexer("$name")
	tok, err := l.Next()
	require.NoError(t, err)
	require.Equal(t, Param, tok.Kind)
	require.Equal(t, "name", tok.Text)
}
