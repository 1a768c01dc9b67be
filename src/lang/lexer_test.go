package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshbuild/bg/src/core"
)

func tokenizeString(t *testing.T, src string) []Token {
	t.Helper()
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte(src)}
	toks, err := Tokenize(file)
	require.NoError(t, err)
	return toks
}

func TestLexerIdentsAndOperators(t *testing.T) {
	toks := tokenizeString(t, `x == y`)
	require.Len(t, toks, 4) // x, ==, y, EOF
	assert.Equal(t, TokIdent, toks[0].Type)
	assert.Equal(t, "x", toks[0].Value)
	assert.Equal(t, TokOperator, toks[1].Type)
	assert.Equal(t, "==", toks[1].Value)
	assert.Equal(t, TokIdent, toks[2].Type)
	assert.Equal(t, TokEOF, toks[3].Type)
}

func TestLexerMaximalMunch(t *testing.T) {
	toks := tokenizeString(t, `a += 1`)
	assert.Equal(t, "+=", toks[1].Value)
}

func TestLexerStringEscapes(t *testing.T) {
	toks := tokenizeString(t, `"a\"b\\c\$d\qe"`)
	require.Len(t, toks, 2)
	assert.Equal(t, `a"b\c$d\qe`, toks[0].Value)
}

func TestLexerUnterminatedString(t *testing.T) {
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte(`"abc`)}
	_, err := Tokenize(file)
	assert.Error(t, err)
}

func TestLexerInvalidNumericLiteral(t *testing.T) {
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte(`123abc`)}
	_, err := Tokenize(file)
	assert.Error(t, err)
}

func TestLexerComment(t *testing.T) {
	toks := tokenizeString(t, "x # a comment\ny")
	require.Len(t, toks, 3)
	assert.Equal(t, "x", toks[0].Value)
	assert.Equal(t, "y", toks[1].Value)
}

func TestLexerScopersAndSeparators(t *testing.T) {
	toks := tokenizeString(t, `f(a, b)`)
	types := make([]TokenType, len(toks))
	for i, tok := range toks {
		types[i] = tok.Type
	}
	assert.Equal(t, []TokenType{TokIdent, TokScoper, TokIdent, TokSeparator, TokIdent, TokScoper, TokEOF}, types)
}

func TestLexerUnknownCharacter(t *testing.T) {
	file := &core.SourceFile{ID: 0, Path: "test", Content: []byte(`@`)}
	_, err := Tokenize(file)
	assert.Error(t, err)
}
