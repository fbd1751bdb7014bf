package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskLiterals(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "single quoted string",
			input: "a = 'FROM x'",
			want:  "a =         ",
		},
		{
			name:  "doubled quote stays inside literal",
			input: "'it''s' b",
			want:  "        b",
		},
		{
			name:  "escape string",
			input: `E'a\'b' c`,
			want:  `E       c`,
		},
		{
			name:  "double quoted identifier kept",
			input: `"my 'table'" x`,
			want:  `"my 'table'" x`,
		},
		{
			name:  "line comment keeps newline",
			input: "a -- FROM x\nb",
			want:  "a          \nb",
		},
		{
			name:  "nested block comment",
			input: "a /* x /* y */ z */ b",
			want:  "a                   b",
		},
		{
			name:  "dollar quoted",
			input: "a $$FROM x$$ b",
			want:  "a            b",
		},
		{
			name:  "tagged dollar quote",
			input: "a $q$it's$q$ b",
			want:  "a            b",
		},
		{
			name:  "bracket identifier kept with its quote",
			input: "[it's] x = 'y'",
			want:  "[it's] x =    ",
		},
		{
			name:  "subscript does not shield a literal",
			input: "tags['FROM x']",
			want:  "tags[        ]",
		},
		{
			name:  "positional parameter is not a dollar quote",
			input: "a = $1 AND b = $2",
			want:  "a = $1 AND b = $2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maskLiterals(tt.input)
			require.Len(t, got, len(tt.input), "offsets must be preserved")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBlankComments_KeepsStrings(t *testing.T) {
	assert.Equal(t, "SELECT '--x'          ", blankComments("SELECT '--x' -- note  "))
}

func TestTokenize(t *testing.T) {
	tokens := tokenize(`SELECT "My ""T""".col, 1.5 FROM s.t;`)

	kinds := make([]tokenKind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.kind
	}

	assert.Equal(t, []tokenKind{
		tokIdent, tokQuotedIdent, tokDot, tokIdent, tokComma, tokNumber,
		tokIdent, tokIdent, tokDot, tokIdent, tokSemicolon,
	}, kinds)
	assert.Equal(t, `My "T"`, tokens[1].name())
	assert.True(t, tokens[6].isKeyword("from"))
	assert.False(t, tokens[1].isKeyword("my"))
}

func TestTokenize_Brackets(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantKinds []tokenKind
		wantName  string
	}{
		{
			name:      "qualified bracket identifiers",
			input:     "[dbo].[Order Details]",
			wantKinds: []tokenKind{tokQuotedIdent, tokDot, tokQuotedIdent},
			wantName:  "dbo",
		},
		{
			name:      "escaped closing bracket",
			input:     "[a]]b]",
			wantKinds: []tokenKind{tokQuotedIdent},
			wantName:  "a]b",
		},
		{
			name:      "subscript after identifier",
			input:     "tags[1]",
			wantKinds: []tokenKind{tokIdent, tokOther, tokNumber, tokOther},
			wantName:  "tags",
		},
		{
			name:      "array constructor",
			input:     "ARRAY [1, 2]",
			wantKinds: []tokenKind{tokIdent, tokOther, tokNumber, tokComma, tokNumber, tokOther},
			wantName:  "ARRAY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := tokenize(maskLiterals(tt.input))

			kinds := make([]tokenKind, len(tokens))
			for i, tok := range tokens {
				kinds[i] = tok.kind
			}
			assert.Equal(t, tt.wantKinds, kinds)
			assert.Equal(t, tt.wantName, tokens[0].name())
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"producto"`, quoteIdent("producto"))
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}
