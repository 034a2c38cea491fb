package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_PlainSplitsOnNewlines(t *testing.T) {
	lines := Tokenize("Leite Integral\n\n  R$ 4,50  \n", ModePlain, 10)

	assert.Equal(t, []string{"Leite Integral", "R$ 4,50"}, lines)
}

func TestTokenize_HTMLStripsScriptAndStyle(t *testing.T) {
	raw := `<html><head><style>body { color: red; }</style></head>
<body><script>var x = "R$ 99,99";</script>
<p>Arroz Branco Tipo 1 R$ 20,00</p></body></html>`

	lines := Tokenize(raw, ModeHTML, 10)

	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Arroz Branco")
	for _, line := range lines {
		assert.NotContains(t, line, "99,99", "script content must be dropped")
		assert.NotContains(t, line, "color", "style content must be dropped")
	}
}

func TestTokenize_HTMLPreservesRowBoundaries(t *testing.T) {
	raw := `<table><tr><td>Feijão Carioca</td><td>R$ 8,00</td></tr><tr><td>Macarrão Espaguete</td><td>R$ 5,50</td></tr></table>`

	lines := Tokenize(raw, ModeHTML, 10)

	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Feijão")
	assert.Contains(t, lines[1], "Macarrão")
}

func TestTokenize_HTMLFiltersShortResidue(t *testing.T) {
	raw := `<div>ok</div><div>linha longa o suficiente</div>`

	lines := Tokenize(raw, ModeHTML, 10)

	assert.Equal(t, []string{"linha longa o suficiente"}, lines)
}

func TestTokenize_HTMLCollapsesWhitespace(t *testing.T) {
	raw := "<p>Leite   \t  Integral    R$ 4,50</p>"

	lines := Tokenize(raw, ModeHTML, 10)

	assert.Equal(t, []string{"Leite Integral R$ 4,50"}, lines)
}
