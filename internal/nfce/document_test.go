package nfce

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/despensaapp/despensa/internal/receipt"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractFromDocument(t *testing.T) {
	html := `<html><body><table>
		<tr><th>Descrição</th><th>Qtd</th><th>Valor Total</th></tr>
		<tr><td>Arroz Branco</td><td>2 un</td><td>R$ 25,90</td></tr>
		<tr><td>Feijão Preto</td><td>1 un</td><td>R$ 8,75</td></tr>
		<tr><td colspan="3">TOTAL GERAL</td></tr>
	</table></body></html>`

	products, err := ExtractFromDocument(mustDoc(t, html), receipt.DefaultOptions(), "Outros")
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Contains(t, products[0].Name, "Arroz")
	assert.Equal(t, 25.90, products[0].Price)
	assert.Equal(t, 2, products[0].Stock)
	assert.Equal(t, "Outros", products[0].Category)

	assert.Contains(t, products[1].Name, "Feijão")
	assert.Equal(t, 8.75, products[1].Price)
	assert.Equal(t, 1, products[1].Stock)
}

func TestExtractFromDocumentCellBoundaries(t *testing.T) {
	// Adjacent cells must stay separated when the row text is built, or
	// the unit token abuts the price and the quantity is lost.
	html := `<table><tr><td>Achocolatado</td><td>4 un</td><td>R$ 31,60</td></tr></table>`

	products, err := ExtractFromDocument(mustDoc(t, html), receipt.DefaultOptions(), "Outros")
	require.NoError(t, err)
	require.Len(t, products, 1)

	assert.Equal(t, "Achocolatado", products[0].Name)
	assert.Equal(t, 4, products[0].Stock)
	assert.Equal(t, 31.60, products[0].Price)
}

func TestExtractFromDocumentSkipsRows(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{
			name: "header row without a decimal amount",
			html: `<table><tr><td>Produto</td><td>Quantidade</td><td>Valor</td></tr></table>`,
		},
		{
			name: "row with fewer than 3 cells",
			html: `<table><tr><td>Leite</td><td>R$ 4,50</td></tr></table>`,
		},
		{
			name: "row without a price",
			html: `<table><tr><td>Leite</td><td>2 un</td><td>indisponível</td></tr></table>`,
		},
		{
			name: "row whose derived name is too short",
			html: `<table><tr><td>12</td><td>34</td><td>R$ 4,50</td></tr></table>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractFromDocument(mustDoc(t, tt.html), receipt.DefaultOptions(), "Outros")
			assert.ErrorIs(t, err, ErrNoProductRows)
		})
	}
}

func TestExtractFromDocumentClassBasedLayout(t *testing.T) {
	html := `<div>
		<div class="item-produto"><span>Detergente Neutro</span><span>3 un</span><span>R$ 2,49</span></div>
	</div>`

	doc := mustDoc(t, html)
	products, err := ExtractFromDocument(doc, receipt.DefaultOptions(), "Outros")
	require.NoError(t, err)
	require.Len(t, products, 1)

	assert.Contains(t, products[0].Name, "Detergente")
	assert.Equal(t, 2.49, products[0].Price)
	assert.Equal(t, 3, products[0].Stock)
}

func TestExtractFromDocumentNoRows(t *testing.T) {
	_, err := ExtractFromDocument(mustDoc(t, "<html><body><p>Consulta indisponível</p></body></html>"), receipt.DefaultOptions(), "Outros")
	assert.ErrorIs(t, err, ErrNoProductRows)
}

func TestIsSynthetic(t *testing.T) {
	assert.True(t, IsSynthetic("<html><title>DANFE Sintetico</title></html>"))
	assert.True(t, IsSynthetic("documento sintético da nota"))
	assert.False(t, IsSynthetic("<html><body>consulta completa</body></html>"))
}
