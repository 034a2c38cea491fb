package receipt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
		ok       bool
	}{
		{"R$ 4,50", 4.50, true},
		{"R$ 0,99", 0.99, true},
		{"R$ 1234,99", 1234.99, true},
		{"R$12,00", 12.00, true},
		{"Arroz 5kg R$ 20,00", 20.00, true},
		{"R$ 12.50", 12.50, true},
		{"sem preço nenhum", 0, false},
		{"R$ abc", 0, false},
		{"4,50", 0, false},
	}

	for _, test := range tests {
		price, ok := ParsePrice(test.input)
		assert.Equal(t, test.ok, ok, "Input: %s", test.input)
		if test.ok {
			assert.InDelta(t, test.expected, price, 0.001, "Input: %s", test.input)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"2x Sabão em pó", 2},
		{"Arroz 5kg", 5},
		{"Leite Integral 1L", 1},
		{"3 un Iogurte", 3},
		{"12 unid", 12},
		{"500ml Refrigerante", 500},
		{"Produto sem quantidade", 1},
		{"R$ 4,50", 1},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, ParseQuantity(test.input), "Input: %s", test.input)
	}
}

func TestParseQuantity_SameLineAsPrice(t *testing.T) {
	// Typical receipt row carries both; extractions are independent.
	line := "2x Arroz 5kg R$ 12,50"

	price, ok := ParsePrice(line)
	assert.True(t, ok)
	assert.InDelta(t, 12.50, price, 0.001)
	assert.Equal(t, 2, ParseQuantity(line))
}

func TestStripAmounts(t *testing.T) {
	assert.Equal(t, "Arroz", StripAmounts("2x Arroz R$ 12,50"))
	assert.Equal(t, "Leite Integral", StripAmounts("Leite Integral 1L"))
	assert.Equal(t, "sem valores", StripAmounts("sem valores"))
}

func TestStripDigits(t *testing.T) {
	assert.Equal(t, "Cod  Biscoito", StripDigits("Cod 7891234 Biscoito"))
}

func TestTruncateName(t *testing.T) {
	long := strings.Repeat("a", 150)
	assert.Len(t, []rune(TruncateName(long, 100)), 100)
	assert.Equal(t, "curto", TruncateName("  curto  ", 100))

	// Rune-safe with accented product names
	accented := strings.Repeat("ç", 120)
	assert.Len(t, []rune(TruncateName(accented, 100)), 100)
}
