package receipt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategoryRule maps keywords to a category name
type CategoryRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// CategoryTable is the keyword-to-category lookup. Rule order matters:
// the first rule with a matching keyword wins.
type CategoryTable struct {
	Default    string         `yaml:"default"`
	Categories []CategoryRule `yaml:"categories"`
}

// DefaultCategoryTable returns the built-in table for grocery receipts.
func DefaultCategoryTable() *CategoryTable {
	return &CategoryTable{
		Default: "Outros",
		Categories: []CategoryRule{
			{Name: "Alimentos", Keywords: []string{"alimento", "comida", "bebida", "leite", "pão", "arroz", "feijão"}},
			{Name: "Limpeza", Keywords: []string{"limpeza", "sabão", "detergente", "desinfetante"}},
			{Name: "Higiene", Keywords: []string{"shampoo", "sabonete", "creme dental", "papel higiênico"}},
		},
	}
}

// LoadCategoryTable reads a keyword table from a YAML file.
func LoadCategoryTable(path string) (*CategoryTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category table: %w", err)
	}

	var table CategoryTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to parse category table: %w", err)
	}

	if table.Default == "" {
		table.Default = "Outros"
	}

	return &table, nil
}

// Match returns the category for a single line, or "" when no keyword hits.
func (t *CategoryTable) Match(line string) string {
	lower := strings.ToLower(line)
	for _, rule := range t.Categories {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Name
			}
		}
	}
	return ""
}

// CategoryState is the positional category accumulator threaded through one
// extraction call. The current category persists across lines and is
// overwritten whenever a later line matches a different rule; products
// opened in between inherit whatever was current at that point.
type CategoryState struct {
	table   *CategoryTable
	current string
}

// NewState seeds a fresh accumulator at the table's default.
func (t *CategoryTable) NewState() *CategoryState {
	return &CategoryState{table: t, current: t.Default}
}

// Observe updates the current category if the line matches a rule.
func (s *CategoryState) Observe(line string) {
	if cat := s.table.Match(line); cat != "" {
		s.current = cat
	}
}

// Current returns the category in effect.
func (s *CategoryState) Current() string {
	return s.current
}
