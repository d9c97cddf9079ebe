package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crowdprice/crowdprice/pkg/normalize"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "attached unit", in: "Leche 1L", want: "leche 1 l"},
		{name: "extra whitespace", in: "  LECHE   1   l ", want: "leche 1 l"},
		{name: "attached ml", in: "Yerba 500ml", want: "yerba 500 ml"},
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: "   ", want: ""},
		{name: "gr folds to g", in: "Pan 250gr", want: "pan 250 g"},
		{name: "lt folds to l", in: "Aceite 1 Lt", want: "aceite 1 l"},
		{name: "standalone unit token", in: "harina kg", want: "harina kg"},
		{name: "standalone gr token", in: "azúcar gr", want: "azúcar g"},
		{name: "trailing punctuation", in: "Fideos 500g.", want: "fideos 500 g"},
		{name: "punctuation run", in: "café, molido;", want: "café molido"},
		{name: "no unit", in: "Jabón Líquido", want: "jabón líquido"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, normalize.Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Leche 1L",
		"  LECHE   1   l ",
		"Yerba 500ml",
		"Aceite de Girasol 1,5 Lt.",
		"arroz largo fino 1kg",
		"",
		"té en saquitos x50",
	}

	for _, in := range inputs {
		once := normalize.Normalize(in)
		assert.Equal(t, once, normalize.Normalize(once), "input %q", in)
	}
}

func TestPrettify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "common word with unit", in: "leche 1 l", want: "Leche 1 l"},
		{name: "common word with grams", in: "yerba 500 g", want: "Yerba 500 g"},
		{name: "empty", in: "", want: ""},
		{name: "uncommon word", in: "galletitas dulces", want: "Galletitas Dulces"},
		{name: "unit stays lowercase", in: "harina 1 kg", want: "Harina 1 kg"},
		{name: "single character token", in: "vino x 3", want: "Vino X 3"},
		{name: "accented common word", in: "azúcar 1 kg", want: "Azúcar 1 kg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, normalize.Prettify(tt.in))
		})
	}
}

func TestPrettify_IdempotentOnDisplayTokens(t *testing.T) {
	t.Parallel()

	// Prettify over its own output must not change tokens further.
	for _, in := range []string{"leche 1 l", "galletitas dulces", "harina 1 kg"} {
		once := normalize.Prettify(in)
		assert.Equal(t, once, normalize.Prettify(once))
	}
}
