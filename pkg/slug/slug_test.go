package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"ALL UPPER CASE", "all-upper-case"},
		{"  Men's T-Shirts  ", "men-s-t-shirts"},
		{"Hello   World!!", "hello-world"},
		{"--Leading and trailing--", "leading-and-trailing"},
		{"Size 42", "size-42"},
		{"Kadın Giyim", "kadin-giyim"},
		{"Çocuk Ürünleri", "cocuk-urunleri"},
		{"Güneş Gözlüğü", "gunes-gozlugu"},
		{"İstanbul", "istanbul"},
		{"Crème Brûlée", "creme-brulee"},
		{"Straße", "strasse"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Generate(tt.input))
		})
	}
}

func TestGenerate_OutputIsValid(t *testing.T) {
	for _, name := range []string{"Color", "Açık Mavi / Lacivert", "T-Shirt (XL)"} {
		assert.True(t, Valid(Generate(name)), name)
	}
}

func TestValid(t *testing.T) {
	for _, s := range []string{"shirt", "basic-shirt", "size-42", "a"} {
		assert.True(t, Valid(s), s)
	}
	for _, s := range []string{"", "Shirt", "basic--shirt", "-shirt", "shirt-", "basic_shirt", "basic shirt"} {
		assert.False(t, Valid(s), s)
	}
}
