package colname

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing space", "Ano ", "ano"},
		{"cedilla and tilde", "Pontuação", "pontuacao"},
		{"hyphen", "User-ID", "user_id"},
		{"inner space", "Movie Id", "movie_id"},
		{"surrounding whitespace", "\t title \n", "title"},
		{"already canonical", "score", "score"},
		{"acute accents", "Gênero", "genero"},
		{"compatibility ligature", "ﬁlme", "filme"},
		{"no ascii equivalent", "日本", ""},
		{"empty", "", ""},
		{"only spaces", "   ", ""},
		{"double space kept as two underscores", "user  id", "user__id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for _, in := range []string{"Ano ", "Pontuação", "User-ID", "x"} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}
