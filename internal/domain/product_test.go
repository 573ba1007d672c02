package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductJSON_KeyOrder(t *testing.T) {
	tests := []struct {
		name  string
		input string
		sites []SiteResult
		want  string
	}{
		{
			name:  "input order kept and sites appended",
			input: `{"nome":"TV","categoria":"eletro","codigo":7}`,
			want:  `{"nome":"TV","categoria":"eletro","codigo":7,"sites":[]}`,
		},
		{
			name:  "sites replaced in place",
			input: `{"codigo":7,"sites":[],"nome":"TV","categoria":"eletro"}`,
			sites: []SiteResult{{URL: "a.com", Title: "TV", Price: "10,00"}},
			want:  `{"codigo":7,"sites":[{"url":"a.com","titulo":"TV","preco":"10,00"}],"nome":"TV","categoria":"eletro"}`,
		},
		{
			name:  "no extras",
			input: `{"sites":null,"nome":"TV"}`,
			want:  `{"nome":"TV","sites":[]}`,
		},
		{
			name:  "missing nome leads",
			input: `{"zeta":1,"alfa":2}`,
			want:  `{"nome":"","zeta":1,"alfa":2,"sites":[]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Product
			require.NoError(t, json.Unmarshal([]byte(tt.input), &p))
			p.Sites = tt.sites

			out, err := marshalNoEscape(p.Clone())

			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestProductJSON_ExtrasAddedInCode(t *testing.T) {
	p := Product{
		Name: "Pinça & Tesoura",
		Extras: map[string]json.RawMessage{
			"marca":  json.RawMessage(`"X"`),
			"codigo": json.RawMessage(`1`),
		},
	}

	out, err := marshalNoEscape(p)

	require.NoError(t, err)
	assert.Equal(t, `{"nome":"Pinça & Tesoura","codigo":1,"marca":"X","sites":[]}`, string(out))
}

func TestProductJSON_Invalid(t *testing.T) {
	var p Product
	assert.Error(t, json.Unmarshal([]byte(`["nome"]`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"nome":5}`), &p))
}
