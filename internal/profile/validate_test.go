package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{"empty", `{}`, true},
		{"unknown keys allowed", `{"extra":{"x":1},"hero":{"name":"A","new":true}}`, true},
		{"null sections", `{"hero":null,"experiences":null}`, true},
		{"hero must be object", `{"hero":"A"}`, false},
		{"list must be array", `{"experiences":{"title":"x"}}`, false},
		{"records must be objects", `{"certifications":["x"]}`, false},
		{"skills must be strings", `{"technicalSkills":[1]}`, false},
		{"media must be strings", `{"petProjects":[{"title":"p","media":[1]}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(mustParse(t, tt.doc))
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidDocument)
			}
		})
	}
}

func TestDecodeSeed_YAML(t *testing.T) {
	seed := `
hero:
  name: Ada
  tagline: Engineer
technicalSkills: [Go, SQL]
testimonials:
  - clientName: Bob
    rating: 4
`
	d, err := DecodeSeed([]byte(seed), "yaml")
	require.NoError(t, err)
	assert.Equal(t, "Ada", d.Hero().Name)
	assert.Equal(t, []string{"Go", "SQL"}, d.TechnicalSkills())
	require.Len(t, d.Testimonials(), 1)
	assert.Equal(t, 4, d.Testimonials()[0].Rating)
}

func TestDecodeSeed_JSON(t *testing.T) {
	d, err := DecodeSeed(Default().Bytes(), "")
	require.NoError(t, err)
	assert.True(t, d.Equal(Default()))

	_, err = DecodeSeed([]byte(`{"hero":[]}`), "json")
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = DecodeSeed([]byte(`x: 1`), "toml")
	assert.Error(t, err)
}

func TestValidate_RecordFieldTypes(t *testing.T) {
	for name, doc := range map[string]string{
		"numeric year":     `{"certifications":[{"name":"A","year":2023}]}`,
		"numeric title":    `{"petProjects":[{"title":7}]}`,
		"rating as text":   `{"testimonials":[{"clientName":"B","rating":"5"}]}`,
		"rating too large": `{"testimonials":[{"clientName":"B","rating":9}]}`,
		"hero name object": `{"hero":{"name":{"first":"A"}}}`,
		"points numbers":   `{"experiences":[{"title":"x","points":[1]}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(mustParse(t, doc)), ErrInvalidDocument)
		})
	}
	assert.NoError(t, Validate(Default()))
	assert.NoError(t, Validate(mustParse(t, `{"education":[{"degree":"BSc","details":null}]}`)))
}

func TestDecodeSeed_YAMLBareNumbersBecomeText(t *testing.T) {
	seed := `
certifications:
  - name: Azure AI
    year: 2023
  - name: Google
    year: "2023"
specialEvents:
  - title: Summit
    date: 2024-05-01
testimonials:
  - clientName: Bob
    rating: 5
`
	d, err := DecodeSeed([]byte(seed), "yaml")
	require.NoError(t, err)

	certs := d.Certifications()
	require.Len(t, certs, 2)
	assert.Equal(t, Certification{Name: "Azure AI", Year: "2023"}, certs[0])
	assert.Equal(t, "2023", certs[1].Year)
	assert.Equal(t, "2024-05-01", d.SpecialEvents()[0].Date)
	assert.Equal(t, 5, d.Testimonials()[0].Rating)
}
