package profile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_MissingKeysReadAsEmpty(t *testing.T) {
	for _, d := range []Document{{}, NewDocument(), mustParse(t, `{}`), mustParse(t, `null`)} {
		assert.Equal(t, Hero{}, d.Hero())
		assert.Empty(t, d.Experiences())
		assert.NotNil(t, d.Experiences())
		assert.Empty(t, d.Hackathons())
		assert.Empty(t, d.Projects())
		assert.Empty(t, d.PetProjects())
		assert.Empty(t, d.Certifications())
		assert.Empty(t, d.Education())
		assert.Empty(t, d.Publications())
		assert.Empty(t, d.FeaturedTalks())
		assert.Empty(t, d.Teaching())
		assert.Empty(t, d.FeaturedWriting())
		assert.Empty(t, d.MiscLinks())
		assert.Empty(t, d.Testimonials())
		assert.Empty(t, d.SpecialEvents())
		assert.NotNil(t, d.TechnicalSkills())
		assert.Empty(t, d.SoftSkills())
		assert.NotPanics(t, func() { Summary(d) })
	}
}

func TestDocument_NullAndMalformedSectionsReadAsEmpty(t *testing.T) {
	d := mustParse(t, `{"hero":null,"experiences":"not a list","technicalSkills":[1,2],"education":[{"degree":"BSc","details":null}]}`)

	assert.Equal(t, Hero{}, d.Hero())
	assert.Empty(t, d.Experiences())
	assert.Equal(t, []string{"", ""}, d.TechnicalSkills())

	edu := d.Education()
	require.Len(t, edu, 1)
	assert.Equal(t, "BSc", edu[0].Degree)
	assert.Nil(t, edu[0].Details)
}

func TestDocument_BadFieldOnlyBlanksThatField(t *testing.T) {
	d := mustParse(t, `{
		"certifications":[{"name":"Azure AI","year":2023},{"name":"Google","year":"2023"}],
		"petProjects":[{"title":"A"},{"title":"B","media":"not-a-list","url":"https://b"},{"title":"C"}],
		"hero":{"name":"Ada","customLinks":"x"}
	}`)

	certs := d.Certifications()
	require.Len(t, certs, 2)
	assert.Equal(t, Certification{Name: "Azure AI"}, certs[0])
	assert.Equal(t, Certification{Name: "Google", Year: "2023"}, certs[1])

	projects := d.PetProjects()
	require.Len(t, projects, 3)
	assert.Equal(t, "B", projects[1].Title)
	assert.Equal(t, "https://b", projects[1].URL)
	assert.Empty(t, projects[1].Media)
	assert.Equal(t, "C", projects[2].Title)

	assert.Equal(t, "Ada", d.Hero().Name)
	assert.Empty(t, d.Hero().CustomLinks)
}

func TestParseDocument_RejectsNonObject(t *testing.T) {
	for _, in := range []string{`[]`, `"x"`, `{`, ``} {
		_, err := ParseDocument([]byte(in))
		assert.ErrorIs(t, err, ErrInvalidDocument, in)
	}
}

func TestDocument_MarshalIsCanonical(t *testing.T) {
	a := mustParse(t, `{"softSkills": ["A"],   "hero": {"name":  "X"}}`)
	b := mustParse(t, `{"hero":{"name":"X"},"softSkills":["A"]}`)

	assert.Equal(t, `{"hero":{"name":"X"},"softSkills":["A"]}`, string(a.Bytes()))
	assert.True(t, a.Equal(b))

	again, err := ParseDocument(a.Bytes())
	require.NoError(t, err)
	assert.Equal(t, a.Bytes(), again.Bytes())

	viaJSON, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, a.Bytes(), viaJSON)
}

func TestDocument_WithIsCopyOnWrite(t *testing.T) {
	orig := mustParse(t, `{"hero":{"name":"X"}}`)

	next, err := orig.With(KeySoftSkills, []string{"Listening"})
	require.NoError(t, err)
	assert.False(t, orig.Has(KeySoftSkills))
	assert.True(t, next.Has(KeySoftSkills))

	raw, err := next.With(KeyHero, json.RawMessage(`{"name":"Y"}`))
	require.NoError(t, err)
	assert.Equal(t, "Y", raw.Hero().Name)
	assert.Equal(t, "X", next.Hero().Name)

	_, err = orig.With(KeyHero, json.RawMessage(`{oops`))
	assert.ErrorIs(t, err, ErrInvalidDocument)
	_, err = orig.With("", 1)
	assert.ErrorIs(t, err, ErrInvalidDocument)

	without := next.Without(KeyHero)
	assert.False(t, without.Has(KeyHero))
	assert.True(t, next.Has(KeyHero))
}

func TestDocument_RawReturnsCopy(t *testing.T) {
	d := mustParse(t, `{"hero":{"name":"X"}}`)
	raw, ok := d.Raw(KeyHero)
	require.True(t, ok)
	raw[2] = 'Z'
	assert.Equal(t, "X", d.Hero().Name)

	_, ok = d.Raw("missing")
	assert.False(t, ok)
}

func TestDefault(t *testing.T) {
	d := Default()
	assert.Equal(t, DefaultName, d.Hero().Name)
	assert.NotEmpty(t, d.Experiences())
	assert.NotEmpty(t, d.TechnicalSkills())
	assert.NoError(t, Validate(d))
	assert.True(t, d.Equal(Default()))
}
