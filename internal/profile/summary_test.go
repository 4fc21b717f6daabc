package profile

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSummary_Empty(t *testing.T) {
	assert.Equal(t, "Portfolio: not yet configured.", Summary(NewDocument()))
}

func TestSummary_Default(t *testing.T) {
	s := Summary(Default())
	assert.True(t, strings.HasPrefix(s, DefaultName+" (Bahawalpur, Pakistan)."), s)
	assert.Contains(t, s, "Skills: Python, SQL")
	assert.Contains(t, s, "2 certifications")
}

func TestSummary_Truncates(t *testing.T) {
	d, _ := NewDocument().With(KeyHero, Hero{Name: "X", Summary: strings.Repeat("héllo ", 1000)})
	s := Summary(d)
	assert.LessOrEqual(t, len(s), maxSummaryChars)
	assert.True(t, utf8.ValidString(s))
}

func TestIsVideo(t *testing.T) {
	assert.True(t, IsVideo("https://cdn.example.com/demo.MP4?x=1"))
	assert.True(t, IsVideo("https://youtu.be/abc"))
	assert.True(t, IsVideo("data:video/webm;base64,AAAA"))
	assert.False(t, IsVideo("data:image/png;base64,AAAA"))
	assert.False(t, IsVideo("https://example.com/shot.png"))
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,aGk=", DataURL("image/png", []byte("hi")))
	assert.Equal(t, "data:application/octet-stream;base64,", DataURL("", nil))
}
