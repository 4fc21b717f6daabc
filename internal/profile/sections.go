package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	KeyHero            = "hero"
	KeyExperiences     = "experiences"
	KeyHackathons      = "hackathons"
	KeyProjects        = "projects"
	KeyPetProjects     = "petProjects"
	KeyCertifications  = "certifications"
	KeyEducation       = "education"
	KeyPublications    = "publications"
	KeyFeaturedTalks   = "featuredTalks"
	KeyTeaching        = "teaching"
	KeyFeaturedWriting = "featuredWriting"
	KeyMiscLinks       = "miscLinks"
	KeyTestimonials    = "testimonials"
	KeySpecialEvents   = "specialEvents"
	KeyTechnicalSkills = "technicalSkills"
	KeySoftSkills      = "softSkills"
)

var (
	ErrUnknownSection  = errors.New("unknown section")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// Kind is the shape of a top-level section.
type Kind int

const (
	KindRecord  Kind = iota // a single object
	KindRecords             // an ordered list of uniform objects
	KindStrings             // an ordered list of strings
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindRecords:
		return "records"
	case KindStrings:
		return "strings"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// SectionInfo describes one top-level key of the document.
type SectionInfo struct {
	Key   string
	Title string
	Kind  Kind

	// fields lists the record fields an edit form exposes, in form order.
	// List-valued fields are suffixed with "[]".
	fields []string
	// defaults overrides the empty value for specific fields of a new record.
	defaults map[string]any
}

// Fields returns the record field names with list fields marked by "[]".
func (s SectionInfo) Fields() []string {
	return append([]string(nil), s.fields...)
}

var experienceFields = []string{"year", "title", "organization", "points[]"}
var talkFields = []string{"title", "description", "url", "thumbnail"}

var sections = []SectionInfo{
	{Key: KeyHero, Title: "Profile", Kind: KindRecord,
		fields: []string{"name", "tagline", "location", "email", "linkedin", "github", "twitter", "youtube",
			"summary", "profilePhoto", "resumeUrl", "thesisUrl"}},
	{Key: KeyExperiences, Title: "Experience", Kind: KindRecords, fields: experienceFields},
	{Key: KeyHackathons, Title: "Hackathons", Kind: KindRecords, fields: experienceFields},
	{Key: KeyProjects, Title: "Projects", Kind: KindRecords,
		fields: []string{"title", "description", "points[]"}},
	{Key: KeyPetProjects, Title: "Pet Projects", Kind: KindRecords,
		fields: []string{"title", "description", "url", "github"}},
	{Key: KeyCertifications, Title: "Certifications", Kind: KindRecords,
		fields: []string{"name", "year"}},
	{Key: KeyEducation, Title: "Education", Kind: KindRecords,
		fields: []string{"degree", "institution", "period", "details"}},
	{Key: KeyPublications, Title: "Papers", Kind: KindRecords,
		fields: []string{"title", "authors", "venue", "url"}},
	{Key: KeyFeaturedTalks, Title: "Featured Talks", Kind: KindRecords, fields: talkFields},
	{Key: KeyTeaching, Title: "Teaching", Kind: KindRecords, fields: talkFields},
	{Key: KeyFeaturedWriting, Title: "Featured Writing", Kind: KindRecords,
		fields: []string{"title", "url", "date"}},
	{Key: KeyMiscLinks, Title: "Misc Links", Kind: KindRecords,
		fields: []string{"title", "description", "url"}},
	{Key: KeyTestimonials, Title: "Testimonials", Kind: KindRecords,
		fields:   []string{"clientName", "clientRole", "company", "feedback", "rating", "projectName", "date"},
		defaults: map[string]any{"rating": 5}},
	{Key: KeySpecialEvents, Title: "Events", Kind: KindRecords,
		fields: []string{"title", "date", "location", "description", "imageUrl", "badge", "tags[]"}},
	{Key: KeyTechnicalSkills, Title: "Technical Skills", Kind: KindStrings},
	{Key: KeySoftSkills, Title: "Soft Skills", Kind: KindStrings},
}

// Sections returns the known top-level sections in display order.
func Sections() []SectionInfo {
	return append([]SectionInfo(nil), sections...)
}

// Lookup finds a known section by key.
func Lookup(key string) (SectionInfo, bool) {
	for _, s := range sections {
		if s.Key == key {
			return s, true
		}
	}
	return SectionInfo{}, false
}

// NewItem returns the record appended by an "add" action on a list section:
// every text field empty, every list field empty, plus section defaults.
func NewItem(key string) (json.RawMessage, error) {
	info, ok := Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSection, key)
	}
	switch info.Kind {
	case KindStrings:
		return json.RawMessage(`""`), nil
	case KindRecord:
		return nil, fmt.Errorf("section %q is a single record, not a list", key)
	}

	item := make(map[string]any, len(info.fields))
	for _, f := range info.fields {
		if name, ok := strings.CutSuffix(f, "[]"); ok {
			item[name] = []string{}
			continue
		}
		item[f] = ""
	}
	for k, v := range info.defaults {
		item[k] = v
	}
	return json.Marshal(item)
}

// Append returns a new list with item at the end.
func Append[T any](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, items...)
	return append(out, item)
}

// RemoveAt returns a new list without the element at index. Every later
// element shifts down by one.
func RemoveAt[T any](items []T, index int) ([]T, error) {
	if index < 0 || index >= len(items) {
		return nil, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, len(items))
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:index]...)
	return append(out, items[index+1:]...), nil
}

// Move returns a new list where the element at from ends up at index to.
func Move[T any](items []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(items) {
		return nil, fmt.Errorf("%w: from %d (len %d)", ErrIndexOutOfRange, from, len(items))
	}
	if to < 0 || to >= len(items) {
		return nil, fmt.Errorf("%w: to %d (len %d)", ErrIndexOutOfRange, to, len(items))
	}
	item := items[from]
	rest, _ := RemoveAt(items, from)
	out := make([]T, 0, len(items))
	out = append(out, rest[:to]...)
	out = append(out, item)
	return append(out, rest[to:]...), nil
}

// At returns the element at index, or false when index is out of bounds.
func At[T any](items []T, index int) (T, bool) {
	if index < 0 || index >= len(items) {
		var zero T
		return zero, false
	}
	return items[index], true
}

// SplitComma flattens comma-separated edit input: trimmed, empties dropped.
func SplitComma(s string) []string {
	return splitNonEmpty(strings.Split(s, ","))
}

// SplitLines flattens one-item-per-line edit input.
func SplitLines(s string) []string {
	return splitNonEmpty(strings.Split(s, "\n"))
}

func splitNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// extraListFields are list-valued record fields that edit forms do not
// expose directly but that can still be set from text input.
var extraListFields = map[string]bool{"features": true, "technologies": true, "media": true}

// FieldValue converts text edit input for key's field into the JSON value
// stored in the record. List fields split on commas, except points which
// split on lines. Testimonial ratings are numbers. Input that is itself a
// JSON array or object is stored as given.
func FieldValue(key, field, input string) (any, error) {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		if json.Valid([]byte(trimmed)) {
			return json.RawMessage(trimmed), nil
		}
	}

	isList := extraListFields[field]
	if info, ok := Lookup(key); ok {
		for _, f := range info.fields {
			if f == field+"[]" {
				isList = true
			}
		}
	}
	switch {
	case field == "points":
		return SplitLines(input), nil
	case isList:
		return SplitComma(input), nil
	case key == KeyTestimonials && field == "rating":
		n, err := strconv.Atoi(trimmed)
		if err != nil || n < 1 || n > 5 {
			return nil, fmt.Errorf("rating must be a number from 1 to 5, got %q", input)
		}
		return n, nil
	}
	return input, nil
}
