package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// ErrInvalidDocument is returned when input cannot be used as a profile document.
var ErrInvalidDocument = errors.New("invalid document")

// Document is the profile content tree. Every top-level key is held as raw
// JSON, so keys and record fields this build does not know about survive a
// load/save round trip untouched.
//
// A Document is a value: With and Without return modified copies and never
// change the receiver. Raw values are never mutated in place.
type Document struct {
	sections map[string]json.RawMessage
}

// NewDocument returns an empty document.
func NewDocument() Document {
	return Document{sections: make(map[string]json.RawMessage)}
}

// ParseDocument decodes a serialized document. The top level must be a JSON object.
func ParseDocument(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return d, nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m == nil {
		m = make(map[string]json.RawMessage)
	}
	d.sections = m
	return nil
}

// MarshalJSON writes keys in sorted order with compacted values, so equal
// documents always serialize to equal bytes.
func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range d.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		if err := json.Compact(&buf, d.sections[key]); err != nil {
			return nil, fmt.Errorf("section %q: %w", key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Bytes serializes the document, panicking only if a section holds invalid
// JSON, which With and UnmarshalJSON never allow.
func (d Document) Bytes() []byte {
	b, err := d.MarshalJSON()
	if err != nil {
		panic(fmt.Sprintf("profile: marshalling document: %v", err))
	}
	return b
}

// Keys returns the top-level keys present in the document, sorted.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d.sections))
	for k := range d.sections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d Document) Has(key string) bool {
	_, ok := d.sections[key]
	return ok
}

// Raw returns a copy of the raw JSON stored under key.
func (d Document) Raw(key string) (json.RawMessage, bool) {
	v, ok := d.sections[key]
	if !ok {
		return nil, false
	}
	return append(json.RawMessage(nil), v...), true
}

// With returns a copy of d whose key subtree is replaced by v. The
// replacement is always whole: nothing of the previous subtree is kept.
func (d Document) With(key string, v any) (Document, error) {
	if key == "" {
		return Document{}, fmt.Errorf("%w: empty section key", ErrInvalidDocument)
	}
	var raw json.RawMessage
	switch val := v.(type) {
	case json.RawMessage:
		if !json.Valid(val) {
			return Document{}, fmt.Errorf("%w: section %q is not valid JSON", ErrInvalidDocument, key)
		}
		raw = append(json.RawMessage(nil), val...)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Document{}, fmt.Errorf("marshalling section %q: %w", key, err)
		}
		raw = b
	}
	out := d.Clone()
	out.sections[key] = raw
	return out, nil
}

// Without returns a copy of d with key removed.
func (d Document) Without(key string) Document {
	out := d.Clone()
	delete(out.sections, key)
	return out
}

// Clone returns an independent copy of d.
func (d Document) Clone() Document {
	out := Document{sections: make(map[string]json.RawMessage, len(d.sections))}
	for k, v := range d.sections {
		out.sections[k] = v
	}
	return out
}

// Equal reports whether both documents serialize to the same bytes.
func (d Document) Equal(other Document) bool {
	a, errA := d.MarshalJSON()
	b, errB := other.MarshalJSON()
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// Section decodes the record stored under key. Missing or null sections
// decode to the zero value. In a malformed record only the fields that fail
// to decode are left at their zero value; each failure is logged.
func Section[T any](d Document, key string) T {
	var out T
	raw, ok := d.sections[key]
	if !ok || isNull(raw) {
		return out
	}
	return decodeRecord[T](key, raw)
}

// List decodes the ordered list stored under key. The result is never nil
// and every element keeps its position, so a malformed record cannot shift
// or hide the records around it.
func List[T any](d Document, key string) []T {
	raw, ok := d.sections[key]
	if !ok || isNull(raw) {
		return []T{}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		slog.Warn("malformed profile section, using empty list", "section", key, "error", err)
		return []T{}
	}
	out := make([]T, len(elems))
	for i, e := range elems {
		out[i] = decodeRecord[T](fmt.Sprintf("%s[%d]", key, i), e)
	}
	return out
}

// decodeRecord decodes raw into T. When that fails and raw is an object,
// the fields are decoded one at a time and the ones that fail are skipped.
func decodeRecord[T any](where string, raw json.RawMessage) T {
	var out T
	err := json.Unmarshal(raw, &out)
	if err == nil {
		return out
	}
	slog.Warn("malformed profile record, keeping readable fields", "record", where, "error", err)

	var fields map[string]json.RawMessage
	var zero T
	if json.Unmarshal(raw, &fields) != nil {
		return zero
	}
	out = zero
	for name, v := range fields {
		one, err := json.Marshal(map[string]json.RawMessage{name: v})
		if err != nil {
			continue
		}
		var field T
		if json.Unmarshal(one, &field) != nil {
			continue
		}
		// Merge the single decoded field into out.
		if err := json.Unmarshal(one, &out); err != nil {
			continue
		}
	}
	return out
}

// RawList returns the list under key as undecoded records, so list edits
// keep record fields unknown to this build.
func RawList(d Document, key string) []json.RawMessage {
	return List[json.RawMessage](d, key)
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}

func (d Document) Hero() Hero { return Section[Hero](d, KeyHero) }
func (d Document) Experiences() []Experience { return List[Experience](d, KeyExperiences) }
func (d Document) Hackathons() []Experience { return List[Experience](d, KeyHackathons) }
func (d Document) Projects() []Project { return List[Project](d, KeyProjects) }
func (d Document) PetProjects() []PetProject { return List[PetProject](d, KeyPetProjects) }
func (d Document) Certifications() []Certification { return List[Certification](d, KeyCertifications) }
func (d Document) Education() []Education { return List[Education](d, KeyEducation) }
func (d Document) Publications() []Publication { return List[Publication](d, KeyPublications) }
func (d Document) FeaturedTalks() []Talk { return List[Talk](d, KeyFeaturedTalks) }
func (d Document) Teaching() []Talk { return List[Talk](d, KeyTeaching) }
func (d Document) FeaturedWriting() []Writing { return List[Writing](d, KeyFeaturedWriting) }
func (d Document) MiscLinks() []MiscLink { return List[MiscLink](d, KeyMiscLinks) }
func (d Document) Testimonials() []Testimonial { return List[Testimonial](d, KeyTestimonials) }
func (d Document) SpecialEvents() []SpecialEvent { return List[SpecialEvent](d, KeySpecialEvents) }
func (d Document) TechnicalSkills() []string { return List[string](d, KeyTechnicalSkills) }
func (d Document) SoftSkills() []string { return List[string](d, KeySoftSkills) }
