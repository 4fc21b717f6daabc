package profile

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed document.schema.json
var documentSchema []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(documentSchema))
	})
	return schema, schemaErr
}

// Validate checks the shape of every known top-level section and the types
// of known record fields. Unknown keys and unknown record fields are allowed.
func Validate(d Document) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("loading document schema: %w", err)
	}
	data, err := d.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}

// DecodeSeed parses a document from a seed file. format is "json" or "yaml";
// an empty format is treated as JSON. The result is validated.
func DecodeSeed(data []byte, format string) (Document, error) {
	var d Document
	switch strings.ToLower(format) {
	case "", "json":
		parsed, err := ParseDocument(data)
		if err != nil {
			return Document{}, err
		}
		d = parsed
	case "yaml", "yml":
		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
		d = NewDocument()
		for key, v := range tree {
			next, err := d.With(key, textScalars(key, v))
			if err != nil {
				return Document{}, err
			}
			d = next
		}
	default:
		return Document{}, fmt.Errorf("unsupported seed format %q", format)
	}
	if err := Validate(d); err != nil {
		return Document{}, err
	}
	return d, nil
}

// textScalars rewrites unquoted YAML numbers and timestamps as text, since
// every record field except a testimonial rating holds a string. A bare
// `year: 2023` thus imports as "2023".
func textScalars(field string, v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = textScalars(k, e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = textScalars(field, e)
		}
		return x
	case int:
		if field == "rating" {
			return x
		}
		return strconv.Itoa(x)
	case int64:
		if field == "rating" {
			return x
		}
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		if field == "rating" {
			return x
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.Equal(x.Truncate(24 * time.Hour)) {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	default:
		return v
	}
}
