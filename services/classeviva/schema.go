package classeviva

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

const (
	loginSchema = `{
  "type": "object",
  "required": ["token"],
  "properties": {
    "token": {"type": "string", "minLength": 1},
    "ident": {"type": ["string", "null"]},
    "firstName": {"type": ["string", "null"]},
    "lastName": {"type": ["string", "null"]}
  }
}`

	gradesSchema = `{
  "type": "object",
  "required": ["grades"],
  "properties": {
    "grades": {
      "type": "array",
      "items": {"type": "object"}
    }
  }
}`
)

type schemas struct {
	login  *gojsonschema.Schema
	grades *gojsonschema.Schema
}

func loadSchemas() (*schemas, error) {
	login, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(loginSchema))
	if err != nil {
		return nil, errors.Wrap(err, "loading login schema")
	}
	grades, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(gradesSchema))
	if err != nil {
		return nil, errors.Wrap(err, "loading grades schema")
	}
	return &schemas{login: login, grades: grades}, nil
}

// validate checks a response body against schema, describing every violation.
func validate(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errors.Wrap(err, "decoding response")
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return errors.Errorf("unexpected response: %s", strings.Join(msgs, "; "))
}
