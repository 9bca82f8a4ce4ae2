package habits

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jimdaga/habit-tracker/internal/apierr"
	"github.com/kaptinlin/jsonschema"
)

//go:embed habit.schema.json
var habitSchema []byte

// PayloadDecoder checks habit request bodies against the embedded JSON
// Schema before decoding them. Value rules are left to Validate.
type PayloadDecoder struct {
	schema *jsonschema.Schema
}

func NewPayloadDecoder() (*PayloadDecoder, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(habitSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile habit schema: %w", err)
	}
	return &PayloadDecoder{schema: schema}, nil
}

// Decode validates body and decodes it into a HabitInput.
func (d *PayloadDecoder) Decode(body []byte) (HabitInput, error) {
	var in HabitInput

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return in, apierr.BadRequest("invalid_body", fmt.Errorf("request body is not valid JSON: %w", err))
	}

	result := d.schema.Validate(doc)
	if !result.IsValid() {
		messages := make([]string, 0, len(result.Errors))
		for field, evalErr := range result.Errors {
			messages = append(messages, fmt.Sprintf("%s: %s", field, evalErr.Error()))
		}
		sort.Strings(messages)
		return in, apierr.BadRequest("invalid_body", fmt.Errorf("payload validation failed: %s", strings.Join(messages, "; ")))
	}

	if err := json.Unmarshal(body, &in); err != nil {
		return in, apierr.BadRequest("invalid_body", err)
	}
	return in, nil
}
