package refine

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/genai"
)

// Result is the structured analysis returned by the model.
type Result struct {
	Sentiment  string `json:"sentiment" jsonschema:"description=Brief description of the detected sentiment"`
	Reasoning  string `json:"reasoning" jsonschema:"description=The internal reasoning process summarized"`
	Suggestion string `json:"suggestion" jsonschema:"description=The suggested rewritten text"`
	IsNegative bool   `json:"isNegative" jsonschema:"description=Whether the text contains negative sentiment"`
}

// ValidationError reports model output that does not satisfy the Result schema.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "model output failed schema validation: " + strings.Join(e.Problems, "; ")
}

// Unknown keys are tolerated and dropped on decode; only the four fields are contractual.
var reflector = &jsonschema.Reflector{
	Anonymous:                 true,
	ExpandedStruct:            true,
	DoNotReference:            true,
	AllowAdditionalProperties: true,
}

var outputSchema = sync.OnceValue(func() *jsonschema.Schema {
	s := reflector.Reflect(&Result{})
	// gojsonschema only understands drafts up to 7.
	s.Version = ""
	return s
})

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	raw, err := json.Marshal(outputSchema())
	if err != nil {
		return nil, fmt.Errorf("marshaling output schema: %w", err)
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
})

// OutputJSONSchema returns the JSON Schema document the model output is validated against.
func OutputJSONSchema() ([]byte, error) {
	return json.MarshalIndent(outputSchema(), "", "  ")
}

// ResponseSchema converts the output schema into the form Gemini's
// structured-output config expects.
func ResponseSchema() *genai.Schema {
	s := outputSchema()
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema),
		Required:   append([]string(nil), s.Required...),
	}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		out.Properties[pair.Key] = &genai.Schema{
			Type:        genaiType(pair.Value.Type),
			Description: pair.Value.Description,
		}
		out.PropertyOrdering = append(out.PropertyOrdering, pair.Key)
	}
	return out
}

func genaiType(t string) genai.Type {
	switch t {
	case "boolean":
		return genai.TypeBoolean
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// ParseResult validates raw model output against the schema and decodes it.
func ParseResult(raw string) (Result, error) {
	schema, err := compiledSchema()
	if err != nil {
		return Result{}, fmt.Errorf("compiling output schema: %w", err)
	}

	res, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		// Validate errors out before checking constraints when raw is not JSON.
		return Result{}, &ValidationError{Problems: []string{err.Error()}}
	}
	if !res.Valid() {
		problems := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			problems = append(problems, e.String())
		}
		return Result{}, &ValidationError{Problems: problems}
	}

	var out Result
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Result{}, &ValidationError{Problems: []string{err.Error()}}
	}
	return out, nil
}
