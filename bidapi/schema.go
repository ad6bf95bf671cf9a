package bidapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidPayload matches every schema rejection via errors.Is.
var ErrInvalidPayload = errors.New("invalid payload")

// InvalidPayloadError lists every schema violation found in a payload.
type InvalidPayloadError struct {
	Problems []string
}

func (e *InvalidPayloadError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidPayload, strings.Join(e.Problems, "; "))
}

func (e *InvalidPayloadError) Is(target error) bool { return target == ErrInvalidPayload }

// submitBidSchema checks shape only. Value rules such as positive price or
// description length belong to the bid validator so they are reported together.
const submitBidSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["consultant_id", "price", "timeline", "description"],
  "properties": {
    "consultant_id": {"type": "string"},
    "price": {"type": "number"},
    "timeline": {"type": "string"},
    "description": {"type": "string"},
    "value_adds": {"type": "array", "items": {"type": "string"}},
    "case_studies": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title"],
        "properties": {
          "title": {"type": "string"},
          "description": {"type": "string"},
          "outcome": {"type": "string"},
          "tags": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var submitBidLoader = gojsonschema.NewStringLoader(submitBidSchema)

// DecodeSubmitBid checks data against the submit schema and decodes it.
// Schema violations come back as *InvalidPayloadError.
func DecodeSubmitBid(data []byte) (SubmitBidRequest, error) {
	if err := validatePayload(submitBidLoader, data); err != nil {
		return SubmitBidRequest{}, err
	}
	var req SubmitBidRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return SubmitBidRequest{}, fmt.Errorf("decode submit bid: %w", err)
	}
	return req, nil
}

func validatePayload(schema gojsonschema.JSONLoader, data []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &InvalidPayloadError{Problems: []string{err.Error()}}
	}
	if !result.Valid() {
		problems := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			problems[i] = desc.String()
		}
		return &InvalidPayloadError{Problems: problems}
	}
	return nil
}
