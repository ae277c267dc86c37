package resume

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FailureMessage is shown to the user whenever the model's reply cannot be
// turned into a ParsedResume.
const FailureMessage = "Failed to parse JSON output."

var errNotObject = errors.New("expected a JSON object")

// Failure carries everything needed to show a parse failure: the message,
// the raw model output and the decoding error.
type Failure struct {
	Message   string `json:"message"`
	RawOutput string `json:"raw_output"`
	Error     string `json:"error"`
}

// Result is the outcome of Parse. Exactly one of Resume and Failure is set.
type Result struct {
	Resume   *ParsedResume
	Raw      json.RawMessage
	Warnings []string
	Failure  *Failure
}

// Parse decodes the fence-stripped model reply. Only invalid JSON and
// non-objects fail; shape deviations come back as warnings.
func Parse(text string) Result {
	raw := bytes.TrimSpace([]byte(text))

	var parsed ParsedResume
	if err := decode(raw, &parsed); err != nil {
		return Result{
			Failure: &Failure{
				Message:   FailureMessage,
				RawOutput: text,
				Error:     err.Error(),
			},
		}
	}

	return Result{
		Resume:   &parsed,
		Raw:      json.RawMessage(raw),
		Warnings: Validate(raw),
	}
}

func decode(raw []byte, parsed *ParsedResume) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty model output: %w", errNotObject)
	}
	if raw[0] != '{' {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		return errNotObject
	}
	return json.Unmarshal(raw, parsed)
}
