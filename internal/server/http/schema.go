package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/and161185/sakhatype/internal/errs"
)

// schemas holds the compiled request body schemas.
type schemas struct {
	credentials *jsonschema.Schema
	submission  *jsonschema.Schema
}

func credentialsSchema() map[string]any {
	str := map[string]any{"type": "string", "minLength": 1}
	return map[string]any{
		"type":     "object",
		"required": []string{"username", "password"},
		"properties": map[string]any{
			"username": str,
			"password": str,
		},
	}
}

// submissionSchema requires every metric but consistency. time_mode is limited to modes.
func submissionSchema(modes []int) map[string]any {
	metric := map[string]any{"type": "number", "minimum": 0}
	count := map[string]any{"type": "integer", "minimum": 0}
	return map[string]any{
		"type": "object",
		"required": []string{
			"wpm", "raw_wpm", "accuracy", "burst_wpm", "total_errors", "time_mode", "test_duration",
		},
		"properties": map[string]any{
			"wpm":           metric,
			"raw_wpm":       metric,
			"accuracy":      metric,
			"burst_wpm":     metric,
			"consistency":   metric,
			"total_errors":  count,
			"test_duration": count,
			"time_mode":     map[string]any{"type": "integer", "enum": modes},
		},
	}
}

func compileSchemas(modes []int) (*schemas, error) {
	creds, err := compileSchema("credentials", credentialsSchema())
	if err != nil {
		return nil, err
	}
	sub, err := compileSchema("submission", submissionSchema(modes))
	if err != nil {
		return nil, err
	}
	return &schemas{credentials: creds, submission: sub}, nil
}

func mustCompileSchemas(modes []int) *schemas {
	s, err := compileSchemas(modes)
	if err != nil {
		panic(err)
	}
	return s
}

// compileSchema round-trips def through JSON so the compiler sees plain JSON values.
func compileSchema(name string, def map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %q: %w", name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", name, err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema %q: %w", name, err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", name, err)
	}
	return sch, nil
}

// validateRaw parses raw without losing number precision and checks it against sch.
func validateRaw(sch *jsonschema.Schema, raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: malformed body: %v", errs.ErrInvalidParameter, err)
	}
	return validateDoc(sch, doc)
}

func validateDoc(sch *jsonschema.Schema, doc any) error {
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("%w: %s", errs.ErrInvalidParameter, schemaDetail(err))
	}
	return nil
}

// schemaDetail flattens the validator's multi-line report, dropping the header line.
func schemaDetail(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	if len(lines) > 1 {
		lines = lines[1:]
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimPrefix(strings.TrimSpace(l), "- ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "; ")
}
