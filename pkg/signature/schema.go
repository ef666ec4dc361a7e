package signature

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// Side identifies which half of a signature a value is being checked
// against.
type Side string

const (
	SideInput  Side = "input"
	SideOutput Side = "output"
)

// Diagnosis is the structured, never-throwing explanation explain_input/
// explain_output produce for invalid data (spec §4.A).
type Diagnosis struct {
	Valid  bool
	Issues []Issue
}

// Issue is a single schema-validation complaint, path-qualified the way
// ormasoftchile-gert/pkg/schema/validate.go flattens jsonschema causes.
type Issue struct {
	Field   string
	Path    string
	Message string
}

// SchemaOf builds the compiled JSON-Schema object for one side of a
// signature: an object schema whose properties are each field's attached
// fragment (defaulting to {} — "any scalar" — when unspecified) and whose
// required list is every field name.
func SchemaOf(sig Signature, side Side) map[string]any {
	fields := sig.Inputs
	if side == SideOutput {
		fields = sig.Outputs
	}
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		frag := f.Schema
		if frag == nil {
			frag = map[string]any{}
		}
		props[f.Name] = frag
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func compile(sig Signature, side Side) (*jsonschema.Schema, error) {
	schemaDoc := SchemaOf(sig, side)
	raw, err := json.Marshal(schemaDoc)
	if err != nil {
		return nil, fmt.Errorf("signature: marshal schema: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("signature: unmarshal schema: %w", err)
	}

	id := "loom://signature/" + sig.Name + "/" + string(side)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(id, doc); err != nil {
		return nil, fmt.Errorf("signature: add schema resource: %w", err)
	}
	return c.Compile(id)
}

// ValidateInput reports whether m satisfies sig's input schema. Per §4.A,
// this never throws for invalid data — compilation failures (a malformed
// attached fragment) are treated as a false result, not a panic.
func ValidateInput(sig Signature, m map[string]any) bool {
	return validateSide(sig, SideInput, m)
}

// ValidateOutput is the output-side counterpart to ValidateInput.
func ValidateOutput(sig Signature, m map[string]any) bool {
	return validateSide(sig, SideOutput, m)
}

func validateSide(sig Signature, side Side, m map[string]any) bool {
	sch, err := compile(sig, side)
	if err != nil {
		return false
	}
	doc, err := toInterfaceMap(m)
	if err != nil {
		return false
	}
	return sch.Validate(doc) == nil
}

// ExplainInput produces a structured diagnosis instead of a bare bool.
func ExplainInput(sig Signature, m map[string]any) Diagnosis {
	return explainSide(sig, SideInput, m)
}

// ExplainOutput is the output-side counterpart to ExplainInput.
func ExplainOutput(sig Signature, m map[string]any) Diagnosis {
	return explainSide(sig, SideOutput, m)
}

func explainSide(sig Signature, side Side, m map[string]any) Diagnosis {
	sch, err := compile(sig, side)
	if err != nil {
		return Diagnosis{Valid: false, Issues: []Issue{{Message: err.Error()}}}
	}
	doc, err := toInterfaceMap(m)
	if err != nil {
		return Diagnosis{Valid: false, Issues: []Issue{{Message: err.Error()}}}
	}
	err = sch.Validate(doc)
	if err == nil {
		return Diagnosis{Valid: true}
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return Diagnosis{Valid: false, Issues: []Issue{{Message: err.Error()}}}
	}
	var issues []Issue
	for _, cause := range flatten(ve) {
		path := strings.Join(cause.InstanceLocation, "/")
		field := path
		if idx := strings.LastIndex(path, "/"); idx >= 0 {
			field = path[idx+1:]
		}
		issues = append(issues, Issue{
			Field:   field,
			Path:    path,
			Message: fmt.Sprintf("%v", cause.ErrorKind),
		})
	}
	return Diagnosis{Valid: false, Issues: issues}
}

// flatten recursively collects leaf causes, the same tree-walk
// ormasoftchile-gert/pkg/schema/validate.go uses.
func flatten(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, flatten(c)...)
	}
	return out
}

func toInterfaceMap(m map[string]any) (any, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
