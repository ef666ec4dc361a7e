package tool

import (
	"encoding/json"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// validateAgainst compiles schema (nil means "any") and checks data against
// it, returning a human-readable explanation on failure — grounded on the
// same santhosh-tekuri/jsonschema/v6 compile-then-validate flow used by
// pkg/signature/schema.go and ormasoftchile-gert/pkg/schema/validate.go.
func validateAgainst(schema map[string]any, data map[string]any) (bool, string) {
	if schema == nil {
		return true, ""
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return false, err.Error()
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false, err.Error()
	}

	c := jsonschema.NewCompiler()
	const id = "loom://tool/schema"
	if err := c.AddResource(id, doc); err != nil {
		return false, err.Error()
	}
	sch, err := c.Compile(id)
	if err != nil {
		return false, err.Error()
	}

	rawData, err := json.Marshal(data)
	if err != nil {
		return false, err.Error()
	}
	var instance any
	if err := json.Unmarshal(rawData, &instance); err != nil {
		return false, err.Error()
	}

	if err := sch.Validate(instance); err != nil {
		return false, err.Error()
	}
	return true, ""
}
