package config

import "os"

// ExpandEnv expands environment variables in YAML content using the
// standard library. Supports both ${VAR} and $VAR syntax. Missing
// variables expand to empty string; Load's merge then keeps the built-in
// default for any setting left empty that way.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
