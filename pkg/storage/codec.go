package storage

import "gopkg.in/yaml.v3"

// encode/decode give both backends the canonical textual serialization
// format spec §9 requires to round-trip pipeline snapshots and payloads.
// gopkg.in/yaml.v3 is the teacher's format of choice (TarsyYAMLConfig),
// reused here rather than introducing a second serialization library.
func encode(v map[string]any) (string, error) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decode(s string) (map[string]any, error) {
	var v map[string]any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}
