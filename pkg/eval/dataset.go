package eval

import "fmt"

// ErrInvalidTrainset is spec §6's InvalidTrainset kind.
var ErrInvalidTrainset = fmt.Errorf("eval: invalid trainset")

// NormalizeDataset accepts {question,answer}, {input,output}, a bare
// (question, answer) positional pair, or an already-canonical
// {input,expected} shape and converts every row to Example. An empty
// dataset is rejected upfront (spec §4.J edge case, reused here since
// evaluate() is the same rejection point).
func NormalizeDataset(raw []any) ([]Example, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: dataset is empty", ErrInvalidTrainset)
	}
	out := make([]Example, 0, len(raw))
	for i, row := range raw {
		ex, err := normalizeRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidTrainset, i, err)
		}
		out = append(out, ex)
	}
	return out, nil
}

func normalizeRow(raw any) (Example, error) {
	if pair, ok := raw.([]any); ok && len(pair) == 2 {
		return Example{
			Input:    map[string]any{"question": pair[0]},
			Expected: map[string]any{"answer": pair[1]},
		}, nil
	}

	row, ok := raw.(map[string]any)
	if !ok {
		return Example{}, fmt.Errorf("unrecognized example shape: %v", raw)
	}

	switch {
	case row["input"] != nil && row["expected"] != nil:
		in, ok1 := row["input"].(map[string]any)
		ex, ok2 := row["expected"].(map[string]any)
		if ok1 && ok2 {
			return Example{Input: in, Expected: ex}, nil
		}
	case row["question"] != nil:
		return Example{
			Input:    map[string]any{"question": row["question"]},
			Expected: map[string]any{"answer": row["answer"]},
		}, nil
	case row["input"] != nil && row["output"] != nil:
		return Example{
			Input:    map[string]any{"input": row["input"]},
			Expected: map[string]any{"answer": row["output"]},
		}, nil
	}
	return Example{}, fmt.Errorf("unrecognized example shape: %v", row)
}
