package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codeready-toolchain/loom/pkg/async"
	"github.com/codeready-toolchain/loom/pkg/backend"
	"github.com/codeready-toolchain/loom/pkg/module"
	"github.com/codeready-toolchain/loom/pkg/signature"
	"github.com/codeready-toolchain/loom/pkg/tool"
)

// State is one ReAct state-machine state (spec §4.H.2).
type State string

const (
	StateReasoning State = "reasoning"
	StateActing    State = "acting"
	StateObserving State = "observing"
	StateDone      State = "done"
	StateTruncated State = "truncated"
)

// DefaultMaxIterations matches spec §4.H.2's default.
const DefaultMaxIterations = 10

// ReAct implements the thought/action/observation loop of spec §4.H.2,
// grounded directly on pkg/agent/controller/react.go's Run: per-iteration
// context.WithTimeout, generate -> parse -> branch on
// final-answer/action/unknown-tool/malformed -> append observation ->
// continue. Anchors retargeted to Answer: (teacher used Final Answer:);
// tool lookup goes through pkg/tool.Context rather than MCP server/tool
// name pairs.
type ReAct struct {
	Signature       signature.Signature // default (question) => (answer)
	Backend         backend.Backend
	Tools           *tool.Context
	MaxIterations   int
	IncludeExamples bool
	PerCallTimeout  time.Duration
}

var _ module.Module = (*ReAct)(nil)

// NewReAct builds a ReAct module with spec's default (question) => (answer)
// signature when sig is the zero value.
func NewReAct(sig signature.Signature, b backend.Backend, tools *tool.Context) *ReAct {
	if len(sig.Inputs) == 0 && len(sig.Outputs) == 0 {
		sig = signature.Signature{
			Name:    "react",
			Inputs:  []signature.Field{{Name: "question"}},
			Outputs: []signature.Field{{Name: "answer"}},
		}
	}
	return &ReAct{Signature: sig, Backend: b, Tools: tools, MaxIterations: DefaultMaxIterations}
}

func (r *ReAct) Call(ctx context.Context, input module.Map) *async.Future[module.Map] {
	out, resolve := async.NewFuture[module.Map]()
	go func() {
		v, err := r.run(ctx, input)
		resolve(v, err)
	}()
	return out
}

func (r *ReAct) run(ctx context.Context, input module.Map) (module.Map, error) {
	maxIter := r.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	var conversation []string
	conversation = append(conversation, r.buildToolCatalog())
	if r.IncludeExamples {
		conversation = append(conversation, exampleDialogue)
	}
	question := fmt.Sprintf("%v", firstInput(r.Signature, input))
	conversation = append(conversation, "Question: "+question)

	var steps []Step

	for iter := 0; iter < maxIter; iter++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if r.PerCallTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.PerCallTimeout)
		}
		res, err := r.Backend.Generate(callCtx, strings.Join(conversation, "\n\n"), backend.GenerateOptions{})
		if cancel != nil {
			cancel()
		}
		if err != nil {
			conversation = append(conversation, FormatObservation("Error - "+err.Error()))
			continue
		}

		parsed := ParseReAct(res.Text)
		steps = append(steps, parsed.Steps...)
		conversation = append(conversation, res.Text)

		if parsed.IsFinalAnswer {
			return module.Map{
				"answer":            strings.TrimSpace(parsed.FinalAnswer),
				"react_steps":       steps,
				"react_conversation": conversation,
				"react_truncated":   false,
			}, nil
		}

		if parsed.HasAction {
			observation := r.act(ctx, parsed)
			conversation = append(conversation, observation)
			continue
		}

		// Malformed: neither an action nor an answer.
		conversation = append(conversation, GetFormatErrorFeedback())
	}

	return module.Map{
		"answer":             "Maximum iterations reached without a final answer.",
		"react_steps":        steps,
		"react_conversation": conversation,
		"react_truncated":    true,
	}, nil
}

func (r *ReAct) act(ctx context.Context, parsed *ParsedReAct) string {
	name := strings.TrimSpace(parsed.Action)
	t, ok := r.Tools.Lookup(name)
	if !ok {
		return FormatUnknownToolError(name)
	}

	input, err := parseActionInput(parsed.ActionInput)
	if err != nil {
		return FormatParseError()
	}

	result, err := tool.InvokeTool(ctx, t, input, tool.DefaultInvokeOptions())
	if err != nil {
		return FormatObservation("Error - " + err.Error())
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return FormatObservation("Error - " + err.Error())
	}
	return FormatObservation(string(encoded))
}

// parseActionInput parses the captured Action Input block as a typed data
// literal (spec §4.H.2 step 4). The reference implementation used EDN map
// literals; this reimplementation's canonical data literal is a JSON
// object (storage round-tripping uses YAML instead), documented in
// DESIGN.md as the Open-Question resolution for this ambiguous source
// behavior.
func parseActionInput(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *ReAct) buildToolCatalog() string {
	if r.Tools == nil {
		return "No tools available."
	}
	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, t := range r.Tools.All() {
		fmt.Fprintf(&b, "- %s: %s (input schema: %v)\n", t.Name, t.Description, t.InputSchema)
	}
	b.WriteString("\nRespond using exactly one of:\n")
	b.WriteString("Thought: <reasoning>\nAction: <tool name>\nAction Input: <json object>\n")
	b.WriteString("or\nThought: <reasoning>\nAnswer: <final answer>\n")
	return b.String()
}

const exampleDialogue = `Example:
Thought: I need to look up the capital of France.
Action: lookup
Action Input: {"query": "capital of France"}
Observation: {"result": "Paris"}
Thought: I have the answer.
Answer: Paris`

func firstInput(sig signature.Signature, input module.Map) any {
	names := sig.InputNames()
	if len(names) == 0 {
		return ""
	}
	return input[names[0]]
}
