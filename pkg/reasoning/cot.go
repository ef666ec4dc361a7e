// Package reasoning implements the Chain-of-Thought and ReAct modules of
// spec §4.H, both grounded on pkg/agent/controller/react.go's generate-
// then-parse loop. CoT is the single-shot case; the anchors are adapted to
// spec's Reasoning:/Answer: (the teacher used Final Answer:).
package reasoning

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/loom/pkg/async"
	"github.com/codeready-toolchain/loom/pkg/backend"
	"github.com/codeready-toolchain/loom/pkg/module"
	"github.com/codeready-toolchain/loom/pkg/signature"
)

// CoT derives a rationale-carrying signature from base and answers calls
// by prompting the backend to "think step-by-step" and parsing the two
// anchored segments (spec §4.H.1).
type CoT struct {
	Base    signature.Signature
	Derived signature.Signature
	Backend backend.Backend
	Opts    backend.GenerateOptions
}

// NewCoT derives (inputs) => (rationale, out1, ...) from base.
func NewCoT(base signature.Signature, b backend.Backend) *CoT {
	derived := base.WithOutput(signature.Field{Name: "rationale"})
	return &CoT{Base: base, Derived: derived, Backend: b}
}

var _ module.Module = (*CoT)(nil)

func (c *CoT) Call(ctx context.Context, input module.Map) *async.Future[module.Map] {
	out, resolve := async.NewFuture[module.Map]()
	go func() {
		prompt := buildCoTPrompt(c.Base, input)
		res, err := c.Backend.Generate(ctx, prompt, c.Opts)
		if err != nil {
			resolve(nil, err)
			return
		}
		resolve(parseCoTResponse(c.Base, res.Text), nil)
	}()
	return out
}

func buildCoTPrompt(sig signature.Signature, input module.Map) string {
	var b strings.Builder
	b.WriteString("Think step-by-step before answering.\n\n")
	for _, name := range sig.InputNames() {
		fmt.Fprintf(&b, "%s: %v\n", name, input[name])
	}
	b.WriteString("\nRespond with:\nReasoning: <your reasoning>\n")
	first := "answer"
	if names := sig.OutputNames(); len(names) > 0 {
		first = names[0]
	}
	fmt.Fprintf(&b, "%s: <%s>\n", capitalizeAnchor(first), first)
	return b.String()
}

func capitalizeAnchor(field string) string {
	if field == "" {
		return "Answer"
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

var (
	reasoningAnchor = regexp.MustCompile(`(?m)^Reasoning:\s*(.*)$`)
	answerAnchor    = regexp.MustCompile(`(?m)^Answer:\s*(.*)$`)
)

// parseCoTResponse extracts the Reasoning:/Answer: anchored segments
// (spec §4.H.1, §9: anchors are line-leading, case-sensitive). rationale
// defaults to the full text when the anchor is missing; the first
// original output field defaults to the Answer: capture (or full text);
// remaining outputs default to empty string.
func parseCoTResponse(base signature.Signature, text string) module.Map {
	out := module.Map{}

	rationale := text
	if m := reasoningAnchor.FindStringSubmatch(text); m != nil {
		rationale = collectBlock(text, "Reasoning:")
	}
	out["rationale"] = strings.TrimSpace(rationale)

	answer := text
	if answerAnchor.MatchString(text) {
		answer = collectBlock(text, "Answer:")
	}

	names := base.OutputNames()
	for i, name := range names {
		if i == 0 {
			out[name] = strings.TrimSpace(answer)
		} else {
			out[name] = ""
		}
	}
	if len(names) == 0 {
		out["answer"] = strings.TrimSpace(answer)
	}
	return out
}

// collectBlock returns every line from the anchor line (content after the
// colon) up to the next recognized anchor or end of text.
func collectBlock(text, anchor string) string {
	lines := strings.Split(text, "\n")
	var block []string
	inBlock := false
	for _, line := range lines {
		if strings.HasPrefix(line, anchor) {
			inBlock = true
			block = append(block, strings.TrimSpace(strings.TrimPrefix(line, anchor)))
			continue
		}
		if inBlock {
			if isAnyAnchor(line) {
				break
			}
			block = append(block, line)
		}
	}
	return strings.TrimSpace(strings.Join(block, "\n"))
}

func isAnyAnchor(line string) bool {
	for _, a := range []string{"Reasoning:", "Answer:", "Thought:", "Action:", "Action Input:", "Observation:"} {
		if strings.HasPrefix(line, a) {
			return true
		}
	}
	return false
}
