package reasoning

import (
	"regexp"
	"strings"
)

// Step is one parsed block of a ReAct response, tagged by which anchor
// introduced it.
type Step struct {
	Kind    string // "thought", "action", "action_input", "observation", "answer"
	Content string
}

// ParsedReAct is the outcome of parsing one LLM turn (spec §4.H.2 step 2),
// directly mirroring pkg/agent/controller/react_parser.go's
// ParsedReActResponse shape, with the terminal anchor retargeted from
// "Final Answer:" to spec's "Answer:".
type ParsedReAct struct {
	Steps         []Step
	Thought       string
	HasAction     bool
	Action        string
	ActionInput   string
	IsFinalAnswer bool
	FinalAnswer   string
	IsMalformed   bool
}

var (
	anchorThought      = "Thought:"
	anchorAction       = "Action:"
	anchorActionInput  = "Action Input:"
	anchorObservation  = "Observation:"
	anchorAnswer       = "Answer:"

	// midlineActionPattern catches "... Action: foo" appearing mid-line,
	// a hallucination-recovery fallback from react_parser.go.
	midlineActionPattern      = regexp.MustCompile(`(?:^|\s)Action:\s*(.+)$`)
	midlineAnswerPattern      = regexp.MustCompile(`(?:^|\s)Answer:\s*(.+)$`)
	midlineActionInputPattern = regexp.MustCompile(`(?:^|\s)Action Input:\s*(.+)$`)
)

// ParseReAct extracts an ordered step sequence from text using the
// line-anchored state machine of react_parser.go's extractSections:
// track a "current section", accumulate non-anchor lines into it, and
// flush into a new Step whenever a new anchor is seen.
func ParseReAct(text string) *ParsedReAct {
	p := &ParsedReAct{}
	if strings.TrimSpace(text) == "" {
		p.IsMalformed = true
		return p
	}

	lines := strings.Split(text, "\n")
	var currentKind string
	var content []string

	flush := func() {
		if currentKind == "" {
			return
		}
		p.Steps = append(p.Steps, Step{Kind: currentKind, Content: strings.TrimSpace(strings.Join(content, "\n"))})
		content = nil
	}

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, anchorThought):
			flush()
			currentKind = "thought"
			content = []string{strings.TrimPrefix(line, anchorThought)}
		case strings.HasPrefix(line, anchorActionInput):
			flush()
			currentKind = "action_input"
			content = []string{strings.TrimPrefix(line, anchorActionInput)}
		case strings.HasPrefix(line, anchorAction):
			flush()
			currentKind = "action"
			content = []string{strings.TrimPrefix(line, anchorAction)}
		case strings.HasPrefix(line, anchorObservation):
			flush()
			currentKind = "observation"
			content = []string{strings.TrimPrefix(line, anchorObservation)}
		case strings.HasPrefix(line, anchorAnswer):
			flush()
			currentKind = "answer"
			content = []string{strings.TrimPrefix(line, anchorAnswer)}
		default:
			if m := midlineAnswerPattern.FindStringSubmatch(line); currentKind == "" && m != nil {
				flush()
				currentKind = "answer"
				content = []string{m[1]}
				continue
			}
			if m := midlineActionPattern.FindStringSubmatch(line); currentKind == "" && m != nil {
				flush()
				currentKind = "action"
				content = []string{m[1]}
				continue
			}
			if m := midlineActionInputPattern.FindStringSubmatch(line); currentKind == "" && m != nil {
				flush()
				currentKind = "action_input"
				content = []string{m[1]}
				continue
			}
			content = append(content, line)
		}
	}
	flush()

	var sawActionInput bool
	for _, s := range p.Steps {
		switch s.Kind {
		case "thought":
			p.Thought = s.Content
		case "action":
			// First Action/Action Input pair wins: a response containing
			// more than one is still resolved against the first (spec
			// §4.H.2 step 4).
			if !p.HasAction {
				p.HasAction = true
				p.Action = s.Content
			}
		case "action_input":
			if !sawActionInput {
				sawActionInput = true
				p.ActionInput = s.Content
			}
		case "answer":
			p.IsFinalAnswer = true
			p.FinalAnswer = s.Content
		}
	}

	// Neither an Action nor an Answer: malformed, matching
	// react_parser.go's fallback to GetFormatErrorFeedback. An Action
	// without an Action Input is not malformed; its input is left empty.
	if !p.IsFinalAnswer && !p.HasAction {
		p.IsMalformed = true
	}
	return p
}

// FormatObservation renders a tool result as an "Observation: ..." block
// to append to the running conversation (react_parser.go's
// FormatObservation/FormatToolErrorObservation, collapsed into one helper
// since the reasoning module here treats success/error uniformly as MCP
// does — see pkg/mcp/executor.go's "errors as content" convention).
func FormatObservation(content string) string {
	return anchorObservation + " " + content
}

// FormatUnknownToolError matches react_parser.go's FormatUnknownToolError.
func FormatUnknownToolError(name string) string {
	return anchorObservation + " Error - Tool not found: " + name
}

// FormatParseError matches react_parser.go's synthetic parse-failure
// observation (spec §4.H.2 step 4).
func FormatParseError() string {
	return anchorObservation + " Error - parse failed"
}

// GetFormatErrorFeedback nudges the model back onto the anchor format
// after a malformed turn, matching react_parser.go's
// GetFormatCorrectionReminder intent.
func GetFormatErrorFeedback() string {
	return "Your last response did not follow the required format. " +
		"Use exactly one of:\nThought: ...\nAction: <tool>\nAction Input: <input>\n" +
		"or\nThought: ...\nAnswer: <final answer>"
}
