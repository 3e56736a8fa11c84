package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hollis-dev/deskmate/internal/intent"
	"github.com/hollis-dev/deskmate/internal/llm"
	"github.com/hollis-dev/deskmate/pkg/models"
)

// aiTask runs the AI strategy: one prompt, one structured reply. Transient
// provider failures get a single retry; everything else surfaces to the
// caller, which falls back to the pattern strategy.
func (p *Processor) aiTask(ctx context.Context, utterance string, a intent.Analysis, ambient map[string]string) (*models.Task, error) {
	prompt := buildPrompt(utterance, a, ambient)

	reply, err := p.gen.Generate(ctx, prompt)
	if err != nil && llm.IsTransient(err) {
		p.log.Debugw("transient provider failure, retrying once", "error", err)
		reply, err = p.gen.Generate(ctx, prompt)
	}
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}

	task, err := parsePlan(reply)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", models.ErrParse, err)
	}
	return task, nil
}

// buildPrompt assembles the single planning prompt: utterance, analyzer
// record, and any ambient context the host supplied.
func buildPrompt(utterance string, a intent.Analysis, ambient map[string]string) string {
	var b strings.Builder
	b.WriteString("You are the planning core of a desktop automation assistant.\n")
	b.WriteString("Produce an execution plan for the user command below.\n\n")
	b.WriteString("Command: ")
	b.WriteString(utterance)
	b.WriteString("\n\nAnalysis:\n")
	if data, err := json.MarshalIndent(a, "", "  "); err == nil {
		b.Write(data)
	}
	b.WriteString("\n")

	if len(ambient) > 0 {
		b.WriteString("\nAmbient context:\n")
		keys := make([]string, 0, len(ambient))
		for k := range ambient {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, ambient[k])
		}
	}

	b.WriteString(`
Reply with ONLY a JSON object, no prose, matching this schema:
{
  "category": "desktop|document|web|email|file|communication|entertainment|productivity|system|automation|creative|research|shopping|universal",
  "complexity": "simple|moderate|complex|workflow",
  "description": "one-line summary",
  "steps": [
    {
      "step_number": 1,
      "action": "symbolic_action_name",
      "application": "notepad|browser|system|ai_generator|...",
      "parameters": {"name": "value"},
      "expected_result": "what success looks like",
      "error_handling": "retry|skip|abort|fallback:<action>",
      "timeout_seconds": 30
    }
  ],
  "risk_level": "low|medium|high",
  "requires_user_confirmation": false,
  "context_requirements": ["text_editor_available"],
  "success_criteria": "acceptance condition",
  "rollback_plan": "optional"
}
A parameter value "{{name}}" refers to the output "name" of an earlier step.
`)
	return b.String()
}

// parsePlan decodes and strictly validates an LLM reply. Surrounding
// whitespace and code-fence markers are tolerated; schema violations are
// not.
func parsePlan(reply string) (*models.Task, error) {
	cleaned := stripCodeFence(reply)

	var task models.Task
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&task); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	if err := checkSchema(&task); err != nil {
		return nil, err
	}
	return &task, nil
}

// checkSchema rejects malformed plans rather than repairing them. Partial
// plans from the model are treated as failures so the pattern strategy takes
// over.
func checkSchema(t *models.Task) error {
	if !t.Category.Valid() {
		return fmt.Errorf("invalid category %q", t.Category)
	}
	if t.Complexity != "" && !t.Complexity.Valid() {
		return fmt.Errorf("invalid complexity %q", t.Complexity)
	}
	if t.RiskLevel != "" && !t.RiskLevel.Valid() {
		return fmt.Errorf("invalid risk level %q", t.RiskLevel)
	}
	if len(t.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}
	for i, s := range t.Steps {
		if s.Action == "" {
			return fmt.Errorf("step %d has no action", i+1)
		}
		if s.ErrorHandling != "" && !s.ErrorHandling.Valid() {
			return fmt.Errorf("step %d has invalid error_handling %q", i+1, s.ErrorHandling)
		}
		if s.TimeoutSeconds < 0 {
			return fmt.Errorf("step %d has negative timeout", i+1)
		}
	}
	return nil
}

// stripCodeFence removes a surrounding markdown code fence, if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
