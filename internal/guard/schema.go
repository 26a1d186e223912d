package guard

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// evidenceSchemaJSON constrains each submitted Evidence item to the
// verify_colony operation's documented shape: evidence_type, source, and
// content are all required.
const evidenceSchemaJSON = `{
	"type": "object",
	"required": ["evidence_type", "source", "content"],
	"properties": {
		"evidence_type": {
			"type": "string",
			"enum": ["diff", "test_result", "test_coverage", "lint_result", "type_check", "review_comment"]
		},
		"source": {"type": "string", "minLength": 1},
		"content": {"type": "object"}
	}
}`

var compiledEvidenceSchema *jsonschema.Schema

func init() {
	var schemaDoc any
	if err := json.Unmarshal([]byte(evidenceSchemaJSON), &schemaDoc); err != nil {
		panic(fmt.Sprintf("guard: invalid embedded evidence schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("evidence.json", schemaDoc); err != nil {
		panic(fmt.Sprintf("guard: register evidence schema: %v", err))
	}
	schema, err := c.Compile("evidence.json")
	if err != nil {
		panic(fmt.Sprintf("guard: compile evidence schema: %v", err))
	}
	compiledEvidenceSchema = schema
}

// EvidenceShapeRule is an L1 rule validating that every submitted Evidence
// item conforms to evidenceSchemaJSON, catching malformed verify_colony
// submissions before any semantic rule runs.
func EvidenceShapeRule() Rule {
	return RuleFunc(evidenceShape)
}

func evidenceShape(input Input) RuleResult {
	for _, ev := range input.Evidence {
		doc := map[string]any{
			"evidence_type": ev.EvidenceType,
			"source":        ev.Source,
			"content":       ev.Content,
		}
		if ev.Content == nil {
			doc["content"] = map[string]any{}
		}
		if err := compiledEvidenceSchema.Validate(doc); err != nil {
			return RuleResult{
				RuleName: "evidence_shape", Level: L1, Passed: false,
				Message: fmt.Sprintf("evidence from %q failed schema validation: %v", ev.Source, err),
				Details: map[string]any{"source": ev.Source},
			}
		}
	}
	return RuleResult{RuleName: "evidence_shape", Level: L1, Passed: true}
}
