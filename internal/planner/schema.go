package planner

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Jalkey-Chen/InterLines/internal/llm"
)

//go:embed schema/initial.json
var initialSchemaJSON string

//go:embed schema/replan.json
var replanSchemaJSON string

var (
	initialSchema = mustSchema(initialSchemaJSON)
	replanSchema  = mustSchema(replanSchemaJSON)
)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("planner: compile schema: %v", err))
	}
	return schema
}

// decodeReply validates a model reply against schema and decodes it into out.
func decodeReply(schema *gojsonschema.Schema, raw string, out any) error {
	raw = llm.StripFences(raw)
	res, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if !res.Valid() {
		errs := make([]string, 0, len(res.Errors()))
		for _, schemaErr := range res.Errors() {
			errs = append(errs, schemaErr.String())
		}
		sort.Strings(errs)
		return fmt.Errorf("reply does not match schema: %s", strings.Join(errs, "; "))
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode reply: %w", err)
	}
	return nil
}

type initialReply struct {
	Steps                []string `json:"steps"`
	EnableHistory        bool     `json:"enable_history"`
	ReadabilityThreshold *float64 `json:"readability_threshold"`
	FactualityThreshold  *float64 `json:"factuality_threshold"`
	MaxRefineRounds      *int     `json:"max_refine_rounds"`
	Notes                *string  `json:"notes"`
}

type replanReply struct {
	ShouldReplan bool     `json:"should_replan"`
	ReplanSteps  []string `json:"replan_steps"`
	ReplanReason *string  `json:"replan_reason"`
}
