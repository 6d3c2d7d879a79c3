// Package planner provides planning collaborators for the executor: a
// generator-backed planner and a deterministic threshold planner.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jalkey-Chen/InterLines/internal/blackboard"
	"github.com/Jalkey-Chen/InterLines/internal/engine"
	"github.com/Jalkey-Chen/InterLines/internal/llm"
	"github.com/Jalkey-Chen/InterLines/internal/logger"
	"github.com/Jalkey-Chen/InterLines/internal/model"
	"github.com/Jalkey-Chen/InterLines/internal/plan"
)

// StrategyLLM labels plans produced by the LLM planner.
const StrategyLLM = "llm_planner.v1"

// FallbackRefineStep is requested when a replan asked only for unknown steps.
const FallbackRefineStep = "editor"

const previewLimit = 2000

const initialSystem = `You are the planner of a document interpretation pipeline. Design an
efficient sequence of analysis steps that turns an expert-facing document into a
clear, public-friendly brief.

Allowed steps:
  - parse: extract text (mandatory start).
  - translate: core explanation engine (produces explanation cards).
  - citizen: audience relevance analysis.
  - jargon: terminology extraction.
  - timeline: historical event extraction.
  - narrate: groups citizen and jargon.
  - review: editor quality check.
  - brief: Markdown assembly (mandatory end).

Guidelines:
1. Research papers and technical reports MUST include "translate".
2. Short or simple texts may skip "timeline" or "jargon".
3. If history is requested, you MUST include "timeline".
4. Standard flow: parse -> translate -> [jargon/citizen/timeline] -> review -> brief.

Return ONLY a single JSON object:
{"steps": ["parse", "translate", ...], "enable_history": false,
 "readability_threshold": 0.75, "factuality_threshold": 0.8,
 "max_refine_rounds": 1, "notes": "rationale for the plan"}`

// LLM asks a text generator for the initial plan and the refine decision.
type LLM struct {
	gen   llm.Generator
	model string
	allow plan.AllowList
	log   *logger.Logger
}

var _ engine.Planner = (*LLM)(nil)

// Option configures an LLM planner.
type Option func(*LLM)

// WithModel sets the model alias, "planner" by default.
func WithModel(alias string) Option {
	return func(p *LLM) {
		if alias != "" {
			p.model = alias
		}
	}
}

// WithAllowList restricts the refine steps the planner may request.
func WithAllowList(allow plan.AllowList) Option {
	return func(p *LLM) {
		if allow != nil {
			p.allow = allow
		}
	}
}

// WithLogger sets the planner logger.
func WithLogger(log *logger.Logger) Option {
	return func(p *LLM) {
		if log != nil {
			p.log = log
		}
	}
}

// NewLLM creates a planner backed by gen.
func NewLLM(gen llm.Generator, opts ...Option) (*LLM, error) {
	if gen == nil {
		return nil, llm.ErrNoGenerator
	}
	p := &LLM{
		gen:   gen,
		model: "planner",
		allow: plan.DefaultAllowList(),
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Plan implements engine.Planner.
func (p *LLM) Plan(ctx context.Context, bb *blackboard.Blackboard, pctx plan.Context) (plan.Plan, error) {
	raw, err := p.gen.Generate(ctx, llm.Request{
		Model:       p.model,
		System:      initialSystem,
		Prompt:      initialPrompt(blackboard.InputText(bb), pctx),
		Temperature: 0.2,
		MaxTokens:   512,
		JSON:        true,
	})
	if err != nil {
		return plan.Plan{}, err
	}

	var reply initialReply
	if err := decodeReply(initialSchema, raw, &reply); err != nil {
		return plan.Plan{}, fmt.Errorf("initial plan: %w", err)
	}

	fields := map[string]any{"steps": reply.Steps, "enable_history": reply.EnableHistory}
	if reply.ReadabilityThreshold != nil {
		fields["readability_threshold"] = *reply.ReadabilityThreshold
	}
	if reply.FactualityThreshold != nil {
		fields["factuality_threshold"] = *reply.FactualityThreshold
	}
	if reply.MaxRefineRounds != nil {
		fields["max_refine_rounds"] = *reply.MaxRefineRounds
	}
	p.log.WithFields(fields).Info("llm plan received")

	out := plan.Plan{
		Strategy:      StrategyLLM,
		Steps:         reply.Steps,
		EnableHistory: reply.EnableHistory,
	}
	if reply.Notes != nil {
		out.Notes = strings.TrimSpace(*reply.Notes)
	}
	return out, nil
}

// Replan implements engine.Planner. A reply that is not valid JSON is traced
// and treated as a decision not to refine.
func (p *LLM) Replan(ctx context.Context, bb *blackboard.Blackboard, _ plan.Context, previous plan.Plan, report model.ReviewReport) (plan.Plan, error) {
	raw, err := p.gen.Generate(ctx, llm.Request{
		Model:       p.model,
		System:      p.replanSystem(),
		Prompt:      replanPrompt(previous, report),
		Temperature: 0.2,
		MaxTokens:   512,
		JSON:        true,
	})
	if err != nil {
		return plan.Plan{}, err
	}

	var reply replanReply
	if err := decodeReply(replanSchema, raw, &reply); err != nil {
		bb.Trace(fmt.Sprintf("planner: replan failed, skipping refinement: %v", err))
		p.log.WarnErr(err, "replan reply rejected")
		return previous.WithReplan(plan.Decision{Reason: fmt.Sprintf("JSON parsing failed: %v", err)}), nil
	}

	reason := ""
	if reply.ReplanReason != nil {
		reason = strings.TrimSpace(*reply.ReplanReason)
	}
	if !reply.ShouldReplan {
		return previous.WithReplan(plan.Decision{Reason: reason}), nil
	}

	valid, _ := plan.FilterRefineSteps(reply.ReplanSteps, p.allow)
	if len(valid) == 0 && len(reply.ReplanSteps) > 0 {
		valid = []string{FallbackRefineStep}
	}
	return previous.WithReplan(plan.Decision{
		ShouldReplan: len(valid) > 0,
		Steps:        valid,
		Reason:       reason,
	}), nil
}

func (p *LLM) replanSystem() string {
	return "You review the quality report from the editor and decide whether refinement is needed.\n\n" +
		"Allowed refinement steps: " + strings.Join(p.allow.Names(), ", ") + "\n" +
		"  - *_refine steps let a stage improve its output.\n" +
		"  - 'editor' should usually come last to verify fixes.\n\n" +
		"Return ONLY a single JSON object:\n" +
		`{"should_replan": true, "replan_steps": ["explainer_refine", "editor"], "replan_reason": "Readability is too low (0.40 < 0.70)."}`
}

func initialPrompt(input string, pctx plan.Context) string {
	preview := []rune(strings.TrimSpace(input))
	if len(preview) > previewLimit {
		preview = preview[:previewLimit]
	}
	text := string(preview)
	if text == "" {
		text = "[no preview available]"
	}
	kind := pctx.DocumentKind
	if kind == "" {
		kind = "unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Document preview (first %d chars):\n%s\n\n", previewLimit, text)
	b.WriteString("Execution context:\n")
	fmt.Fprintf(&b, "- Task type: %s\n", pctx.TaskType)
	fmt.Fprintf(&b, "- Document kind: %s\n", kind)
	fmt.Fprintf(&b, "- Approximate length: %d chars\n", pctx.ApproxCharCount)
	fmt.Fprintf(&b, "- Language: %s\n", pctx.Language)
	fmt.Fprintf(&b, "- History requested: %t\n\n", pctx.EnableHistoryRequested)
	b.WriteString("Decide the necessary steps. If this looks like a research paper, include 'translate' and 'jargon'.")
	return b.String()
}

func replanPrompt(previous plan.Plan, report model.ReviewReport) string {
	var b strings.Builder
	b.WriteString("Previous plan:\n")
	fmt.Fprintf(&b, "- Steps: %s\n", strings.Join(previous.Steps, ", "))
	fmt.Fprintf(&b, "- Notes: %s\n\n", previous.Notes)
	b.WriteString("Editor review report:\n")
	fmt.Fprintf(&b, "- Overall: %.2f\n", report.Overall)
	fmt.Fprintf(&b, "- Readability (clarity): %.2f\n", report.Criteria.Clarity)
	fmt.Fprintf(&b, "- Factuality (accuracy): %.2f\n", report.Criteria.Accuracy)
	fmt.Fprintf(&b, "- Completeness: %.2f\n", report.Criteria.Completeness)
	fmt.Fprintf(&b, "- Safety: %.2f\n\n", report.Criteria.Safety)
	fmt.Fprintf(&b, "Key issues:\n%s\n\n", bulletList(report.Comments, 10))
	fmt.Fprintf(&b, "Suggested actions:\n%s\n\n", bulletList(report.Actions, 5))
	b.WriteString("If scores are low (< 0.70) or critical issues exist, request the matching *_refine steps " +
		"and the editor. Otherwise set should_replan to false.")
	return b.String()
}

func bulletList(items []string, limit int) string {
	if len(items) == 0 {
		return "(none)"
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return "- " + strings.Join(items, "\n- ")
}
