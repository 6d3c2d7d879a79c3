package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Jalkey-Chen/InterLines/internal/pipeline"
)

func validateRunOptions(opts runOptions) error {
	if opts.InputPath != "" && opts.InputPath != "-" {
		if err := requireFile("input", opts.InputPath); err != nil {
			return err
		}
	}
	if opts.PlanPath != "" {
		if err := requireFile("plan", opts.PlanPath); err != nil {
			return err
		}
	}

	switch opts.Planner {
	case "", pipeline.PlannerStatic, pipeline.PlannerRules, pipeline.PlannerLLM:
	default:
		return fmt.Errorf("unknown planner %q (want static, rules or llm)", opts.Planner)
	}
	if opts.LLMPlanner && opts.Planner != "" && opts.Planner != pipeline.PlannerLLM {
		return fmt.Errorf("--llm-planner conflicts with --planner %s", opts.Planner)
	}
	return nil
}

func requireFile(label, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s path: %w", label, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("%s file does not exist: %w", label, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s path %s is a directory", label, abs)
	}
	return nil
}
