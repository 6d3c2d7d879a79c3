package model

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"

	"github.com/Jalkey-Chen/InterLines/internal/validation"
)

// ReviewCriteria is the per-dimension score card produced by the editor.
type ReviewCriteria struct {
	Accuracy     float64 `json:"accuracy" mapstructure:"accuracy" validate:"gte=0,lte=1"`
	Clarity      float64 `json:"clarity" mapstructure:"clarity" validate:"gte=0,lte=1"`
	Completeness float64 `json:"completeness" mapstructure:"completeness" validate:"gte=0,lte=1"`
	Safety       float64 `json:"safety" mapstructure:"safety" validate:"gte=0,lte=1"`
}

// Scores returns the dimensions keyed by name.
func (c ReviewCriteria) Scores() map[string]float64 {
	return map[string]float64{
		"accuracy":     c.Accuracy,
		"clarity":      c.Clarity,
		"completeness": c.Completeness,
		"safety":       c.Safety,
	}
}

// Mean averages the four dimensions.
func (c ReviewCriteria) Mean() float64 {
	return (c.Accuracy + c.Clarity + c.Completeness + c.Safety) / 4.0
}

// ReviewReport is the quality-report artifact stored under the review key.
type ReviewReport struct {
	Kind       string         `json:"kind" mapstructure:"kind"`
	Version    string         `json:"version" mapstructure:"version"`
	Confidence float64        `json:"confidence" mapstructure:"confidence" validate:"gte=0,lte=1"`
	Overall    float64        `json:"overall" mapstructure:"overall" validate:"gte=0,lte=1"`
	Criteria   ReviewCriteria `json:"criteria" mapstructure:"criteria"`
	Comments   []string       `json:"comments" mapstructure:"comments"`
	Actions    []string       `json:"actions" mapstructure:"actions"`
}

// Validate checks that every score lies in [0,1].
func (r ReviewReport) Validate() error {
	return validation.Struct("review_report", r)
}

// BelowThreshold lists the dimensions scoring under threshold, sorted by name.
func (r ReviewReport) BelowThreshold(threshold float64) []string {
	var low []string
	for name, score := range r.Criteria.Scores() {
		if score < threshold {
			low = append(low, name)
		}
	}
	sort.Strings(low)
	return low
}

// DecodeReviewReport accepts a ReviewReport value, a pointer to one, or a
// generic map (as produced by JSON decoding) and returns a validated report.
func DecodeReviewReport(raw any) (ReviewReport, error) {
	var report ReviewReport

	switch v := raw.(type) {
	case ReviewReport:
		report = v
	case *ReviewReport:
		if v == nil {
			return ReviewReport{}, fmt.Errorf("review report is nil")
		}
		report = *v
	case map[string]any:
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &report,
			WeaklyTypedInput: true,
			ErrorUnused:      false,
		})
		if err != nil {
			return ReviewReport{}, err
		}
		if err := decoder.Decode(v); err != nil {
			return ReviewReport{}, fmt.Errorf("decode review report: %w", err)
		}
		if _, ok := v["criteria"]; !ok {
			return ReviewReport{}, fmt.Errorf("review report is missing criteria")
		}
	case nil:
		return ReviewReport{}, fmt.Errorf("review report is missing")
	default:
		return ReviewReport{}, fmt.Errorf("unsupported review report type %T", raw)
	}

	if err := report.Validate(); err != nil {
		return ReviewReport{}, err
	}
	return report, nil
}
