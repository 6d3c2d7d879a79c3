package plan

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	ilerrors "github.com/Jalkey-Chen/InterLines/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// LoadFile reads a static plan from a YAML file and validates it.
func LoadFile(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, ilerrors.NewParseError(path, 0, err)
	}
	return Parse(path, data)
}

// Parse decodes a YAML plan document. path is only used for error messages.
func Parse(path string, data []byte) (Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, ilerrors.NewParseError(path, extractLine(err), err)
	}
	if p.Strategy == "" {
		p.Strategy = "static"
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	if _, scanErr := fmt.Sscanf(matches[1], "%d", &line); scanErr != nil {
		return 0
	}
	return line
}
