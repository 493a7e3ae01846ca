package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	apperrors "github.com/alexisbeaulieu97/deployline/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// DecodeFile reads path and unmarshals its YAML content into out. Read and
// syntax failures are reported as *errors.ParseError.
func DecodeFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewParseError(path, 0, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return apperrors.NewParseError(path, extractLine(err), err)
	}
	return nil
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
