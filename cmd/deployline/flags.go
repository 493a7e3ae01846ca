package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexisbeaulieu97/deployline/internal/domain/deploy"
)

var environmentAliases = map[string]string{
	"dev":  "development",
	"prod": "production",
}

// resolveEnvironment applies the --dev and --prod shorthands before value
// aliases. The flags are mutually exclusive, so at most one is set.
func resolveEnvironment(env string, dev, prod bool) string {
	switch {
	case prod:
		return environmentAliases["prod"]
	case dev:
		return environmentAliases["dev"]
	}
	return normalizeEnvironment(env)
}

func normalizeEnvironment(env string) string {
	env = strings.TrimSpace(env)
	if alias, ok := environmentAliases[env]; ok {
		return alias
	}
	return env
}

// parseStages accepts repeated or comma separated values. An empty list keeps
// the default stage sequence.
func parseStages(values []string) []deploy.StageName {
	var names []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			names = append(names, strings.TrimSpace(part))
		}
	}
	stages := deploy.ParseStages(names)
	if len(stages) == 0 {
		return nil
	}
	return stages
}

func validateDeployOptions(opts deployOptions) error {
	if opts.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if strings.TrimSpace(opts.ProjectPath) == "" {
		return fmt.Errorf("project manifest is required")
	}

	abs, err := filepath.Abs(opts.ProjectPath)
	if err != nil {
		return fmt.Errorf("resolve project path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("project manifest does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("project path %s is a directory", abs)
	}
	return nil
}
