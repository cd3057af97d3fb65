package manifest

import (
	"fmt"
	"regexp"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/ref"
)

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)
var kebabPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ReadSpaceManifest decodes and validates a space.toml from fs at path.
func ReadSpaceManifest(fs afero.Fs, path string) (*SpaceManifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var m SpaceManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, &ConfigParseError{Path: path, Err: err}
	}

	if issues := validateSpaceManifest(&m); len(issues) > 0 {
		return nil, &ConfigValidationError{Path: path, Issues: issues}
	}

	return &m, nil
}

// DecodeSpaceManifest decodes and validates a space.toml from raw bytes
// (used when the manifest is read from a git blob rather than a disk path).
func DecodeSpaceManifest(sourcePath string, data []byte) (*SpaceManifest, error) {
	var m SpaceManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, &ConfigParseError{Path: sourcePath, Err: err}
	}
	if issues := validateSpaceManifest(&m); len(issues) > 0 {
		return nil, &ConfigValidationError{Path: sourcePath, Issues: issues}
	}
	return &m, nil
}

func validateSpaceManifest(m *SpaceManifest) []FieldIssue {
	var issues []FieldIssue

	if m.Schema != 1 {
		issues = append(issues, FieldIssue{"schema", fmt.Sprintf("expected schema=1, got %d", m.Schema)})
	}
	if !idPattern.MatchString(m.ID) || len(m.ID) > 64 {
		issues = append(issues, FieldIssue{"id", fmt.Sprintf("invalid space id %q", m.ID)})
	}
	if m.Version != "" && !semverPattern.MatchString(m.Version) {
		issues = append(issues, FieldIssue{"version", fmt.Sprintf("not a valid semver: %q", m.Version)})
	}
	if len(m.Description) > 500 {
		issues = append(issues, FieldIssue{"description", "exceeds 500 character limit"})
	}
	if m.Plugin != nil && m.Plugin.Name != "" && !kebabPattern.MatchString(m.Plugin.Name) {
		issues = append(issues, FieldIssue{"plugin.name", fmt.Sprintf("plugin name must be kebab-case, got %q", m.Plugin.Name)})
	}
	for i, depRef := range m.Deps.Spaces {
		if _, err := ref.Parse(depRef); err != nil {
			issues = append(issues, FieldIssue{fmt.Sprintf("deps.spaces[%d]", i), fmt.Sprintf("invalid space ref %q: %v", depRef, err)})
		}
	}

	return issues
}

// ReadProjectManifest decodes and validates an asp-targets.toml from fs at path.
func ReadProjectManifest(fs afero.Fs, path string) (*ProjectManifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var m ProjectManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, &ConfigParseError{Path: path, Err: err}
	}

	if issues := validateProjectManifest(&m); len(issues) > 0 {
		return nil, &ConfigValidationError{Path: path, Issues: issues}
	}

	return &m, nil
}

func validateProjectManifest(m *ProjectManifest) []FieldIssue {
	var issues []FieldIssue

	if m.Schema != 1 {
		issues = append(issues, FieldIssue{"schema", fmt.Sprintf("expected schema=1, got %d", m.Schema)})
	}
	if len(m.Targets) == 0 {
		issues = append(issues, FieldIssue{"targets", "project manifest must declare at least one target"})
	}
	for name, target := range m.Targets {
		if len(target.Compose) == 0 {
			issues = append(issues, FieldIssue{fmt.Sprintf("targets.%s.compose", name), "compose list must not be empty"})
		}
		for i, composeRef := range target.Compose {
			if _, err := ref.Parse(composeRef); err != nil {
				issues = append(issues, FieldIssue{
					fmt.Sprintf("targets.%s.compose[%d]", name, i),
					fmt.Sprintf("invalid space ref %q: %v", composeRef, err),
				})
			}
		}
	}

	return issues
}
