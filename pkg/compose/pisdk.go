package compose

import (
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/harness"
)

type piSDKBundleJSON struct {
	SchemaVersion int      `json:"schemaVersion"`
	HarnessID     string   `json:"harnessId"`
	TargetName    string   `json:"targetName"`
	RootDir       string   `json:"rootDir"`
	Extensions    []string `json:"extensions"`
	SkillsDir     string   `json:"skillsDir,omitempty"`
	ContextFiles  []string `json:"contextFiles,omitempty"`
	Hooks         []string `json:"hooks,omitempty"`
}

// ComposePiSDK writes bundle.json referencing the artifact files already
// materialized by an equivalent Pi composition (spec §4.9 "Pi SDK").
func ComposePiSDK(fs afero.Fs, piBundle *ComposedTargetBundle, targetName, outputDir string) (*ComposedTargetBundle, error) {
	bundle := &ComposedTargetBundle{HarnessID: harness.PiSDK, TargetName: targetName, RootDir: outputDir}

	if err := fs.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	var extensions []string
	if piBundle.Pi != nil && pathExists(fs, piBundle.Pi.ExtensionsDir) {
		entries, err := afero.ReadDir(fs, piBundle.Pi.ExtensionsDir)
		if err == nil {
			for _, e := range entries {
				extensions = append(extensions, e.Name())
			}
		}
	}

	skillsDir := filepath.Join(outputDir, "skills")
	skillsRef := ""
	if pathExists(fs, skillsDir) {
		skillsRef = "skills"
	}

	doc := piSDKBundleJSON{
		SchemaVersion: 1,
		HarnessID:     string(harness.PiSDK),
		TargetName:    targetName,
		RootDir:       outputDir,
		Extensions:    extensions,
		SkillsDir:     skillsRef,
	}

	path := filepath.Join(outputDir, "bundle.json")
	if err := writeJSON(fs, path, doc); err != nil {
		return nil, err
	}

	bundle.PiSDK = &PiSDKBundleInfo{BundleJSONPath: path}
	return bundle, nil
}
