// Package orchestrator sequences C1-C12 into the pipelines named in
// spec §4.13: resolve, install, build/run, explain, diff, gc. Grounded on
// the teacher's pkg/bundle/manager.Manager — a struct holding the
// collaborators, exposing one method per top-level operation.
package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/closure"
	"github.com/agentspaces/asp/pkg/compose"
	"github.com/agentspaces/asp/pkg/gc"
	"github.com/agentspaces/asp/pkg/harness"
	"github.com/agentspaces/asp/pkg/invoke"
	"github.com/agentspaces/asp/pkg/lint"
	"github.com/agentspaces/asp/pkg/lock"
	"github.com/agentspaces/asp/pkg/manifest"
	"github.com/agentspaces/asp/pkg/ref"
	"github.com/agentspaces/asp/pkg/registry"
	"github.com/agentspaces/asp/pkg/resolver"
	"github.com/agentspaces/asp/pkg/store"
)

// readLockOrNil reads a lock file, treating a missing file as "no lock
// yet" (nil, nil) rather than an error — every call site in this package
// needs that distinction (a fresh project, a not-yet-GC'd global lock).
func readLockOrNil(fs afero.Fs, path string) (*lock.File, error) {
	f, err := lock.Read(fs, path)
	if err == nil {
		return f, nil
	}
	var readErr *lock.ReadError
	if os.IsNotExist(err) || (asReadError(err, &readErr) && os.IsNotExist(readErr.Err)) {
		return nil, nil
	}
	return nil, err
}

func asReadError(err error, target **lock.ReadError) bool {
	if e, ok := err.(*lock.ReadError); ok {
		*target = e
		return true
	}
	return false
}

// Orchestrator holds the collaborators every pipeline needs.
type Orchestrator struct {
	fs           afero.Fs
	aspHome      string
	registryPath string
	registry     *registry.Adapter
	resolver     *resolver.Resolver
	source       closure.Source
	store        *store.Store
	now          func() string
}

// New builds an Orchestrator bound to one project's registry checkout and
// ASP_HOME. now supplies the current-time string used for generatedAt
// fields (injected so it stays deterministic under test).
func New(fs afero.Fs, aspHome string, reg *registry.Adapter, registryPath string, now func() string) *Orchestrator {
	res := resolver.New(reg)
	return &Orchestrator{
		fs:           fs,
		aspHome:      aspHome,
		registryPath: registryPath,
		registry:     reg,
		resolver:     res,
		source:       closure.NewRegistrySource(reg, res, fs, registryPath),
		store:        store.New(fs, aspHome),
		now:          now,
	}
}

// ResolveResult is the per-target output of the resolve pipeline.
type ResolveResult struct {
	TargetName string
	Closure    *closure.Closure
}

// Resolve reads the project manifest and walks C5 for each requested
// target (or all targets if names is empty), touching neither store nor
// disk beyond the manifest read itself (spec §4.13 "resolve").
func (o *Orchestrator) Resolve(projectDir string, names []string) ([]ResolveResult, error) {
	pm, err := manifest.ReadProjectManifest(o.fs, filepath.Join(projectDir, "asp-targets.toml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read project manifest: %w", err)
	}

	targets := names
	if len(targets) == 0 {
		for name := range pm.Targets {
			targets = append(targets, name)
		}
	}

	walker := closure.New(o.source)
	var results []ResolveResult
	for _, name := range targets {
		target, ok := pm.Targets[name]
		if !ok {
			return nil, fmt.Errorf("unknown target %q", name)
		}
		cl, err := walker.Walk(target.Compose)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve target %q: %w", name, err)
		}
		results = append(results, ResolveResult{TargetName: name, Closure: cl})
	}
	return results, nil
}

// InstallResult is what install/build return for one target.
type InstallResult struct {
	TargetName string
	Closure    *closure.Closure
	Bundles    map[harness.ID]*compose.ComposedTargetBundle
	Linter     *lint.Linter
}

// Install resolves, snapshots, locks, materializes, and composes every
// requested target (spec §4.13 "install"). harnesses selects which
// harness families to build per target; nil builds Claude only (the
// spaces' harness.supports lists are not consulted).
func (o *Orchestrator) Install(projectDir string, names []string, harnesses []harness.ID, useLock bool) (map[string]*InstallResult, error) {
	pm, err := manifest.ReadProjectManifest(o.fs, filepath.Join(projectDir, "asp-targets.toml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read project manifest: %w", err)
	}

	targets := names
	if len(targets) == 0 {
		for name := range pm.Targets {
			targets = append(targets, name)
		}
	}

	lockPath := filepath.Join(projectDir, "asp-lock.json")
	var prior *lock.File
	if useLock {
		prior, err = readLockOrNil(o.fs, lockPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read prior lock: %w", err)
		}
	}

	newLock := lock.New(o.registryPath, o.now())
	walker := closure.New(o.source)
	results := make(map[string]*InstallResult)

	for _, name := range targets {
		target, ok := pm.Targets[name]
		if !ok {
			return nil, fmt.Errorf("unknown target %q", name)
		}

		cl, err := walker.Walk(target.Compose)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve target %q: %w", name, err)
		}

		integrities := make(map[closure.SpaceKey]string)
		for _, key := range cl.LoadOrder {
			node := cl.Nodes[key]
			integrity, err := o.store.Snapshot(node.ID, node.Commit, o.registry)
			if err != nil {
				return nil, fmt.Errorf("failed to snapshot %s: %w", key, err)
			}
			integrities[key] = integrity
		}

		if err := lock.ComputeTarget(newLock, name, target.Compose, cl, integrities); err != nil {
			return nil, fmt.Errorf("failed to compute lock for target %q: %w", name, err)
		}

		result, err := o.materializeAndCompose(projectDir, name, cl, integrities, harnesses)
		if err != nil {
			return nil, err
		}
		results[name] = result
	}

	_ = prior // prior is only read (a corrupt lock fails the install); its selectors are not pinned, newLock reflects fresh resolution of every target
	if err := lock.Write(o.fs, lockPath, newLock); err != nil {
		return nil, fmt.Errorf("failed to write lock: %w", err)
	}

	return results, nil
}

// Build installs exactly one target and returns its bundle metadata (spec
// §4.13 "build").
func (o *Orchestrator) Build(projectDir, targetName string, harnesses []harness.ID) (*InstallResult, error) {
	results, err := o.Install(projectDir, []string{targetName}, harnesses, true)
	if err != nil {
		return nil, err
	}
	return results[targetName], nil
}

func (o *Orchestrator) materializeAndCompose(projectDir, targetName string, cl *closure.Closure, integrities map[closure.SpaceKey]string, harnesses []harness.ID) (*InstallResult, error) {
	if len(harnesses) == 0 {
		harnesses = []harness.ID{harness.Claude}
	}

	l := lint.New()
	result := &InstallResult{TargetName: targetName, Closure: cl, Bundles: make(map[harness.ID]*compose.ComposedTargetBundle), Linter: l}

	for _, h := range harnesses {
		artifacts, hooksBySpace, settingsInputs, err := o.materializeSpaces(cl, integrities, targetName, h, nil)
		if err != nil {
			return nil, err
		}

		outputDir := filepath.Join(projectDir, "asp_modules", targetName, string(h))
		bundle, err := o.composeTarget(h, artifacts, hooksBySpace, settingsInputs, targetName, outputDir)
		if err != nil {
			return nil, err
		}
		result.Bundles[h] = bundle

		l.CheckCommandCollisions(o.fs, artifacts)
		l.CheckPluginNameCollisions(artifacts)
		l.CheckUnqualifiedCommandRefs(o.fs, artifacts)
		for _, a := range artifacts {
			l.CheckHookPathTraversal(hooksBySpace[a.SpaceID], a.SpaceID)
			l.CheckNonExecutableHookScripts(o.fs, a.ArtifactPath, a.SpaceID, hooksBySpace[a.SpaceID])
		}
	}

	return result, nil
}

// materializeSpaces materializes every node in cl.LoadOrder for one
// harness. devPaths overrides the filesystem path used for a dev-sentinel
// node (keyed by space id); nil falls back to the registry checkout's
// live spaces/<id> directory, the normal in-registry dev-mode case.
// runLocalSpace supplies an override so an arbitrary on-disk directory
// outside the registry can stand in as a dev space (spec §4.13
// "runLocalSpace(dir)").
func (o *Orchestrator) materializeSpaces(cl *closure.Closure, integrities map[closure.SpaceKey]string, targetName string, h harness.ID, devPaths map[string]string) ([]harness.Artifact, map[string][]harness.HookDef, []compose.SettingsInput, error) {
	var artifacts []harness.Artifact
	hooksBySpace := make(map[string][]harness.HookDef)
	var settingsInputs []compose.SettingsInput

	for _, key := range cl.LoadOrder {
		node := cl.Nodes[key]
		integrity := integrities[key]

		snapshotPath := o.store.SnapshotPath(integrity)
		useHardlinks := true
		if node.Commit == resolver.DevSentinel {
			if override, ok := devPaths[node.ID]; ok && override != "" {
				snapshotPath = override
			} else {
				snapshotPath = filepath.Join(o.registryPath, "spaces", node.ID)
			}
			useHardlinks = false
		}

		input := harness.MaterializeSpaceInput{
			SpaceKey:     key,
			Manifest:     node.Manifest,
			SnapshotPath: snapshotPath,
			Integrity:    integrity,
		}
		opts := harness.MaterializeOptions{UseHardlinks: useHardlinks}

		outputDir := filepath.Join(o.store.MaterializedDir(), string(key), string(h))

		var artifact *harness.Artifact
		var err error
		switch h {
		case harness.Claude, harness.ClaudeAgentSDK:
			artifact, err = harness.MaterializeClaude(o.fs, input, outputDir, opts)
		case harness.Pi, harness.PiSDK:
			artifact, err = harness.MaterializePi(o.fs, input, outputDir, opts)
		case harness.Codex:
			artifact, err = harness.MaterializeClaude(o.fs, input, outputDir, opts)
		default:
			return nil, nil, nil, fmt.Errorf("unsupported harness %q", h)
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to materialize %s for %s: %w", key, h, err)
		}
		artifacts = append(artifacts, *artifact)

		hooksPath := filepath.Join(snapshotPath, "hooks", "hooks.toml")
		if data, readErr := afero.ReadFile(o.fs, hooksPath); readErr == nil {
			if hooks, decErr := harness.DecodeHooksToml(data); decErr == nil {
				hooksBySpace[node.ID] = hooks
			}
		}

		settingsInput := compose.SettingsInput{SpaceID: node.ID}
		if node.Manifest.Settings != nil {
			settingsInput.Env = node.Manifest.Settings.Env
			settingsInput.Model = node.Manifest.Settings.Model
			if node.Manifest.Settings.Permissions != nil {
				settingsInput.Allow = node.Manifest.Settings.Permissions.Allow
				settingsInput.Deny = node.Manifest.Settings.Permissions.Deny
			}
		}
		settingsInputs = append(settingsInputs, settingsInput)
	}

	return artifacts, hooksBySpace, settingsInputs, nil
}

func (o *Orchestrator) composeTarget(h harness.ID, artifacts []harness.Artifact, hooksBySpace map[string][]harness.HookDef, settingsInputs []compose.SettingsInput, targetName, outputDir string) (*compose.ComposedTargetBundle, error) {
	switch h {
	case harness.Claude, harness.ClaudeAgentSDK:
		return compose.ComposeClaude(o.fs, artifacts, settingsInputs, targetName, outputDir, compose.Options{})
	case harness.Pi:
		return compose.ComposePi(o.fs, artifacts, hooksBySpace, targetName, outputDir, compose.Options{})
	case harness.PiSDK:
		piBundle, err := compose.ComposePi(o.fs, artifacts, hooksBySpace, targetName, filepath.Join(outputDir, "pi-stage"), compose.Options{})
		if err != nil {
			return nil, err
		}
		return compose.ComposePiSDK(o.fs, piBundle, targetName, outputDir)
	case harness.Codex:
		return compose.ComposeCodex(o.fs, artifacts, nil, "", targetName, outputDir)
	default:
		return nil, fmt.Errorf("unsupported harness %q", h)
	}
}

// Diff resolves a target fresh (no lock involvement) and compares it to
// the existing lock entry for that target (spec §4.13 "diff").
func (o *Orchestrator) Diff(projectDir, targetName string) (*lock.Diff, error) {
	pm, err := manifest.ReadProjectManifest(o.fs, filepath.Join(projectDir, "asp-targets.toml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read project manifest: %w", err)
	}
	target, ok := pm.Targets[targetName]
	if !ok {
		return nil, fmt.Errorf("unknown target %q", targetName)
	}

	walker := closure.New(o.source)
	cl, err := walker.Walk(target.Compose)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target %q: %w", targetName, err)
	}

	integrities := make(map[closure.SpaceKey]string)
	for _, key := range cl.LoadOrder {
		node := cl.Nodes[key]
		integrity, err := o.store.Snapshot(node.ID, node.Commit, o.registry)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot %s: %w", key, err)
		}
		integrities[key] = integrity
	}

	fresh := lock.New(o.registryPath, o.now())
	if err := lock.ComputeTarget(fresh, targetName, target.Compose, cl, integrities); err != nil {
		return nil, err
	}

	priorPath := filepath.Join(projectDir, "asp-lock.json")
	prior, err := readLockOrNil(o.fs, priorPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read existing lock: %w", err)
	}
	if prior == nil {
		prior = lock.New(o.registryPath, o.now())
	}

	diff := lock.ComputeDiff(prior, fresh, targetName)
	return &diff, nil
}

// GC enumerates every live lock visible under ASP_HOME (the project lock
// plus the global lock) and invokes C11 (spec §4.13 "gc").
func (o *Orchestrator) GC(projectDir string, dryRun bool) (gc.Result, error) {
	var locks []*lock.File

	if projectDir != "" {
		projLock, err := readLockOrNil(o.fs, filepath.Join(projectDir, "asp-lock.json"))
		if err != nil {
			return gc.Result{}, fmt.Errorf("failed to read project lock: %w", err)
		}
		if projLock != nil {
			locks = append(locks, projLock)
		}
	}

	globalLock, err := readLockOrNil(o.fs, filepath.Join(o.aspHome, "global-lock.json"))
	if err != nil {
		return gc.Result{}, fmt.Errorf("failed to read global lock: %w", err)
	}
	if globalLock != nil {
		locks = append(locks, globalLock)
	}

	return gc.Collect(o.fs, o.store, locks, dryRun)
}

// RunResult is what Run/RunGlobalSpace/RunLocalSpace return: the bundle
// that was invoked, the argv/env built for it, and the process outcome.
type RunResult struct {
	TargetName string
	Bundle     *compose.ComposedTargetBundle
	Invocation invoke.Invocation
	Linter     *lint.Linter // nil when the bundle was reloaded rather than freshly composed
	DryRun     bool
	ExitCode   int
}

// Run installs target (or reuses its existing asp_modules/<target>/<harness>
// composition when present and refresh is false), runs the linter when a
// fresh composition happened, then invokes the harness (spec §4.13 "run").
func (o *Orchestrator) Run(projectDir, targetName string, h harness.ID, opts invoke.RunOptions, refresh, dryRun bool) (*RunResult, error) {
	outputDir := filepath.Join(projectDir, "asp_modules", targetName, string(h))

	var bundle *compose.ComposedTargetBundle
	var linter *lint.Linter

	exists, err := afero.DirExists(o.fs, outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", outputDir, err)
	}

	if refresh || !exists {
		result, err := o.Build(projectDir, targetName, []harness.ID{h})
		if err != nil {
			return nil, err
		}
		var ok bool
		bundle, ok = result.Bundles[h]
		if !ok {
			return nil, fmt.Errorf("target %q was not composed for harness %q", targetName, h)
		}
		linter = result.Linter
	} else {
		bundle, err = compose.LoadComposedBundle(o.fs, h, targetName, outputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to reload bundle for %q: %w", targetName, err)
		}
	}

	if linter != nil && linter.HasErrors() {
		return &RunResult{TargetName: targetName, Bundle: bundle, Linter: linter}, fmt.Errorf("target %q has lint errors, not running", targetName)
	}

	inv, err := invoke.BuildInvocation(bundle, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build invocation: %w", err)
	}

	result := &RunResult{TargetName: targetName, Bundle: bundle, Invocation: inv, Linter: linter, DryRun: dryRun}
	if dryRun {
		return result, nil
	}

	cwd := opts.Cwd
	if cwd == "" {
		cwd = projectDir
	}
	exitCode, err := spawnHarness(inv, cwd)
	result.ExitCode = exitCode
	if err != nil {
		return result, fmt.Errorf("failed to run harness: %w", err)
	}
	return result, nil
}

// spawnHarness execs the invocation, inheriting the host process's stdio
// so an interactive harness session behaves like a normal foreground
// command, and reports the child's exit code (spec §6 "run returns the
// harness exit code").
func spawnHarness(inv invoke.Invocation, cwd string) (int, error) {
	if len(inv.Argv) == 0 {
		return -1, fmt.Errorf("empty invocation")
	}

	cmd := exec.Command(inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = cwd
	env := os.Environ()
	for k, v := range inv.Env {
		env = append(env, k+"="+v)
	}
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

// runSynthetic materializes and composes a single ad-hoc closure (used by
// RunGlobalSpace/RunLocalSpace, which have no project target to resolve)
// into aspHome/temp/<targetName>/<harness>, merges the resulting lock
// entries into global-lock.json, and invokes the harness.
func (o *Orchestrator) runSynthetic(targetName string, composeList []string, cl *closure.Closure, devPaths map[string]string, h harness.ID, opts invoke.RunOptions, dryRun bool) (*RunResult, error) {
	integrities := make(map[closure.SpaceKey]string)
	for _, key := range cl.LoadOrder {
		node := cl.Nodes[key]
		if node.Commit == resolver.DevSentinel {
			integrities[key] = resolver.DevIntegrity
			continue
		}
		integrity, err := o.store.Snapshot(node.ID, node.Commit, o.registry)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot %s: %w", key, err)
		}
		integrities[key] = integrity
	}

	globalLockPath := filepath.Join(o.aspHome, "global-lock.json")
	globalLock, err := readLockOrNil(o.fs, globalLockPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read global lock: %w", err)
	}
	if globalLock == nil {
		globalLock = lock.New(o.registryPath, o.now())
	}
	if err := lock.ComputeTarget(globalLock, targetName, composeList, cl, integrities); err != nil {
		return nil, fmt.Errorf("failed to compute global lock entry for %q: %w", targetName, err)
	}
	if err := lock.Write(o.fs, globalLockPath, globalLock); err != nil {
		return nil, fmt.Errorf("failed to write global lock: %w", err)
	}

	artifacts, hooksBySpace, settingsInputs, err := o.materializeSpaces(cl, integrities, targetName, h, devPaths)
	if err != nil {
		return nil, err
	}

	l := lint.New()
	l.CheckCommandCollisions(o.fs, artifacts)
	l.CheckPluginNameCollisions(artifacts)
	l.CheckUnqualifiedCommandRefs(o.fs, artifacts)
	for _, a := range artifacts {
		l.CheckHookPathTraversal(hooksBySpace[a.SpaceID], a.SpaceID)
		l.CheckNonExecutableHookScripts(o.fs, a.ArtifactPath, a.SpaceID, hooksBySpace[a.SpaceID])
	}
	if l.HasErrors() {
		return &RunResult{TargetName: targetName, Linter: l}, fmt.Errorf("synthetic target %q has lint errors, not running", targetName)
	}

	outputDir := filepath.Join(o.aspHome, "temp", targetName, string(h))
	bundle, err := o.composeTarget(h, artifacts, hooksBySpace, settingsInputs, targetName, outputDir)
	if err != nil {
		return nil, err
	}

	inv, err := invoke.BuildInvocation(bundle, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build invocation: %w", err)
	}

	result := &RunResult{TargetName: targetName, Bundle: bundle, Invocation: inv, Linter: l, DryRun: dryRun}
	if dryRun {
		return result, nil
	}

	cwd := opts.Cwd
	if cwd == "" {
		cwd = o.aspHome
	}
	exitCode, err := spawnHarness(inv, cwd)
	result.ExitCode = exitCode
	if err != nil {
		return result, fmt.Errorf("failed to run harness: %w", err)
	}
	return result, nil
}

// RunGlobalSpace resolves a single space reference outside of any project
// and runs it as a synthetic "_global" target (spec §4.13 "runGlobalSpace").
func (o *Orchestrator) RunGlobalSpace(spaceRef string, h harness.ID, opts invoke.RunOptions, dryRun bool) (*RunResult, error) {
	if _, err := ref.Parse(spaceRef); err != nil {
		return nil, fmt.Errorf("invalid space reference %q: %w", spaceRef, err)
	}

	walker := closure.New(o.source)
	cl, err := walker.Walk([]string{spaceRef})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", spaceRef, err)
	}

	return o.runSynthetic("_global", []string{spaceRef}, cl, nil, h, opts, dryRun)
}

// RunLocalSpace runs the space rooted at dir (an arbitrary on-disk
// space.toml, not necessarily checked into the registry) as a synthetic
// target named after the space's own id (spec §4.13 "runLocalSpace(dir)").
// Declared deps still resolve against the registry normally; only the root
// space itself is read straight from dir.
func (o *Orchestrator) RunLocalSpace(dir string, h harness.ID, opts invoke.RunOptions, dryRun bool) (*RunResult, error) {
	m, err := manifest.ReadSpaceManifest(o.fs, filepath.Join(dir, "space.toml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read local space manifest: %w", err)
	}

	walker := closure.New(o.source)
	cl, err := walker.Walk(m.Deps.Spaces)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve deps for local space %q: %w", m.ID, err)
	}

	devKey := closure.SpaceKey(m.ID + "@dev")
	depKeys := append([]closure.SpaceKey{}, cl.Roots...)
	cl.Nodes[devKey] = &closure.Node{
		Key:          devKey,
		ID:           m.ID,
		Commit:       resolver.DevSentinel,
		Manifest:     m,
		ResolvedFrom: resolver.ResolvedSelector{Kind: resolver.KindDev, Commit: resolver.DevSentinel},
		Deps:         depKeys,
	}
	cl.LoadOrder = append(cl.LoadOrder, devKey)
	cl.Roots = []closure.SpaceKey{devKey}

	return o.runSynthetic(m.ID, m.Deps.Spaces, cl, map[string]string{m.ID: dir}, h, opts, dryRun)
}

// ExplainSpace is one space's human-readable provenance and identity, as
// recorded in the lock (spec §4.13 "explain").
type ExplainSpace struct {
	SpaceKey     string
	ID           string
	Commit       string
	Plugin       *lock.PluginRef
	ResolvedFrom *lock.ResolvedFromRecord
	Integrity    string
	Deps         []string
}

// ExplainTarget is one target's explain view: its pinned spaces, lint
// warnings recomputed against whatever is materialized on disk, plus
// whatever composed bundles already exist on disk for it.
type ExplainTarget struct {
	TargetName string
	Spaces     []ExplainSpace
	Warnings   []lint.Issue
	Bundles    map[harness.ID]*compose.ComposedTargetBundle
}

// explainableHarnesses is every harness family explain checks for an
// already-composed bundle under asp_modules/<target>/<harness>.
var explainableHarnesses = []harness.ID{harness.Claude, harness.Pi, harness.PiSDK, harness.Codex}

// Explain reads the lock (no fresh resolution) and assembles a
// human-readable view per target: every pinned space's identity and
// resolution provenance, plus any bundle already composed on disk (spec
// §4.13 "explain").
func (o *Orchestrator) Explain(projectDir string, names []string) ([]ExplainTarget, error) {
	lockPath := filepath.Join(projectDir, "asp-lock.json")
	file, err := readLockOrNil(o.fs, lockPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read lock: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("no lock file at %s; run install first", lockPath)
	}

	targets := names
	if len(targets) == 0 {
		for name := range file.Targets {
			targets = append(targets, name)
		}
	}

	var out []ExplainTarget
	for _, name := range targets {
		entry, ok := file.Targets[name]
		if !ok {
			return nil, fmt.Errorf("target %q not found in lock", name)
		}

		et := ExplainTarget{TargetName: name, Bundles: make(map[harness.ID]*compose.ComposedTargetBundle)}
		for _, key := range entry.LoadOrder {
			se, ok := file.Spaces[key]
			if !ok {
				continue
			}
			deps := make([]string, len(se.Deps.Spaces))
			for i, d := range se.Deps.Spaces {
				deps[i] = string(d)
			}
			et.Spaces = append(et.Spaces, ExplainSpace{
				SpaceKey:     string(key),
				ID:           se.ID,
				Commit:       se.Commit,
				Plugin:       se.Plugin,
				ResolvedFrom: se.ResolvedFrom,
				Integrity:    se.Integrity,
				Deps:         deps,
			})
		}

		l := lint.New()
		for _, h := range explainableHarnesses {
			artifacts, hooksBySpace := o.materializedArtifactsForExplain(file, entry, h)
			if len(artifacts) > 0 {
				l.CheckCommandCollisions(o.fs, artifacts)
				l.CheckPluginNameCollisions(artifacts)
				l.CheckUnqualifiedCommandRefs(o.fs, artifacts)
				for _, a := range artifacts {
					l.CheckHookPathTraversal(hooksBySpace[a.SpaceID], a.SpaceID)
					l.CheckNonExecutableHookScripts(o.fs, a.ArtifactPath, a.SpaceID, hooksBySpace[a.SpaceID])
				}
			}

			outputDir := filepath.Join(projectDir, "asp_modules", name, string(h))
			if exists, _ := afero.DirExists(o.fs, outputDir); !exists {
				continue
			}
			if bundle, err := compose.LoadComposedBundle(o.fs, h, name, outputDir); err == nil {
				et.Bundles[h] = bundle
			}
		}
		et.Warnings = l.Issues()

		out = append(out, et)
	}
	return out, nil
}

// materializedArtifactsForExplain reconstructs the per-space artifacts and
// hook definitions for an already-installed target, purely by reading
// whatever a prior install already left on disk under the materialized
// cache (o.store.MaterializedDir()) and each space's hooks.toml — no
// registry access or fresh resolution, consistent with explain's
// lock-only contract. A space with no materialized artifact for h (never
// installed for that harness) is silently skipped.
func (o *Orchestrator) materializedArtifactsForExplain(file *lock.File, entry lock.TargetEntry, h harness.ID) ([]harness.Artifact, map[string][]harness.HookDef) {
	var artifacts []harness.Artifact
	hooksBySpace := make(map[string][]harness.HookDef)

	for _, key := range entry.LoadOrder {
		se, ok := file.Spaces[key]
		if !ok {
			continue
		}

		artifactDir := filepath.Join(o.store.MaterializedDir(), string(key), string(h))
		if exists, _ := afero.DirExists(o.fs, artifactDir); !exists {
			continue
		}

		pluginName, pluginVersion := se.ID, ""
		if se.Plugin != nil {
			pluginName, pluginVersion = se.Plugin.Name, se.Plugin.Version
		}
		artifacts = append(artifacts, harness.Artifact{
			SpaceKey:      key,
			SpaceID:       se.ID,
			ArtifactPath:  artifactDir,
			PluginName:    pluginName,
			PluginVersion: pluginVersion,
		})

		snapshotPath := o.store.SnapshotPath(se.Integrity)
		if se.Commit == resolver.DevSentinel {
			snapshotPath = filepath.Join(o.registryPath, "spaces", se.ID)
		}
		hooksPath := filepath.Join(snapshotPath, "hooks", "hooks.toml")
		if data, readErr := afero.ReadFile(o.fs, hooksPath); readErr == nil {
			if hooks, decErr := harness.DecodeHooksToml(data); decErr == nil {
				hooksBySpace[se.ID] = hooks
			}
		}
	}

	return artifacts, hooksBySpace
}

// Now returns an RFC3339 timestamp, the default `now` injected into New
// for production use (tests inject a fixed string instead).
func Now() string { return time.Now().UTC().Format(time.RFC3339) }
