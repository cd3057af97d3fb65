package lock

import (
	"sort"

	"github.com/agentspaces/asp/pkg/closure"
)

// DriftReport describes what changed between a prior lock's target entry
// and a freshly computed closure (spec §4.7 drift checks).
type DriftReport struct {
	TargetName      string
	AddedSpaces     []closure.SpaceKey
	RemovedSpaces   []closure.SpaceKey
	ChangedCommits  []closure.SpaceKey
	EnvHashChanged  bool
}

// HasDrift reports whether anything in the report constitutes drift.
func (d *DriftReport) HasDrift() bool {
	return len(d.AddedSpaces) > 0 || len(d.RemovedSpaces) > 0 || len(d.ChangedCommits) > 0 || d.EnvHashChanged
}

// CheckDrift compares a prior lock's target against a freshly computed one
// in fresh. A changed resolvedFrom with an unchanged commit is NOT drift;
// any commit change is drift (spec §4.7).
func CheckDrift(prior *File, fresh *File, targetName string) *DriftReport {
	report := &DriftReport{TargetName: targetName}

	priorTarget, priorOK := prior.Targets[targetName]
	freshTarget, freshOK := fresh.Targets[targetName]
	if !priorOK || !freshOK {
		report.EnvHashChanged = true
		return report
	}

	priorKeys := make(map[closure.SpaceKey]bool)
	for _, k := range priorTarget.LoadOrder {
		priorKeys[k] = true
	}
	freshKeys := make(map[closure.SpaceKey]bool)
	for _, k := range freshTarget.LoadOrder {
		freshKeys[k] = true
	}

	for k := range freshKeys {
		if !priorKeys[k] {
			report.AddedSpaces = append(report.AddedSpaces, k)
		}
	}
	for k := range priorKeys {
		if !freshKeys[k] {
			report.RemovedSpaces = append(report.RemovedSpaces, k)
		}
	}

	for k := range freshKeys {
		if !priorKeys[k] {
			continue
		}
		priorEntry := prior.Spaces[k]
		freshEntry := fresh.Spaces[k]
		if priorEntry.Commit != freshEntry.Commit {
			report.ChangedCommits = append(report.ChangedCommits, k)
		}
	}

	sortKeys(report.AddedSpaces)
	sortKeys(report.RemovedSpaces)
	sortKeys(report.ChangedCommits)

	report.EnvHashChanged = priorTarget.EnvHash != freshTarget.EnvHash
	return report
}

// Diff is the {added, removed, changed, loadOrderChanged} result for the
// `asp diff` command (spec §4.7 Diff).
type Diff struct {
	Added            []closure.SpaceKey
	Removed          []closure.SpaceKey
	Changed          []closure.SpaceKey
	LoadOrderChanged bool
}

// ComputeDiff produces a Diff between a prior lock and a freshly computed
// one for targetName.
func ComputeDiff(prior *File, fresh *File, targetName string) Diff {
	drift := CheckDrift(prior, fresh, targetName)
	diff := Diff{
		Added:   drift.AddedSpaces,
		Removed: drift.RemovedSpaces,
		Changed: drift.ChangedCommits,
	}

	priorTarget := prior.Targets[targetName]
	freshTarget := fresh.Targets[targetName]
	diff.LoadOrderChanged = !equalKeys(priorTarget.LoadOrder, freshTarget.LoadOrder)
	return diff
}

func equalKeys(a, b []closure.SpaceKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortKeys(keys []closure.SpaceKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}

// Merge unions next's spaces and targets into base (the existing global
// lock), preferring next's entries on key collision; metadata comes from
// next (spec §4.7 Merge).
func Merge(base *File, next *File) *File {
	merged := New(next.Registry.URL, next.GeneratedAt)
	merged.Registry = next.Registry

	for k, v := range base.Spaces {
		merged.Spaces[k] = v
	}
	for k, v := range next.Spaces {
		merged.Spaces[k] = v
	}

	for k, v := range base.Targets {
		merged.Targets[k] = v
	}
	for k, v := range next.Targets {
		merged.Targets[k] = v
	}

	return merged
}
