// Package ref implements the space reference grammar: parsing and
// serializing "space:<id>@<selector>" and classifying selectors.
package ref

import (
	"fmt"
	"regexp"
	"strings"
)

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// SelectorKind classifies a parsed Selector.
type SelectorKind int

const (
	KindTag SelectorKind = iota
	KindSemverReq
	KindBranch
	KindCommit
	KindDev
)

func (k SelectorKind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindSemverReq:
		return "semver"
	case KindBranch:
		return "branch"
	case KindCommit:
		return "commit"
	case KindDev:
		return "dev"
	default:
		return "unknown"
	}
}

// Selector is a tagged variant over the five selector kinds in spec §3.
type Selector struct {
	Kind  SelectorKind
	Value string // tag name, semver req, branch name, or commit sha; empty for Dev
}

func (s Selector) String() string {
	switch s.Kind {
	case KindDev:
		return "dev"
	case KindBranch:
		return "branch/" + s.Value
	default:
		return s.Value
	}
}

// SpaceRef is a parsed "space:<id>@<selector>" reference.
type SpaceRef struct {
	ID       string
	Selector Selector
}

// MalformedRefError is raised when the wire string isn't a valid reference
// at all (missing prefix, missing '@', empty id).
type MalformedRefError struct {
	Input  string
	Reason string
}

func (e *MalformedRefError) Error() string {
	return fmt.Sprintf("malformed space reference %q: %s", e.Input, e.Reason)
}

// InvalidSelectorError is raised when the selector portion cannot be
// classified by any rule in the priority table.
type InvalidSelectorError struct {
	Input    string
	Selector string
}

func (e *InvalidSelectorError) Error() string {
	return fmt.Sprintf("invalid selector %q in reference %q", e.Selector, e.Input)
}

var commitPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)
var semverExactPattern = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

// Parse classifies and parses a wire-form reference "space:<id>@<selector>".
//
// Selector classification follows the priority table in spec §4.1:
//  1. literal "dev"
//  2. 40-hex string -> commit
//  3. starts with ^ ~ > < = or contains a space -> semver range
//  4. v?\d+\. and valid semver -> semver equality
//  5. starts with "branch/" -> branch
//  6. otherwise -> tag
func Parse(s string) (SpaceRef, error) {
	const prefix = "space:"
	if !strings.HasPrefix(s, prefix) {
		return SpaceRef{}, &MalformedRefError{Input: s, Reason: "missing 'space:' prefix"}
	}
	rest := s[len(prefix):]

	at := strings.Index(rest, "@")
	if at < 0 {
		return SpaceRef{}, &MalformedRefError{Input: s, Reason: "missing '@' separator"}
	}

	id := rest[:at]
	selectorStr := rest[at+1:]

	if id == "" {
		return SpaceRef{}, &MalformedRefError{Input: s, Reason: "empty id"}
	}
	if !idPattern.MatchString(id) || len(id) > 64 {
		return SpaceRef{}, &MalformedRefError{Input: s, Reason: "invalid space id " + id}
	}
	if selectorStr == "" {
		return SpaceRef{}, &MalformedRefError{Input: s, Reason: "empty selector"}
	}

	selector, err := classifySelector(selectorStr)
	if err != nil {
		return SpaceRef{}, &InvalidSelectorError{Input: s, Selector: selectorStr}
	}

	return SpaceRef{ID: id, Selector: selector}, nil
}

func classifySelector(s string) (Selector, error) {
	// 1. literal "dev"
	if s == "dev" {
		return Selector{Kind: KindDev}, nil
	}

	// 2. 40-hex commit sha
	if commitPattern.MatchString(s) {
		return Selector{Kind: KindCommit, Value: s}, nil
	}

	// 3. semver range syntax
	if strings.ContainsAny(s, "^~><=") || strings.Contains(s, " ") {
		return Selector{Kind: KindSemverReq, Value: s}, nil
	}

	// 4. v?\d+\. prefix and valid exact semver
	if semverExactPattern.MatchString(s) {
		return Selector{Kind: KindSemverReq, Value: "=" + strings.TrimPrefix(s, "v")}, nil
	}

	// 5. branch/<rest>
	if strings.HasPrefix(s, "branch/") {
		branch := strings.TrimPrefix(s, "branch/")
		if branch == "" {
			return Selector{}, fmt.Errorf("empty branch name")
		}
		return Selector{Kind: KindBranch, Value: branch}, nil
	}

	// 6. otherwise -> tag, constrained to alphanumerics + ._-
	if !tagPattern.MatchString(s) {
		return Selector{}, fmt.Errorf("unclassifiable selector")
	}
	return Selector{Kind: KindTag, Value: s}, nil
}

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// String serializes a SpaceRef back to its wire form. Parse(String(r)) == r
// for every selector kind (round-trip property, spec §8).
func (r SpaceRef) String() string {
	return fmt.Sprintf("space:%s@%s", r.ID, r.Selector.String())
}

// Serialize is an alias for String kept for call-site readability in
// orchestrator code that never otherwise touches fmt.Stringer.
func Serialize(r SpaceRef) string {
	return r.String()
}
