package verify

import (
	"strings"
)

type Kind string

const (
	KindInternalAccess       Kind = "internal-access"
	KindDisallowedDependency Kind = "disallowed-dependency"
	KindCycle                Kind = "cycle"
	KindAmbiguousModuleName  Kind = "ambiguous-module-name"
)

// Kinds lists every violation kind in reporting order.
func Kinds() []Kind {
	return []Kind{KindInternalAccess, KindDisallowedDependency, KindCycle, KindAmbiguousModuleName}
}

type Violation struct {
	Kind    Kind
	Message string
	// Modules and Types name the implicated modules and fully-qualified types.
	Modules []string
	Types   []string
}

func (v Violation) Error() string {
	return v.Message
}

// Violations is the ordered result of one verification run. A non-empty
// value is itself an error carrying every message.
type Violations []Violation

func (vs Violations) Error() string {
	return strings.Join(vs.Messages(), "\n")
}

// Err returns nil when no violations were found.
func (vs Violations) Err() error {
	if len(vs) == 0 {
		return nil
	}
	return vs
}

func (vs Violations) Len() int {
	return len(vs)
}

func (vs Violations) Messages() []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Message)
	}
	return out
}

func (vs Violations) Filter(kind Kind) Violations {
	out := make(Violations, 0)
	for _, v := range vs {
		if v.Kind == kind {
			out = append(out, v)
		}
	}
	return out
}

// CountByKind returns the number of violations per kind.
func (vs Violations) CountByKind() map[Kind]int {
	out := make(map[Kind]int, len(Kinds()))
	for _, v := range vs {
		out[v.Kind]++
	}
	return out
}
