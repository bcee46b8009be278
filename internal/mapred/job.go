package mapred

import (
	"fmt"
)

// Map functions.
const (
	MapObjectValue = "object_value"
	MapKey         = "key"
	MapIdentity    = "identity"
)

// Reduce functions.
const (
	ReduceCountInputs = "count_inputs"
	ReduceIdentity    = "identity"
	ReduceSetUnion    = "set_union"
	ReduceSort        = "sort"
)

// Wildcard matches any bucket or tag in a link phase.
const Wildcard = "_"

// FunSpec names a map or reduce function.
type FunSpec struct {
	Fun  string `yaml:"fun" json:"fun"`
	Keep bool   `yaml:"keep,omitempty" json:"keep,omitempty"`
}

// LinkSpec selects links by bucket and tag. Empty or "_" matches anything.
type LinkSpec struct {
	Bucket string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Tag    string `yaml:"tag,omitempty" json:"tag,omitempty"`
	Keep   bool   `yaml:"keep,omitempty" json:"keep,omitempty"`
}

// Phase is one step of a job. Exactly one field must be set.
type Phase struct {
	Map    *FunSpec  `yaml:"map,omitempty" json:"map,omitempty"`
	Link   *LinkSpec `yaml:"link,omitempty" json:"link,omitempty"`
	Reduce *FunSpec  `yaml:"reduce,omitempty" json:"reduce,omitempty"`
}

// Kind returns "map", "link" or "reduce", or "" for an invalid phase.
func (p Phase) Kind() string {
	switch {
	case p.Map != nil && p.Link == nil && p.Reduce == nil:
		return "map"
	case p.Link != nil && p.Map == nil && p.Reduce == nil:
		return "link"
	case p.Reduce != nil && p.Map == nil && p.Link == nil:
		return "reduce"
	}
	return ""
}

func (p Phase) keep() bool {
	switch {
	case p.Map != nil:
		return p.Map.Keep
	case p.Link != nil:
		return p.Link.Keep
	case p.Reduce != nil:
		return p.Reduce.Keep
	}
	return false
}

func (p Phase) String() string {
	switch p.Kind() {
	case "map":
		return "map:" + p.Map.Fun
	case "reduce":
		return "reduce:" + p.Reduce.Fun
	case "link":
		return "link:" + orWildcard(p.Link.Bucket) + "/" + orWildcard(p.Link.Tag)
	}
	return "invalid"
}

func orWildcard(s string) string {
	if s == "" {
		return Wildcard
	}
	return s
}

// Job is an ordered list of phases.
type Job []Phase

// Validate checks that every phase is well formed and names a known function.
func (j Job) Validate() error {
	if len(j) == 0 {
		return fmt.Errorf("job has no phases")
	}
	for i, p := range j {
		switch p.Kind() {
		case "map":
			switch p.Map.Fun {
			case MapObjectValue, MapKey, MapIdentity:
			default:
				return fmt.Errorf("phase %d: unknown map function %q", i, p.Map.Fun)
			}
		case "reduce":
			switch p.Reduce.Fun {
			case ReduceCountInputs, ReduceIdentity, ReduceSetUnion, ReduceSort:
			default:
				return fmt.Errorf("phase %d: unknown reduce function %q", i, p.Reduce.Fun)
			}
		case "link":
		default:
			return fmt.Errorf("phase %d: exactly one of map, link, reduce is required", i)
		}
	}
	return nil
}

// HasLinkPhase reports whether any phase follows links.
func (j Job) HasLinkPhase() bool {
	for _, p := range j {
		if p.Link != nil {
			return true
		}
	}
	return false
}
