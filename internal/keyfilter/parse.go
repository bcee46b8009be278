package keyfilter

import (
	"fmt"
	"regexp"
	"strings"
)

// Op names accepted in list form.
const (
	OpEndsWith   = "ends_with"
	OpStartsWith = "starts_with"
	OpEq         = "eq"
	OpNeq        = "neq"
	OpBetween    = "between"
	OpMatches    = "matches"
	OpAnd        = "and"
	OpOr         = "or"
	OpNot        = "not"
	OpToLower    = "to_lower"
	OpToUpper    = "to_upper"
)

// ParseError reports a malformed filter expression.
type ParseError struct {
	Path    string // Location within the expression, e.g. "[1][0]"
	Message string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return "keyfilter: " + e.Message
	}
	return fmt.Sprintf("keyfilter %s: %s", e.Path, e.Message)
}

// Parse converts a decoded list-form expression (as produced by YAML, JSON
// or CUE decoding into any) into a Seq.
//
// Both a single operator expression ([or, ...]) and a list of steps
// ([[to_lower], [ends_with, "a"]]) are accepted.
func Parse(v any) (Seq, error) {
	return parseSeq(v, "")
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level defaults.
func MustParse(v any) Seq {
	s, err := Parse(v)
	if err != nil {
		panic(err)
	}
	return s
}

func parseSeq(v any, path string) (Seq, error) {
	list, ok := v.([]any)
	if !ok {
		return Seq{}, &ParseError{Path: path, Message: fmt.Sprintf("expected list, got %T", v)}
	}
	if len(list) == 0 {
		return Seq{}, nil
	}

	// A bare operator expression is one step.
	if _, isOp := list[0].(string); isOp {
		st, err := parseStep(list, path)
		if err != nil {
			return Seq{}, err
		}
		return Seq{Steps: []Step{st}}, nil
	}

	steps := make([]Step, 0, len(list))
	for i, elem := range list {
		p := fmt.Sprintf("%s[%d]", path, i)
		stepList, ok := elem.([]any)
		if !ok {
			return Seq{}, &ParseError{Path: p, Message: fmt.Sprintf("expected step list, got %T", elem)}
		}
		st, err := parseStep(stepList, p)
		if err != nil {
			return Seq{}, err
		}
		steps = append(steps, st)
	}
	return Seq{Steps: steps}, nil
}

func parseStep(list []any, path string) (Step, error) {
	if len(list) == 0 {
		return nil, &ParseError{Path: path, Message: "empty step"}
	}
	op, ok := list[0].(string)
	if !ok {
		return nil, &ParseError{Path: path, Message: fmt.Sprintf("operator must be a string, got %T", list[0])}
	}
	args := list[1:]

	switch op {
	case OpToLower, OpToUpper:
		if len(args) != 0 {
			return nil, arityError(path, op, "no arguments", len(args))
		}
		if op == OpToLower {
			return ToLower{}, nil
		}
		return ToUpper{}, nil

	case OpEndsWith, OpStartsWith, OpEq, OpNeq, OpMatches:
		if len(args) != 1 {
			return nil, arityError(path, op, "1 argument", len(args))
		}
		s, err := scalarString(args[0], path+"[1]")
		if err != nil {
			return nil, err
		}
		switch op {
		case OpEndsWith:
			return EndsWith{Suffix: s}, nil
		case OpStartsWith:
			return StartsWith{Prefix: s}, nil
		case OpEq:
			return Eq{Value: s}, nil
		case OpNeq:
			return Neq{Value: s}, nil
		default:
			re, err := regexp.Compile(s)
			if err != nil {
				return nil, &ParseError{Path: path + "[1]", Message: fmt.Sprintf("invalid pattern: %v", err)}
			}
			return &Matches{Pattern: s, re: re}, nil
		}

	case OpBetween:
		if len(args) != 2 && len(args) != 3 {
			return nil, arityError(path, op, "2 or 3 arguments", len(args))
		}
		low, err := scalarString(args[0], path+"[1]")
		if err != nil {
			return nil, err
		}
		high, err := scalarString(args[1], path+"[2]")
		if err != nil {
			return nil, err
		}
		b := Between{Low: low, High: high}
		if len(args) == 3 {
			inclusive, ok := args[2].(bool)
			if !ok {
				return nil, &ParseError{Path: path + "[3]", Message: fmt.Sprintf("inclusive flag must be a bool, got %T", args[2])}
			}
			b.Exclusive = !inclusive
		}
		return b, nil

	case OpAnd, OpOr:
		if len(args) < 2 {
			return nil, arityError(path, op, "at least 2 filter lists", len(args))
		}
		preds := make([]Predicate, 0, len(args))
		for i, a := range args {
			s, err := parseSeq(a, fmt.Sprintf("%s[%d]", path, i+1))
			if err != nil {
				return nil, err
			}
			preds = append(preds, s)
		}
		if op == OpAnd {
			return And{Preds: preds}, nil
		}
		return Or{Preds: preds}, nil

	case OpNot:
		if len(args) != 1 {
			return nil, arityError(path, op, "1 filter list", len(args))
		}
		s, err := parseSeq(args[0], path+"[1]")
		if err != nil {
			return nil, err
		}
		return Not{Pred: s}, nil

	default:
		return nil, &ParseError{Path: path, Message: fmt.Sprintf("unknown operator %q", op)}
	}
}

func arityError(path, op, want string, got int) error {
	return &ParseError{Path: path, Message: fmt.Sprintf("%s takes %s, got %d", op, want, got)}
}

// scalarString accepts only strings. Decoders turn unquoted numbers into
// numeric values and lose their spelling ("05" becomes 5), so key fragments
// must be quoted.
func scalarString(v any, path string) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case int, int64, uint64, float64:
		return "", &ParseError{Path: path, Message: fmt.Sprintf("number %v must be quoted as a string", x)}
	default:
		return "", &ParseError{Path: path, Message: fmt.Sprintf("expected string, got %T", v)}
	}
}

// Format renders a step back into compact list form for logs and reports.
func Format(st Step) string {
	var b strings.Builder
	format(&b, st)
	return b.String()
}

func format(b *strings.Builder, st Step) {
	switch x := st.(type) {
	case Seq:
		b.WriteByte('[')
		for i, s := range x.Steps {
			if i > 0 {
				b.WriteByte(',')
			}
			format(b, s)
		}
		b.WriteByte(']')
	case EndsWith:
		fmt.Fprintf(b, "[%s,%q]", OpEndsWith, x.Suffix)
	case StartsWith:
		fmt.Fprintf(b, "[%s,%q]", OpStartsWith, x.Prefix)
	case Eq:
		fmt.Fprintf(b, "[%s,%q]", OpEq, x.Value)
	case Neq:
		fmt.Fprintf(b, "[%s,%q]", OpNeq, x.Value)
	case Between:
		fmt.Fprintf(b, "[%s,%q,%q,%t]", OpBetween, x.Low, x.High, !x.Exclusive)
	case *Matches:
		fmt.Fprintf(b, "[%s,%q]", OpMatches, x.Pattern)
	case ToLower:
		fmt.Fprintf(b, "[%s]", OpToLower)
	case ToUpper:
		fmt.Fprintf(b, "[%s]", OpToUpper)
	case And:
		formatLogical(b, OpAnd, x.Preds)
	case Or:
		formatLogical(b, OpOr, x.Preds)
	case Not:
		b.WriteString("[" + OpNot + ",")
		format(b, x.Pred)
		b.WriteByte(']')
	default:
		fmt.Fprintf(b, "<%T>", st)
	}
}

func formatLogical(b *strings.Builder, op string, preds []Predicate) {
	b.WriteString("[" + op)
	for _, p := range preds {
		b.WriteByte(',')
		format(b, p)
	}
	b.WriteByte(']')
}
