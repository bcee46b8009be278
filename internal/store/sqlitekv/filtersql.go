package sqlitekv

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/roach88/mrverify/internal/keyfilter"
)

// filterSQL is a compiled key filter: a boolean SQL expression and its
// positional arguments.
type filterSQL struct {
	expr string
	args []any
}

// compileFilter translates p into a WHERE fragment over column. Transforms
// wrap the column in fold_lower/fold_upper so nested predicates see the
// transformed value, as keyfilter.Seq does in memory.
func compileFilter(p keyfilter.Predicate, column string) (filterSQL, error) {
	var c filterCompiler
	expr, err := c.predicate(p, column)
	if err != nil {
		return filterSQL{}, err
	}
	return filterSQL{expr: expr, args: c.args}, nil
}

type filterCompiler struct {
	args []any
}

func (c *filterCompiler) bind(v any) string {
	c.args = append(c.args, v)
	return "?"
}

func (c *filterCompiler) predicate(p keyfilter.Predicate, value string) (string, error) {
	switch x := p.(type) {
	case keyfilter.Seq:
		return c.seq(x, value)

	case keyfilter.EndsWith:
		if x.Suffix == "" {
			return "1", nil
		}
		n := utf8.RuneCountInString(x.Suffix)
		return fmt.Sprintf("(length(%s) >= %d AND substr(%s, -%d) = %s)", value, n, value, n, c.bind(x.Suffix)), nil

	case keyfilter.StartsWith:
		if x.Prefix == "" {
			return "1", nil
		}
		n := utf8.RuneCountInString(x.Prefix)
		return fmt.Sprintf("(substr(%s, 1, %d) = %s)", value, n, c.bind(x.Prefix)), nil

	case keyfilter.Eq:
		return fmt.Sprintf("(%s = %s)", value, c.bind(x.Value)), nil

	case keyfilter.Neq:
		return fmt.Sprintf("(%s <> %s)", value, c.bind(x.Value)), nil

	case keyfilter.Between:
		op := "<="
		if x.Exclusive {
			op = "<"
		}
		return fmt.Sprintf("(%s >= %s AND %s %s %s)", value, c.bind(x.Low), value, op, c.bind(x.High)), nil

	case *keyfilter.Matches:
		return fmt.Sprintf("regexp(%s, %s)", c.bind(x.Pattern), value), nil

	case keyfilter.And:
		return c.join(x.Preds, value, " AND ", "1")

	case keyfilter.Or:
		return c.join(x.Preds, value, " OR ", "0")

	case keyfilter.Not:
		inner, err := c.predicate(x.Pred, value)
		if err != nil {
			return "", err
		}
		return "(NOT " + inner + ")", nil

	default:
		return "", fmt.Errorf("sqlitekv: cannot compile filter step %T", p)
	}
}

func (c *filterCompiler) seq(s keyfilter.Seq, value string) (string, error) {
	var parts []string
	for _, st := range s.Steps {
		switch x := st.(type) {
		case keyfilter.ToLower:
			value = "fold_lower(" + value + ")"
		case keyfilter.ToUpper:
			value = "fold_upper(" + value + ")"
		case keyfilter.Predicate:
			part, err := c.predicate(x, value)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		default:
			return "", fmt.Errorf("sqlitekv: cannot compile filter step %T", st)
		}
	}
	if len(parts) == 0 {
		return "1", nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

func (c *filterCompiler) join(preds []keyfilter.Predicate, value, sep, empty string) (string, error) {
	if len(preds) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		part, err := c.predicate(p, value)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}
