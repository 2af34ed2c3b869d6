package index

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/starford/maxwell/internal/apperr"
)

// DefaultSearchLimit is used when a caller passes a non-positive limit.
const DefaultSearchLimit = 20

var barewordRe = regexp.MustCompile(`^[\p{L}\p{N}_]+\*?$`)

// tokenizeQuery splits a query on whitespace, keeping double-quoted phrases
// intact (quotes included).
func tokenizeQuery(q string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		inQuote bool
	)
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range q {
		switch {
		case r == '"':
			cur.WriteRune(r)
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("%w: unterminated quote in %q", apperr.ErrInvalidQuery, q)
	}
	flush()
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty query", apperr.ErrInvalidQuery)
	}
	return out, nil
}

func isOperator(tok string) bool {
	switch tok {
	case "AND", "OR", "NOT", "NEAR":
		return true
	}
	return false
}

// prepareMatch turns a user query into an FTS5 MATCH expression. Operators,
// quoted phrases, prefix terms and parentheses pass through; any other
// token is quoted so punctuation such as '@', '#' or ':' does not reach the
// FTS5 grammar. Structural errors (dangling operators, unbalanced
// parentheses) are left for FTS5 to reject.
func prepareMatch(q string) (string, error) {
	toks, err := tokenizeQuery(q)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(toks))
	for _, tok := range toks {
		if isOperator(tok) || strings.HasPrefix(tok, `"`) {
			parts = append(parts, tok)
			continue
		}
		core := strings.TrimLeft(tok, "(")
		open := tok[:len(tok)-len(core)]
		trimmed := strings.TrimRight(core, ")")
		closing := core[len(trimmed):]
		core = trimmed

		switch {
		case core == "" || barewordRe.MatchString(core):
		default:
			core = `"` + strings.ReplaceAll(core, `"`, `""`) + `"`
		}
		parts = append(parts, open+core+closing)
	}
	return strings.Join(parts, " "), nil
}

// queryTerms reduces a query to lowercase substring terms for the LIKE
// fallback: operators and grouping are dropped, phrases become one term.
func queryTerms(q string) ([]string, error) {
	toks, err := tokenizeQuery(q)
	if err != nil {
		return nil, err
	}
	var terms []string
	for _, tok := range toks {
		if isOperator(tok) {
			continue
		}
		t := strings.Trim(tok, `()"`)
		t = strings.TrimSuffix(t, "*")
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: no searchable terms in %q", apperr.ErrInvalidQuery, q)
	}
	return terms, nil
}

// queryError classifies a failed search: FTS grammar problems become
// apperr.ErrInvalidQuery, anything else stays a plain store error.
func queryError(q string, err error) error {
	msg := err.Error()
	for _, marker := range []string{"fts5", "syntax error", "no such column", "unterminated string", "malformed MATCH"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %q: %s", apperr.ErrInvalidQuery, q, msg)
		}
	}
	return fmt.Errorf("index: search: %w", err)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
