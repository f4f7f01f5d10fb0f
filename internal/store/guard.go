package store

import (
	"fmt"
	"strings"
	"unicode"
)

// deniedVerbs are leading keywords that write, change configuration, or
// reach outside the in-memory table.
var deniedVerbs = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true, "UPSERT": true,
	"REPLACE": true, "TRUNCATE": true, "DROP": true, "CREATE": true, "ALTER": true,
	"ATTACH": true, "DETACH": true, "COPY": true, "EXPORT": true, "IMPORT": true,
	"INSTALL": true, "LOAD": true, "FORCE": true, "PRAGMA": true, "SET": true,
	"RESET": true, "CALL": true, "USE": true, "VACUUM": true, "CHECKPOINT": true,
	"BEGIN": true, "COMMIT": true, "ROLLBACK": true, "ABORT": true, "GRANT": true,
	"REVOKE": true, "REINDEX": true, "ANALYZE": true, "SAVEPOINT": true, "RELEASE": true,
}

// CheckReadOnly rejects SQL text containing a statement whose verb is in
// the deny list. The verb of a WITH statement is the keyword after its CTE
// list, and EXPLAIN ANALYZE is judged by the statement it runs. It is a
// token scan, not a parser.
func CheckReadOnly(sqlText string) error {
	for _, stmt := range splitStatements(sqlText) {
		verb := statementVerb(tokenize(stmt))
		if verb == "" {
			continue
		}
		if deniedVerbs[verb] {
			return fmt.Errorf("%w: %s", ErrStatementNotAllowed, verb)
		}
	}
	return nil
}

// splitStatements splits on semicolons outside quotes and comments.
func splitStatements(sqlText string) []string {
	var (
		stmts   []string
		current strings.Builder
		quote   rune
	)
	runes := []rune(sqlText)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0:
			current.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
			current.WriteRune(r)
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			current.WriteRune('\n')
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
			current.WriteRune(' ')
		case r == ';':
			stmts = append(stmts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	stmts = append(stmts, current.String())
	return stmts
}

// tokenize returns upper-cased words and single punctuation runes. Quoted
// strings and identifiers collapse to their quote character.
func tokenize(stmt string) []string {
	var toks []string
	runes := []rune(stmt)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\'' || r == '"':
			j := i + 1
			for j < len(runes) && runes[j] != r {
				j++
			}
			toks = append(toks, string(r))
			i = j + 1
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			toks = append(toks, strings.ToUpper(string(runes[i:j])))
			i = j
		default:
			toks = append(toks, string(r))
			i++
		}
	}
	return toks
}

func statementVerb(toks []string) string {
	i := 0
	for i < len(toks) && toks[i] == "(" {
		i++
	}
	if i >= len(toks) {
		return ""
	}
	switch toks[i] {
	case "WITH":
		return verbAfterCTEs(toks[i+1:])
	case "EXPLAIN":
		rest := toks[i+1:]
		if len(rest) > 0 && rest[0] == "ANALYZE" {
			return statementVerb(rest[1:])
		}
		return "EXPLAIN"
	}
	return toks[i]
}

// verbAfterCTEs finds the first token that follows a top-level closing
// parenthesis and does not continue the CTE list.
func verbAfterCTEs(toks []string) string {
	depth := 0
	for i, t := range toks {
		switch t {
		case "(":
			depth++
		case ")":
			depth--
			if depth != 0 || i+1 >= len(toks) {
				continue
			}
			switch toks[i+1] {
			case ",", "AS", "(", ")":
				continue
			default:
				return statementVerb(toks[i+1:])
			}
		}
	}
	return ""
}
