package persist

import "strings"

type tokenKind int

const (
	tokIdentifier tokenKind = iota
	tokString
	tokIndentation
	tokAssignment
	tokExclamation
)

type token struct {
	kind tokenKind
	text string
	line int
}

// tokenise turns the raw `.obby` text into a flat token stream: identifiers,
// double-quoted strings (with escapes resolved), per-line leading
// indentation, `=`, and `!`. `#` starts a line comment; blank lines and
// other whitespace are dropped entirely rather than tokenised.
func tokenise(src string) ([]token, error) {
	var toks []token
	line := 1
	runes := []rune(src)
	i := 0

	for i < len(runes) {
		switch c := runes[i]; {
		case c == '\n':
			line++
			i++
			start := i
			for i < len(runes) && runes[i] != '\n' && isSpace(runes[i]) {
				i++
			}
			// Every non-blank line carries an indentation token, even a
			// zero-length one at the root: deserialiseObject relies on
			// seeing exactly one such token before each object.
			if i < len(runes) && runes[i] != '\n' {
				toks = append(toks, token{kind: tokIndentation, text: string(runes[start:i]), line: line})
			}
		case c == '"':
			tok, next, endLine, err := tokeniseString(runes, i, line)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			line = endLine
			i = next
		case c == '#':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case isIdentStart(c):
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdentifier, text: string(runes[start:i]), line: line})
		case isSpace(c):
			i++
		case c == '=':
			toks = append(toks, token{kind: tokAssignment, text: "=", line: line})
			i++
		case c == '!':
			toks = append(toks, token{kind: tokExclamation, text: "!", line: line})
			i++
		default:
			return nil, errAt(line, "unexpected character %q", c)
		}
	}
	return toks, nil
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' || r == '\r' }

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

func isIdentRune(r rune) bool { return isIdentStart(r) }

// tokeniseString scans a double-quoted string literal starting at runes[i]
// (the opening quote) and returns the resulting token, the index just past
// the closing quote, and the line the scan ended on (strings may embed
// literal newlines).
func tokeniseString(runes []rune, i, line int) (token, int, int, error) {
	origLine := line
	i++ // skip opening quote
	var b strings.Builder
	escaped := false
	for i < len(runes) {
		r := runes[i]
		if r == '\n' {
			line++
		}
		if !escaped {
			if r == '\\' {
				escaped = true
				i++
				continue
			}
			if r == '"' {
				i++
				return token{kind: tokString, text: b.String(), line: origLine}, i, line, nil
			}
			b.WriteRune(r)
			i++
			continue
		}
		switch r {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		default:
			return token{}, 0, 0, errAt(line, "unexpected escape sequence: \\%c", r)
		}
		escaped = false
		i++
	}
	return token{}, 0, 0, errAt(origLine, "string not closed")
}

// detokenise renders a token stream back into `.obby` text: each
// tokIndentation token starts a new line, identifiers within a line get a
// single separating space, strings are re-escaped and quoted.
func detokenise(toks []token) string {
	var b strings.Builder
	lineBegin := true
	for _, t := range toks {
		switch t.kind {
		case tokIndentation:
			b.WriteByte('\n')
			b.WriteString(t.text)
			lineBegin = true
		case tokString:
			b.WriteByte('"')
			b.WriteString(escapeString(t.text))
			b.WriteByte('"')
			lineBegin = false
		case tokIdentifier:
			if !lineBegin {
				b.WriteByte(' ')
			}
			b.WriteString(t.text)
			lineBegin = false
		default:
			b.WriteString(t.text)
			if t.kind != tokExclamation {
				lineBegin = false
			}
		}
	}
	return b.String()
}

func escapeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\t", `\t`, `"`, `\"`)
	return r.Replace(s)
}
