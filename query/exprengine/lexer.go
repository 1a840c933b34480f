package exprengine

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokQuotedIdent
	tokString
	tokNumber
	tokSymbol
	tokComma
	tokBind
)

type token struct {
	kind   tokenKind
	text   string
	number float64
}

// lex tokenizes query text. Identifiers may contain dots for row paths;
// single quotes delimit string literals, double quotes delimit aliases.
func lex(input string) ([]token, error) {
	var toks []token
	i := 0

	for i < len(input) {
		c := rune(input[i])

		switch {
		case unicode.IsSpace(c):
			i++

		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ","})
			i++

		case c == '?':
			toks = append(toks, token{kind: tokBind, text: "?"})
			i++

		case c == '\'':
			end := strings.IndexByte(input[i+1:], '\'')
			if end < 0 {
				return nil, fmt.Errorf("unterminated string literal at offset %d", i)
			}
			toks = append(toks, token{kind: tokString, text: input[i+1 : i+1+end]})
			i += end + 2

		case c == '"':
			end := strings.IndexByte(input[i+1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("unterminated quoted identifier at offset %d", i)
			}
			toks = append(toks, token{kind: tokQuotedIdent, text: input[i+1 : i+1+end]})
			i += end + 2

		case c == '=' || c == '!' || c == '<' || c == '>':
			sym := string(c)
			if i+1 < len(input) {
				two := input[i : i+2]
				switch two {
				case "==", "!=", "<>", "<=", ">=":
					sym = two
				}
			}
			if sym == "!" {
				return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
			}
			toks = append(toks, token{kind: tokSymbol, text: sym})
			i += len(sym)

		case unicode.IsDigit(c) || (c == '-' && i+1 < len(input) && unicode.IsDigit(rune(input[i+1]))):
			j := i + 1
			for j < len(input) && (unicode.IsDigit(rune(input[j])) || input[j] == '.') {
				j++
			}
			num, err := strconv.ParseFloat(input[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q at offset %d", input[i:j], i)
			}
			toks = append(toks, token{kind: tokNumber, text: input[i:j], number: num})
			i = j

		case isIdentRune(c):
			j := i + 1
			for j < len(input) && isIdentRune(rune(input[j])) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: input[i:j]})
			i = j

		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
		}
	}

	return append(toks, token{kind: tokEOF}), nil
}

func isIdentRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.' || c == '$'
}
