package interp

import (
	"fmt"
	"strconv"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	num  uint64
	pos  int
}

func (t token) String() string {
	if t.kind == tokEOF {
		return "end of statement"
	}
	return "'" + t.text + "'"
}

var punctuators = []string{"->", ">>", "<<", "(", ")", "[", "]", "+", "-", "*", "&", "|", ",", "="}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// tokenize splits one statement (without its semicolon) into tokens.
func tokenize(src string) ([]token, error) {
	var toks []token
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && (isIdentStart(src[j]) || isDigit(src[j])) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], pos: i})
			i = j
		case isDigit(c):
			j := i + 1
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			n, err := strconv.ParseUint(src[i:j], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q at column %d: %w", src[i:j], i+1, err)
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:j], num: n, pos: i})
			i = j
		default:
			matched := false
			for _, p := range punctuators {
				if len(src)-i >= len(p) && src[i:i+len(p)] == p {
					toks = append(toks, token{kind: tokPunct, text: p, pos: i})
					i += len(p)
					matched = true
					break
				}
			}
			if !matched {
				return nil, fmt.Errorf("unexpected character %q at column %d", c, i+1)
			}
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(src)}), nil
}
