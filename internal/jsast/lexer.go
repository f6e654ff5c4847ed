package jsast

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind uint8

const (
	tEOF tokenKind = iota
	tIdent
	tKeyword
	tNumber
	tString
	tPunct
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

var keywords = map[string]bool{
	"import": true, "export": true, "default": true, "from": true, "as": true,
	"const": true, "let": true, "var": true, "function": true, "class": true,
	"return": true, "await": true, "new": true, "this": true, "extends": true,
	"static": true,
}

// lexer tokenizes a pragmatic ESM subset: line/block comments, string
// literals with either quote style, decimal numbers, identifiers, and the
// punctuation the grammar in parser.go needs.
type lexer struct {
	src  string
	pos  int
	toks []token
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		l.skipTrivia()
		if l.pos >= len(l.src) {
			l.toks = append(l.toks, token{kind: tEOF})
			return l.toks, nil
		}
		c := l.src[l.pos]
		switch {
		case c == '"' || c == '\'':
			s, err := l.readString(c)
			if err != nil {
				return nil, err
			}
			l.toks = append(l.toks, token{kind: tString, text: s})
		case unicode.IsDigit(rune(c)):
			l.toks = append(l.toks, l.readNumber())
		case isIdentStart(c):
			name := l.readIdent()
			if keywords[name] {
				l.toks = append(l.toks, token{kind: tKeyword, text: name})
			} else {
				l.toks = append(l.toks, token{kind: tIdent, text: name})
			}
		default:
			p := l.readPunct()
			l.toks = append(l.toks, token{kind: tPunct, text: p})
		}
	}
}

func (l *lexer) skipTrivia() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*':
			l.pos += 2
			for l.pos+1 < len(l.src) && !(l.src[l.pos] == '*' && l.src[l.pos+1] == '/') {
				l.pos++
			}
			l.pos += 2
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || unicode.IsDigit(rune(c))
}

func (l *lexer) readIdent() string {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	return l.src[start:l.pos]
}

func (l *lexer) readNumber() token {
	start := l.pos
	for l.pos < len(l.src) && (unicode.IsDigit(rune(l.src[l.pos])) || l.src[l.pos] == '.') {
		l.pos++
	}
	text := l.src[start:l.pos]
	n, _ := strconv.ParseFloat(text, 64)
	return token{kind: tNumber, text: text, num: n}
}

func (l *lexer) readString(quote byte) (string, error) {
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.src) && l.src[l.pos] != quote {
		if l.src[l.pos] == '\\' && l.pos+1 < len(l.src) {
			l.pos++
		}
		b.WriteByte(l.src[l.pos])
		l.pos++
	}
	if l.pos >= len(l.src) {
		return "", fmt.Errorf("unterminated string literal")
	}
	l.pos++ // closing quote
	return b.String(), nil
}

var multiCharPuncts = []string{"=>", "==", "...", "*="}

func (l *lexer) readPunct() string {
	for _, p := range multiCharPuncts {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.pos += len(p)
			return p
		}
	}
	c := l.src[l.pos]
	l.pos++
	return string(c)
}
