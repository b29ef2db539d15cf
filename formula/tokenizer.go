package formula

import "strings"

// TokenType classifies a lexeme.
type TokenType int

const (
	TokenOperator TokenType = iota
	TokenKeyword            // def, functions
	TokenString
	TokenIdentifier
	TokenInteger
	TokenDecimal
	TokenPointer // ->
	TokenLParen
	TokenRParen
	TokenLSquare
	TokenRSquare
	TokenComma
	TokenSemicolon
	TokenWhitespace // spaces, newlines and #comments#
)

// Token is a classified span [Begin, End) of the source.
type Token struct {
	Type  TokenType
	Begin int
	End   int
	Line  int // 1-based
}

func (t Token) Text(src string) string { return src[t.Begin:t.End] }

type tokenRule struct {
	typ   TokenType
	match func(s string) int // length of the match at the start of s, 0 for none
}

// tokenRules is tried in order; the first rule that matches wins.
var tokenRules = []tokenRule{
	{TokenOperator, matchOperator},
	{TokenKeyword, matchWords("functions", "def")},
	{TokenString, matchString},
	{TokenIdentifier, matchIdentifier},
	{TokenInteger, matchNumber},
	{TokenPointer, matchLiteral("->")},
	{TokenLParen, matchLiteral("(")},
	{TokenRParen, matchLiteral(")")},
	{TokenLSquare, matchLiteral("[")},
	{TokenRSquare, matchLiteral("]")},
	{TokenComma, matchLiteral(",")},
	{TokenSemicolon, matchLiteral(";")},
	{TokenWhitespace, matchWhitespace},
}

var (
	wordOperators   = []string{"not", "and", "or", "where", "in"}
	symbolOperators = []string{"<=", ">=", "!=", "*", "+", "-", "^", "%", "/", "<", ">", "=", ".", "~"}
)

// Tokenize splits src into tokens, whitespace included so spans stay exact.
func Tokenize(src string) ([]Token, error) {
	var tokens []Token
	line := 1
	for pos := 0; pos < len(src); {
		rest := src[pos:]
		matched := false
		for _, r := range tokenRules {
			n := r.match(rest)
			if n == 0 {
				continue
			}
			typ := r.typ
			if typ == TokenInteger && strings.IndexByte(rest[:n], '.') >= 0 {
				typ = TokenDecimal
			}
			tokens = append(tokens, Token{Type: typ, Begin: pos, End: pos + n, Line: line})
			line += strings.Count(rest[:n], "\n")
			pos += n
			matched = true
			break
		}
		if !matched {
			e := errorf(TokenizerError, "unrecognized character %q at offset %d", rest[0], pos)
			if rest[0] == '\'' {
				e = errorf(TokenizerError, "unterminated string literal at offset %d", pos)
			}
			e.relLine = line
			return nil, e
		}
	}
	return tokens, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }

func wordAt(s, w string) bool {
	return strings.HasPrefix(s, w) && (len(s) == len(w) || !isIdentChar(s[len(w)]))
}

func matchOperator(s string) int {
	for _, w := range wordOperators {
		if wordAt(s, w) {
			return len(w)
		}
	}
	// The dice operator: a lone d not starting an identifier.
	if s[0] == 'd' && (len(s) == 1 || !isIdentStart(s[1])) {
		return 1
	}
	for _, op := range symbolOperators {
		if strings.HasPrefix(s, op) {
			if op == "-" && strings.HasPrefix(s, "->") {
				return 0
			}
			return len(op)
		}
	}
	return 0
}

func matchWords(words ...string) func(string) int {
	return func(s string) int {
		for _, w := range words {
			if wordAt(s, w) {
				return len(w)
			}
		}
		return 0
	}
}

func matchLiteral(lit string) func(string) int {
	return func(s string) int {
		if strings.HasPrefix(s, lit) {
			return len(lit)
		}
		return 0
	}
}

// matchString matches 'text', where ['] stands for a quote character.
func matchString(s string) int {
	if s[0] != '\'' {
		return 0
	}
	for i := 1; i < len(s); {
		if strings.HasPrefix(s[i:], "[']") {
			i += 3
			continue
		}
		if s[i] == '\'' {
			return i + 1
		}
		i++
	}
	return 0
}

func matchIdentifier(s string) int {
	if !isIdentStart(s[0]) {
		return 0
	}
	i := 1
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	return i
}

// matchNumber matches an integer, or a decimal when a dot and digits follow.
func matchNumber(s string) int {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == 0 {
		return 0
	}
	if i+1 < len(s) && s[i] == '.' && isDigit(s[i+1]) {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	return i
}

func matchWhitespace(s string) int {
	i := 0
	for i < len(s) {
		switch c := s[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '#':
			end := strings.IndexByte(s[i+1:], '#')
			if end < 0 {
				return i
			}
			i += end + 2
		default:
			return i
		}
	}
	return i
}
