package formula

import (
	"strconv"
	"strings"
)

// Binding powers, loosest first.
const (
	bpNone = iota
	bpWhere
	bpOr
	bpAnd // also the operand of not
	bpCompare
	bpIn
	bpConcat
	bpAdd
	bpMul
	bpMod // also the operand of unary minus
	bpPow
	bpDice
	bpDot
	bpIndex
)

var infixPower = map[string]int{
	"where": bpWhere,
	"or":    bpOr,
	"and":   bpAnd,
	"=":     bpCompare, "!=": bpCompare, "<": bpCompare, ">": bpCompare, "<=": bpCompare, ">=": bpCompare,
	"in": bpIn,
	"~":  bpConcat,
	"+":  bpAdd, "-": bpAdd,
	"*": bpMul, "/": bpMul,
	"%": bpMod,
	"^": bpPow,
	"d": bpDice,
	".": bpDot,
}

type parser struct {
	src      string
	toks     []Token
	pos      int
	table    *Table
	filename string
	line     int
}

func parse(s Source, table *Table) (Expression, error) {
	all, err := Tokenize(s.Text)
	if err != nil {
		return nil, err
	}
	p := &parser{src: s.Text, table: table, filename: s.Filename, line: s.Line}
	for _, t := range all {
		if t.Type != TokenWhitespace {
			p.toks = append(p.toks, t)
		}
	}
	for p.peekIs(TokenKeyword, "def") {
		if err := p.def(); err != nil {
			return nil, err
		}
	}
	if p.done() {
		return &constExpr{v: Null}, nil
	}
	e, err := p.expr(bpNone)
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, p.errAt(p.toks[p.pos], "unexpected %q", p.text(p.toks[p.pos]))
	}
	return e, nil
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) text(t Token) string { return t.Text(p.src) }

func (p *parser) peekIs(typ TokenType, text string) bool {
	if p.done() {
		return false
	}
	t := p.toks[p.pos]
	return t.Type == typ && (text == "" || p.text(t) == text)
}

func (p *parser) errAt(t Token, format string, args ...any) error {
	e := errorf(ParseError, format, args...)
	e.relLine = t.Line
	return e
}

func (p *parser) errEOF(format string, args ...any) error {
	e := errorf(ParseError, format, args...)
	if n := len(p.toks); n > 0 {
		e.relLine = p.toks[n-1].Line
	}
	return e
}

func (p *parser) expect(typ TokenType, text string) (Token, error) {
	if p.done() {
		return Token{}, p.errEOF("unexpected end of formula, expected %q", text)
	}
	t := p.toks[p.pos]
	if t.Type != typ || (text != "" && p.text(t) != text) {
		return Token{}, p.errAt(t, "expected %q, got %q", text, p.text(t))
	}
	p.pos++
	return t, nil
}

// def parses "def name(params) body;" and registers the function before its
// body is parsed so the body may recurse.
func (p *parser) def() error {
	p.pos++
	nameTok, err := p.expect(TokenIdentifier, "")
	if err != nil {
		return err
	}
	if _, err := p.expect(TokenLParen, "("); err != nil {
		return err
	}
	var params []string
	for !p.peekIs(TokenRParen, "") {
		if len(params) > 0 {
			if _, err := p.expect(TokenComma, ","); err != nil {
				return err
			}
		}
		t, err := p.expect(TokenIdentifier, "")
		if err != nil {
			return err
		}
		name := p.text(t)
		if p.peekIs(TokenOperator, "*") {
			p.pos++
			name += "*"
		}
		params = append(params, name)
	}
	p.pos++
	if p.done() {
		return p.errEOF("missing body for function %s", p.text(nameTok))
	}
	start := p.toks[p.pos]
	depth := 0
	for ; !p.done(); p.pos++ {
		switch t := p.toks[p.pos]; t.Type {
		case TokenLParen, TokenLSquare:
			depth++
		case TokenRParen, TokenRSquare:
			depth--
		case TokenSemicolon:
			if depth != 0 {
				continue
			}
			if p.table == nil {
				p.table = NewTable()
			}
			body := Source{
				Text:     p.src[start.Begin:t.Begin],
				Filename: p.filename,
				Line:     p.absLine(start.Line),
			}
			p.pos++
			_, err := p.table.AddCustom(p.text(nameTok), params, body, Source{})
			return err
		}
	}
	return p.errAt(nameTok, "function %s is missing its terminating ';'", p.text(nameTok))
}

func (p *parser) absLine(rel int) int {
	if p.line <= 0 {
		return 0
	}
	return p.line + rel - 1
}

func (p *parser) expr(minBP int) (Expression, error) {
	left, err := p.prefix()
	if err != nil {
		return nil, err
	}
	for !p.done() {
		t := p.toks[p.pos]
		var bp int
		switch t.Type {
		case TokenOperator:
			bp = infixPower[p.text(t)]
		case TokenLSquare:
			bp = bpIndex
		}
		if bp == bpNone || bp <= minBP {
			break
		}
		p.pos++
		if left, err = p.infix(left, t, bp); err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *parser) infix(left Expression, t Token, bp int) (Expression, error) {
	op := p.text(t)
	switch {
	case t.Type == TokenLSquare:
		idx, err := p.expr(bpNone)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRSquare, "]"); err != nil {
			return nil, err
		}
		return &indexExpr{left: left, index: idx, line: t.Line}, nil
	case op == "where":
		return p.where(left)
	case op == "and" || op == "or":
		right, err := p.expr(bp)
		if err != nil {
			return nil, err
		}
		return &logicalExpr{and: op == "and", left: left, right: right}, nil
	case op == ".":
		right, err := p.expr(bpDot)
		if err != nil {
			return nil, err
		}
		return &dotExpr{left: left, right: right, line: t.Line}, nil
	}
	rbp := bp
	if op == "^" {
		rbp = bp - 1
	}
	right, err := p.expr(rbp)
	if err != nil {
		return nil, err
	}
	return &binaryExpr{op: op, left: left, right: right, line: t.Line}, nil
}

// where parses "name = expr" bindings separated by commas. A comma only
// continues the list when another "name =" follows.
func (p *parser) where(body Expression) (Expression, error) {
	w := &whereExpr{body: body}
	for {
		nameTok, err := p.expect(TokenIdentifier, "")
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenOperator, "="); err != nil {
			return nil, err
		}
		e, err := p.expr(bpWhere)
		if err != nil {
			return nil, err
		}
		w.names = append(w.names, p.text(nameTok))
		w.exprs = append(w.exprs, e)
		if !p.peekIs(TokenComma, "") || p.pos+2 >= len(p.toks) ||
			p.toks[p.pos+1].Type != TokenIdentifier || p.text(p.toks[p.pos+2]) != "=" {
			return w, nil
		}
		p.pos++
	}
}

func (p *parser) prefix() (Expression, error) {
	if p.done() {
		return nil, p.errEOF("unexpected end of formula")
	}
	t := p.toks[p.pos]
	p.pos++
	text := p.text(t)
	switch t.Type {
	case TokenInteger:
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, p.errAt(t, "bad integer %q", text)
		}
		return &constExpr{v: Int(n)}, nil
	case TokenDecimal:
		d, err := parseDecimal(text)
		if err != nil {
			return nil, p.errAt(t, "bad decimal %q", text)
		}
		return &constExpr{v: Dec(d)}, nil
	case TokenString:
		s := strings.ReplaceAll(text[1:len(text)-1], "[']", "'")
		return &constExpr{v: Str(s)}, nil
	case TokenIdentifier:
		if p.peekIs(TokenLParen, "") {
			return p.call(t)
		}
		return &identExpr{name: text}, nil
	case TokenKeyword:
		if text == "functions" {
			return &functionsExpr{table: p.table}, nil
		}
		return nil, p.errAt(t, "def is only allowed at the start of a formula")
	case TokenLParen:
		e, err := p.expr(bpNone)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return e, nil
	case TokenLSquare:
		return p.collection(t)
	case TokenOperator:
		switch text {
		case "not":
			operand, err := p.expr(bpAnd)
			if err != nil {
				return nil, err
			}
			return &unaryExpr{op: "not", operand: operand, line: t.Line}, nil
		case "-":
			operand, err := p.expr(bpMod)
			if err != nil {
				return nil, err
			}
			if c, ok := operand.(*constExpr); ok && c.v.isNumeric() {
				c.v.n = -c.v.n
				return c, nil
			}
			return &unaryExpr{op: "-", operand: operand, line: t.Line}, nil
		}
	}
	return nil, p.errAt(t, "unexpected %q", text)
}

func (p *parser) call(name Token) (Expression, error) {
	p.pos++ // (
	var args []Expression
	for !p.peekIs(TokenRParen, "") {
		if len(args) > 0 {
			if _, err := p.expect(TokenComma, ","); err != nil {
				return nil, err
			}
		}
		a, err := p.expr(bpNone)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	p.pos++
	e, err := p.table.build(p.text(name), args, name.Line)
	if err != nil {
		return nil, atLine(err, name.Line)
	}
	return e, nil
}

// collection parses a list literal, a map literal or the empty map [->].
func (p *parser) collection(open Token) (Expression, error) {
	if p.peekIs(TokenRSquare, "") {
		p.pos++
		return &listExpr{}, nil
	}
	if p.peekIs(TokenPointer, "") {
		p.pos++
		if _, err := p.expect(TokenRSquare, "]"); err != nil {
			return nil, err
		}
		return &mapExpr{}, nil
	}
	var items, values []Expression
	isMap := false
	for {
		e, err := p.expr(bpNone)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 && p.peekIs(TokenPointer, "") {
			isMap = true
		}
		items = append(items, e)
		if isMap {
			if _, err := p.expect(TokenPointer, "->"); err != nil {
				return nil, err
			}
			v, err := p.expr(bpNone)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		if p.peekIs(TokenRSquare, "") {
			p.pos++
			break
		}
		if _, err := p.expect(TokenComma, ","); err != nil {
			if p.done() {
				return nil, p.errAt(open, "unterminated '['")
			}
			return nil, err
		}
	}
	if isMap {
		return &mapExpr{keys: items, values: values}, nil
	}
	return &listExpr{items: items}, nil
}

// parseDecimal reads digits.digits into thousandths, rounding half up on
// the fourth fractional digit.
func parseDecimal(text string) (int64, error) {
	whole, frac, _ := strings.Cut(text, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, err
	}
	roundUp := len(frac) > 3 && frac[3] >= '5'
	if len(frac) > 3 {
		frac = frac[:3]
	}
	for len(frac) < 3 {
		frac += "0"
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, err
	}
	n := w*DecimalScale + f
	if roundUp {
		n++
	}
	return n, nil
}
