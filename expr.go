package chainz

import (
	"fmt"
	"go/scanner"
	"go/token"
	"slices"
	"strconv"
	"strings"
)

// Compile builds a pipeline from chained member syntax:
//
//	p, err := chainz.Compile(`TrimSpace.ToLower().Split(" ").Join("-")`)
//
// A bare name records a property step; parentheses directly after a name
// attach call arguments to the step that name just recorded. Arguments are
// Go literals (strings, runes, integers, floats, true, false, nil).
// Brackets read an index or an arbitrary key: items[0], row["first name"].
//
// The protected operations are understood as themselves rather than as
// member names: fallback(v) records a fallback, call(args...) records a
// call step and pipe("name", args...) records an explicit property step.
// Any other protected name (run, toFunction, ...) is rejected with
// ErrProtectedName; use brackets or Prop to reach a member with such a name.
func Compile(expr string) (*Pipeline, error) {
	return New().Extend(expr)
}

// MustCompile is like Compile but panics if the expression is invalid.
func MustCompile(expr string) *Pipeline {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Extend returns a new pipeline with the steps of expr appended.
func (p *Pipeline) Extend(expr string) (*Pipeline, error) {
	steps, err := parseExpr(expr)
	if err != nil {
		return nil, err
	}
	return &Pipeline{steps: slices.Concat(p.list(), steps)}, nil
}

type exprParser struct {
	err   error
	file  *token.File
	src   string
	lit   string
	steps []Step
	scan  scanner.Scanner
	pos   token.Pos
	tok   token.Token
}

func parseExpr(src string) ([]Step, error) {
	p := &exprParser{src: src}
	p.file = token.NewFileSet().AddFile("expr", -1, len(src))
	p.scan.Init(p.file, []byte(src), p.scanError, 0)
	p.next()
	p.parseChain()
	if p.err != nil {
		return nil, p.err
	}
	return p.steps, nil
}

func (p *exprParser) scanError(pos token.Position, msg string) {
	if p.err == nil {
		p.err = &SyntaxError{Expr: p.src, Offset: pos.Offset, Msg: msg}
	}
}

func (p *exprParser) fail(format string, args ...any) {
	if p.err == nil {
		p.err = &SyntaxError{Expr: p.src, Offset: p.offset(), Msg: fmt.Sprintf(format, args...)}
	}
}

func (p *exprParser) offset() int {
	if !p.pos.IsValid() {
		return len(p.src)
	}
	return p.file.Offset(p.pos)
}

// next advances to the next token, dropping automatic semicolons.
func (p *exprParser) next() {
	for {
		p.pos, p.tok, p.lit = p.scan.Scan()
		if p.tok != token.SEMICOLON || p.lit != "\n" {
			return
		}
	}
}

func (p *exprParser) describe() string {
	switch {
	case p.tok == token.EOF:
		return "end of expression"
	case p.lit != "":
		return strconv.Quote(p.lit)
	default:
		return strconv.Quote(p.tok.String())
	}
}

func (p *exprParser) parseChain() {
	if p.tok == token.EOF {
		p.fail("empty expression")
		return
	}
	if p.tok == token.PERIOD {
		p.next()
	}
	if p.tok == token.LBRACK {
		p.parseIndex()
	} else {
		p.parseLink()
	}
	for p.err == nil {
		switch p.tok {
		case token.EOF:
			return
		case token.PERIOD:
			p.next()
			if p.tok == token.LBRACK {
				// Pipeline.String separates index steps with a period too.
				p.parseIndex()
			} else {
				p.parseLink()
			}
		case token.LBRACK:
			p.parseIndex()
		default:
			p.fail("unexpected %s", p.describe())
		}
	}
}

func (p *exprParser) parseLink() {
	if p.tok != token.IDENT && !p.tok.IsKeyword() {
		p.fail("expected member name, got %s", p.describe())
		return
	}
	name, at := p.lit, p.offset()
	p.next()

	if IsProtected(name) {
		p.parseOperation(name, at)
		return
	}
	p.record(PropertyOf(name))
}

// record appends step to the draft and attaches a directly following
// argument list to it. The draft is private to the parser, so attaching
// never touches a pipeline that has been handed out.
func (p *exprParser) record(step Step) {
	p.steps = append(p.steps, step)
	if p.tok != token.LPAREN {
		return
	}
	args := p.parseArgs()
	if p.err == nil {
		p.steps[len(p.steps)-1].Args = newArgs(args)
	}
}

func (p *exprParser) parseOperation(name string, at int) {
	op := strings.ToLower(name)
	if op != "fallback" && op != "call" && op != "pipe" {
		p.err = fmt.Errorf("%w: %q at offset %d", ErrProtectedName, name, at)
		return
	}
	if p.tok != token.LPAREN {
		p.fail("%s requires an argument list", name)
		return
	}
	args := p.parseArgs()
	if p.err != nil {
		return
	}

	switch op {
	case "fallback":
		if len(args) != 1 {
			p.fail("fallback takes exactly one argument, got %d", len(args))
			return
		}
		p.steps = append(p.steps, FallbackOf(args[0]))
	case "call":
		p.steps = append(p.steps, FunctionOf(callCurrent, args...).withLabel("call"))
	case "pipe":
		if len(args) == 0 {
			p.fail("pipe requires an action")
			return
		}
		step, err := classify(args[0], args[1:])
		if err != nil {
			p.err = err
			return
		}
		p.steps = append(p.steps, step)
	}
}

func (p *exprParser) parseIndex() {
	p.next()
	key := p.parseLiteral()
	if p.err != nil {
		return
	}
	switch key.(type) {
	case int, string:
	default:
		p.fail("index must be an integer or a string")
		return
	}
	if p.tok != token.RBRACK {
		p.fail("expected ], got %s", p.describe())
		return
	}
	p.next()
	p.record(PropertyOf(key))
}

func (p *exprParser) parseArgs() []any {
	p.next()
	args := []any{}
	if p.tok == token.RPAREN {
		p.next()
		return args
	}
	for {
		v := p.parseLiteral()
		if p.err != nil {
			return nil
		}
		args = append(args, v)
		switch p.tok {
		case token.COMMA:
			p.next()
			if p.tok == token.RPAREN {
				p.next()
				return args
			}
		case token.RPAREN:
			p.next()
			return args
		default:
			p.fail("expected , or ), got %s", p.describe())
			return nil
		}
	}
}

func (p *exprParser) parseLiteral() any {
	negative := false
	if p.tok == token.SUB {
		negative = true
		p.next()
	}

	var v any
	switch p.tok {
	case token.INT:
		n, err := strconv.ParseInt(p.lit, 0, 64)
		if err != nil {
			p.fail("invalid integer %s", p.lit)
			return nil
		}
		if negative {
			n = -n
		}
		v = int(n)
	case token.FLOAT:
		f, err := strconv.ParseFloat(strings.ReplaceAll(p.lit, "_", ""), 64)
		if err != nil {
			p.fail("invalid number %s", p.lit)
			return nil
		}
		if negative {
			f = -f
		}
		v = f
	case token.STRING, token.CHAR:
		if negative {
			p.fail("unexpected - before %s", p.describe())
			return nil
		}
		s, err := unquote(p.tok, p.lit)
		if err != nil {
			p.fail("invalid literal %s", p.lit)
			return nil
		}
		v = s
	case token.IDENT:
		switch {
		case negative:
			p.fail("unexpected - before %s", p.describe())
			return nil
		case p.lit == "true":
			v = true
		case p.lit == "false":
			v = false
		case p.lit == "nil" || p.lit == "null":
			v = nil
		default:
			p.fail("unknown identifier %s", p.lit)
			return nil
		}
	default:
		p.fail("expected literal, got %s", p.describe())
		return nil
	}
	p.next()
	return v
}

func unquote(tok token.Token, lit string) (string, error) {
	if tok == token.CHAR {
		r, _, _, err := strconv.UnquoteChar(lit[1:len(lit)-1], '\'')
		if err != nil {
			return "", err
		}
		return string(r), nil
	}
	return strconv.Unquote(lit)
}
