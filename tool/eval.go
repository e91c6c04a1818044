package tool

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// evaluate interprets a plain arithmetic expression: numbers, + - * / %,
// ^ for exponentiation, unary minus and parentheses. Anything else is either
// malformed input (CodeInvalidArgs) or a sandbox violation for alphabetic
// identifiers (CodeSandboxViolation).
func evaluate(expr string) (float64, error) {
	p := &exprParser{input: expr}
	v, err := p.parseExpr(0)
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, p.errAt("unexpected trailing input")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, NewToolError("sandbox", OpExecute, "result is not a finite number", CodeInvalidArgs)
	}
	return v, nil
}

const maxExprDepth = 64

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) errAt(msg string) error {
	return NewToolError("sandbox", OpExecute, fmt.Sprintf("%s at offset %d", msg, p.pos), CodeInvalidArgs)
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

// parseExpr handles + and - (left associative).
func (p *exprParser) parseExpr(depth int) (float64, error) {
	if depth > maxExprDepth {
		return 0, p.errAt("expression too deeply nested")
	}
	left, err := p.parseTerm(depth + 1)
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm(depth + 1)
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm(depth + 1)
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

// parseTerm handles *, / and % (left associative).
func (p *exprParser) parseTerm(depth int) (float64, error) {
	if depth > maxExprDepth {
		return 0, p.errAt("expression too deeply nested")
	}
	left, err := p.parsePower(depth + 1)
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parsePower(depth + 1)
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parsePower(depth + 1)
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, p.errAt("division by zero")
			}
			left /= right
		case '%':
			p.pos++
			right, err := p.parsePower(depth + 1)
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, p.errAt("modulo by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

// parsePower handles ^ (right associative).
func (p *exprParser) parsePower(depth int) (float64, error) {
	if depth > maxExprDepth {
		return 0, p.errAt("expression too deeply nested")
	}
	base, err := p.parseUnary(depth + 1)
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.peek() == '^' {
		p.pos++
		exp, err := p.parsePower(depth + 1)
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parseUnary(depth int) (float64, error) {
	p.skipSpace()
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary(depth + 1)
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parsePrimary(depth + 1)
}

func (p *exprParser) parsePrimary(depth int) (float64, error) {
	if depth > maxExprDepth {
		return 0, p.errAt("expression too deeply nested")
	}
	p.skipSpace()
	c := p.peek()
	switch {
	case c == '(':
		p.pos++
		v, err := p.parseExpr(depth + 1)
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, p.errAt("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case c >= '0' && c <= '9' || c == '.':
		return p.parseNumber()
	case unicode.IsLetter(rune(c)):
		return 0, NewToolError("sandbox", OpExecute, fmt.Sprintf("identifier %q not permitted", p.restWord()), CodeSandboxViolation)
	default:
		return 0, p.errAt("expected number or parenthesized expression")
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' || c == '.' || c == '_' {
			p.pos++
			continue
		}
		break
	}
	text := strings.ReplaceAll(p.input[start:p.pos], "_", "")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.pos = start
		return 0, p.errAt(fmt.Sprintf("malformed number %q", text))
	}
	return v, nil
}

func (p *exprParser) restWord() string {
	end := p.pos
	for end < len(p.input) && (unicode.IsLetter(rune(p.input[end])) || unicode.IsDigit(rune(p.input[end]))) {
		end++
	}
	return p.input[p.pos:end]
}
