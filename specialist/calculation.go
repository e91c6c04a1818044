package specialist

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/deskmesh/deskmesh/core"
	"github.com/deskmesh/deskmesh/model"
	"github.com/deskmesh/deskmesh/tool"
)

// Calculation performs arithmetic the customer asks for, via the sandbox
// adapter. It extracts the math from conversational phrasing ("1299 plus 8%
// tax") and, for follow-up turns that start with an operator ("plus 8% tax"),
// pulls the base figure from the most recent number in the session history.
type Calculation struct {
	sandbox tool.Adapter
}

// NewCalculation constructs the calculation specialist around the sandbox
// adapter.
func NewCalculation(sandbox tool.Adapter) *Calculation {
	return &Calculation{sandbox: sandbox}
}

// Name implements Specialist.
func (c *Calculation) Name() string { return CalculationName }

// Capability implements Specialist.
func (c *Calculation) Capability() Capability { return CapabilityToolAugmented }

// Execute implements Specialist.
func (c *Calculation) Execute(ctx context.Context, query string, history []core.Message) (*Result, error) {
	expr := ExtractExpression(query, history)
	if expr == "" {
		text := "I couldn't find a calculation in that request. Could you restate the numbers?"
		return &Result{Text: text, Tokens: model.EstimateTokens(query + text)}, nil
	}

	res, err := c.sandbox.Invoke(ctx, tool.OpExecute, map[string]any{"code": expr})
	if err != nil {
		return nil, fmt.Errorf("calculation specialist: %w", err)
	}
	out, ok := res.(*tool.ExecutionResult)
	if !ok {
		return nil, fmt.Errorf("calculation specialist: unexpected sandbox payload %T", res)
	}

	text := fmt.Sprintf("That comes to %s.", out.Output)
	return &Result{Text: text, Tokens: model.EstimateTokens(query + text)}, nil
}

var (
	wordOps = []struct {
		re *regexp.Regexp
		op string
	}{
		{regexp.MustCompile(`\bplus\b`), "+"},
		{regexp.MustCompile(`\bminus\b`), "-"},
		{regexp.MustCompile(`\bmultiplied by\b`), "*"},
		{regexp.MustCompile(`\btimes\b`), "*"},
		{regexp.MustCompile(`\bdivided by\b`), "/"},
	}

	skuToken   = regexp.MustCompile(`\bsku-?\d+\b`)
	percentOf  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%\s*of\s*(\d+(?:\.\d+)?)`)
	plusPct    = regexp.MustCompile(`(\d+(?:\.\d+)?|\))\s*\+\s*(\d+(?:\.\d+)?)\s*%`)
	minusPct   = regexp.MustCompile(`(\d+(?:\.\d+)?|\))\s*-\s*(\d+(?:\.\d+)?)\s*%`)
	numberRe   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	priceRe    = regexp.MustCompile(`\$\s*(\d+(?:\.\d+)?)`)
	leadingOp  = regexp.MustCompile(`^\s*[+*/]`)
	multiSpace = regexp.MustCompile(`\s+`)
)

// ExtractExpression turns conversational phrasing into a sandbox-safe
// arithmetic expression. It returns "" when the query carries no usable math.
func ExtractExpression(query string, history []core.Message) string {
	s := strings.ToLower(query)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = skuToken.ReplaceAllString(s, " ")
	for _, w := range wordOps {
		s = w.re.ReplaceAllString(s, " "+w.op+" ")
	}

	// "8% of 250" resolves before letters are stripped, "of" included.
	s = percentOf.ReplaceAllString(s, "($1 / 100) * $2")

	// Drop everything that is not arithmetic.
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || strings.ContainsRune("+-*/%^(). ", r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	s = strings.TrimSpace(multiSpace.ReplaceAllString(b.String(), " "))

	// Follow-up turns like "+ 8% tax" reference the last figure mentioned.
	if leadingOp.MatchString(s) {
		if base := lastNumber(history); base != "" {
			s = base + " " + s
		}
	}

	s = plusPct.ReplaceAllString(s, "$1 * (1 + $2 / 100)")
	s = minusPct.ReplaceAllString(s, "$1 * (1 - $2 / 100)")

	// Trim orphaned operators and punctuation left at the edges.
	s = strings.Trim(s, " .+*/%")
	if !strings.ContainsAny(s, "0123456789") {
		return ""
	}
	return s
}

// lastNumber scans the history backwards for the most recent numeric figure,
// preferring dollar amounts over bare numbers so stock counts do not shadow
// the price being discussed.
func lastNumber(history []core.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		content := strings.ReplaceAll(history[i].Content, ",", "")
		if prices := priceRe.FindAllStringSubmatch(content, -1); len(prices) > 0 {
			return prices[len(prices)-1][1]
		}
		if matches := numberRe.FindAllString(content, -1); len(matches) > 0 {
			return matches[len(matches)-1]
		}
	}
	return ""
}
