package coordinator

import (
	"regexp"
	"strings"

	"github.com/deskmesh/deskmesh/core"
	"github.com/deskmesh/deskmesh/specialist"
)

// Security patterns checked before any routing. A match fails the turn
// outright; no specialist or tool is ever invoked for a flagged query.
var securityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+|any\s+)?(previous|prior|above|earlier)\s+instructions`),
	regexp.MustCompile(`(?i)(reveal|show|print|display|disclose|leak|repeat)\b.{0,40}\b(system\s+prompt|your\s+(instructions|prompt|rules)|initial\s+(prompt|instructions))`),
	regexp.MustCompile(`(?i)(what\s+(is|are)|tell\s+me)\s+your\s+(system\s+prompt|instructions)`),
	regexp.MustCompile(`(?i)(run|execute)\b.{0,30}\b(code|script|command|shell)`),
	regexp.MustCompile(`(?i)(import\s+os|subprocess|__import__|rm\s+-rf|sudo\s)`),
}

var (
	greetingRe = regexp.MustCompile(`(?i)\b(hi|hiya|hello|hey|howdy|greetings|good\s+(morning|afternoon|evening)|thanks|thank\s+you|bye|goodbye)\b`)

	calcSignals = []*regexp.Regexp{
		regexp.MustCompile(`\d\s*[+\-*/^]\s*\d`),
		regexp.MustCompile(`\d+(\.\d+)?\s*(%|percent)`),
		regexp.MustCompile(`(?i)\b(plus|minus|times|divided\s+by|multiplied\s+by|sum\s+of|total\s+of)\b`),
		regexp.MustCompile(`(?i)\b(calculate|compute|how\s+much\s+is|what'?s?\s+\d)`),
	}

	productSignals = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(price|cost|pricing)\b`),
		regexp.MustCompile(`(?i)\b(stock|inventory|availab\w*|restock)\b`),
		regexp.MustCompile(`(?i)\b(product|catalog|model|spec|specs|warranty)\b`),
		regexp.MustCompile(`(?i)\b(buy|purchase|order|shipping)\b`),
		regexp.MustCompile(`(?i)\bsku[- ]?\d+\b`),
		regexp.MustCompile(`(?i)\b(laptop|phone|iphone|headphones|monitor|keyboard|tablet|watch)\b`),
	}
)

// ClassifierOptions configures NewClassifier.
type ClassifierOptions struct {
	// Threshold is the minimum confidence for dispatch. Decisions below it
	// are downgraded to AMBIGUOUS and escalated.
	Threshold float64
}

// Classifier is a deterministic rule classifier producing one RoutingDecision
// per turn. Rules are ordered: security patterns first, then the scored
// greeting/calculation/product signals, then the ambiguous default.
type Classifier struct {
	threshold float64
}

// NewClassifier creates a classifier with a default dispatch threshold of 0.65.
func NewClassifier(optFns ...func(o *ClassifierOptions)) *Classifier {
	opts := ClassifierOptions{Threshold: 0.65}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Classifier{threshold: opts.Threshold}
}

// Threshold returns the dispatch confidence threshold.
func (c *Classifier) Threshold() float64 { return c.threshold }

// Classify scores the query against the rule set and returns the routing
// decision. History feeds follow-up detection: a query that opens with an
// arithmetic operator leans on the previous turn for its missing operand.
func (c *Classifier) Classify(query string, history []core.Message) core.RoutingDecision {
	for _, p := range securityPatterns {
		if p.MatchString(query) {
			return core.RoutingDecision{Query: query, Confidence: 1.0, Rationale: core.RationaleSecurityFlag}
		}
	}

	calcScore := score(query, calcSignals)
	productScore := score(query, productSignals)
	if len(history) > 0 && leadingOperatorRe.MatchString(query) {
		calcScore += 0.1
	}
	greetingScore := 0.0
	if greetingRe.MatchString(query) {
		// A bare salutation is near-certain; buried in a longer query the
		// other signals take over.
		if len(strings.Fields(query)) <= 4 && calcScore == 0 && productScore == 0 {
			greetingScore = 0.95
		} else {
			greetingScore = 0.6
		}
	}

	d := core.RoutingDecision{Query: query, Rationale: core.RationaleAmbiguous, Confidence: 0.3}
	if productScore >= calcScore && productScore >= greetingScore && productScore > 0 {
		d.Specialist, d.Rationale, d.Confidence = specialist.ProductName, core.RationaleProductQuery, productScore
	} else if calcScore >= greetingScore && calcScore > 0 {
		d.Specialist, d.Rationale, d.Confidence = specialist.CalculationName, core.RationaleCalculation, calcScore
	} else if greetingScore > 0 {
		d.Specialist, d.Rationale, d.Confidence = specialist.GeneralName, core.RationaleGreeting, greetingScore
	}
	if d.Confidence < c.threshold {
		d.Specialist, d.Rationale = "", core.RationaleAmbiguous
	}
	return d
}

var leadingOperatorRe = regexp.MustCompile(`(?i)^\s*(plus|minus|times|divided\s+by|multiplied\s+by|[+\-*/])\b`)

func score(query string, signals []*regexp.Regexp) float64 {
	hits := 0
	for _, p := range signals {
		if p.MatchString(query) {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	s := 0.6 + 0.1*float64(hits)
	if s > 0.95 {
		s = 0.95
	}
	return s
}
