package core

// Rationale tags the reason behind a routing decision. The set is closed:
// adding a tag requires a matching classifier rule and dispatch entry.
type Rationale string

const (
	// RationaleGreeting covers salutations and small talk.
	RationaleGreeting Rationale = "GREETING"
	// RationaleProductQuery covers catalog and availability questions.
	RationaleProductQuery Rationale = "PRODUCT_QUERY"
	// RationaleCalculation covers arithmetic the customer wants computed.
	RationaleCalculation Rationale = "CALCULATION"
	// RationaleAmbiguous marks low-confidence classifications that are
	// escalated to the human queue instead of dispatched.
	RationaleAmbiguous Rationale = "AMBIGUOUS"
	// RationaleSecurityFlag marks prompt-injection, instruction-disclosure or
	// unauthorized-execution patterns. The turn fails before any dispatch.
	RationaleSecurityFlag Rationale = "SECURITY_FLAG"
)

// RoutingDecision is the classifier's verdict for a single turn. It lives for
// the duration of the turn and is persisted only as audit state alongside the
// appended message.
type RoutingDecision struct {
	Query      string    `json:"query"`
	Specialist string    `json:"specialist"`
	Confidence float64   `json:"confidence"`
	Rationale  Rationale `json:"rationale"`
}
