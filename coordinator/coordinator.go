package coordinator

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/deskmesh/deskmesh/core"
	"github.com/deskmesh/deskmesh/logging"
	"github.com/deskmesh/deskmesh/memory"
	"github.com/deskmesh/deskmesh/quality"
	"github.com/deskmesh/deskmesh/specialist"
)

// AgentEscalation is the agent label reported when a turn is handed to the
// human queue instead of a specialist.
const AgentEscalation = "escalation"

const (
	defaultFallbackText = "I'm sorry, I wasn't able to process that request. Please try again in a moment."
	securityResponse    = "I can't help with that request."
)

// TurnResult is the outcome of one turn, shaped for the external turn
// response interface.
type TurnResult struct {
	Response   string    `json:"response"`
	AgentUsed  string    `json:"agent_used"`
	TokensUsed int       `json:"tokens_used"`
	LatencyMS  int64     `json:"latency_ms"`
	State      TurnState `json:"state"`
	Ticket     string    `json:"ticket,omitempty"`
}

// Options configures New.
type Options struct {
	// Classifier produces the routing decision. Defaults to NewClassifier().
	Classifier *Classifier
	// Tracker receives one quality record per terminal turn. Optional.
	Tracker *quality.Tracker
	// Breaker guards specialist health. Defaults to NewBreaker().
	Breaker *quality.Breaker
	// Sink receives escalation signals. Defaults to an in-process queue.
	Sink EscalationSink
	// Preferences stores harvested customer preferences. Optional.
	Preferences memory.PreferenceStore
	// Logger defaults to no-op.
	Logger logging.Logger
	// HistoryWindow bounds the context messages handed to specialists.
	HistoryWindow int
	// SpecialistTimeout is the per-specialist execution deadline.
	SpecialistTimeout time.Duration
	// Retries is how many times a failed specialist execution is retried
	// before falling back.
	Retries int
	// FallbackText is the apology returned when retries are exhausted.
	FallbackText string
}

// Coordinator classifies each inbound query, dispatches it to a specialist or
// the human queue, and drives the per-turn state machine. It holds no
// per-session state itself; everything durable lives in the SessionStore, so
// any coordinator instance can serve any session.
type Coordinator struct {
	store      core.SessionStore
	registry   *specialist.Registry
	classifier *Classifier
	tracker    *quality.Tracker
	breaker    *quality.Breaker
	sink       EscalationSink
	prefs      memory.PreferenceStore
	logger     logging.Logger

	historyWindow     int
	specialistTimeout time.Duration
	retries           int
	fallbackText      string
}

// New creates a coordinator over the given store and specialist registry.
func New(store core.SessionStore, registry *specialist.Registry, optFns ...func(o *Options)) *Coordinator {
	opts := Options{
		Classifier:        NewClassifier(),
		Breaker:           quality.NewBreaker(),
		Sink:              NewQueueSink(),
		Logger:            logging.NewNoOpLogger(),
		HistoryWindow:     10,
		SpecialistTimeout: 10 * time.Second,
		Retries:           1,
		FallbackText:      defaultFallbackText,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Coordinator{
		store:             store,
		registry:          registry,
		classifier:        opts.Classifier,
		tracker:           opts.Tracker,
		breaker:           opts.Breaker,
		sink:              opts.Sink,
		prefs:             opts.Preferences,
		logger:            opts.Logger,
		historyWindow:     opts.HistoryWindow,
		specialistTimeout: opts.SpecialistTimeout,
		retries:           opts.Retries,
		fallbackText:      opts.FallbackText,
	}
}

// HandleTurn runs one turn for the session: classify, dispatch, execute with
// retry, persist the outcome and emit exactly one quality record. The user
// always receives a response; an error return means the store itself failed
// and nothing could be persisted.
func (c *Coordinator) HandleTurn(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	start := time.Now()
	t := newTurn()

	sess, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	turnNo := len(sess.Messages)/2 + 1
	history := sess.History(c.historyWindow)

	if err := c.store.Append(ctx, sessionID, core.NewUserMessage(text), nil, 0); err != nil {
		return nil, fmt.Errorf("persisting user message for session %s: %w", sessionID, err)
	}
	c.harvestPreferences(ctx, sessionID, text)

	decision := c.classifier.Classify(text, history)
	t.to(StateClassified)
	c.logger.Debug("turn classified",
		"session_id", sessionID, "rationale", string(decision.Rationale),
		"specialist", decision.Specialist, "confidence", decision.Confidence)

	if decision.Rationale == core.RationaleSecurityFlag {
		c.logger.Warn("security pattern detected, failing turn", "session_id", sessionID)
		return c.fail(ctx, t, sessionID, turnNo, &decision, AgentEscalation, securityResponse, start)
	}
	if decision.Rationale == core.RationaleAmbiguous {
		return c.escalate(ctx, t, sessionID, turnNo, &decision, history, text, start)
	}
	if !c.breaker.Allow(decision.Specialist) {
		c.logger.Warn("circuit open, escalating", "session_id", sessionID, "specialist", decision.Specialist)
		return c.escalate(ctx, t, sessionID, turnNo, &decision, history, text, start)
	}
	sp, err := c.registry.Lookup(decision.Specialist)
	if err != nil {
		c.logger.Error("routed to unregistered specialist", "specialist", decision.Specialist)
		return c.escalate(ctx, t, sessionID, turnNo, &decision, history, text, start)
	}

	t.to(StateDispatched)
	history = c.injectPreferences(ctx, sessionID, history)

	t.to(StateExecuting)
	var res *specialist.Result
	var execErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		res, execErr = c.execute(ctx, sp, text, history)
		if execErr == nil {
			break
		}
		c.breaker.Record(decision.Specialist, false)
		c.logger.Warn("specialist execution failed",
			"session_id", sessionID, "specialist", decision.Specialist,
			"attempt", attempt+1, "error", execErr.Error())
	}
	if execErr != nil {
		return c.fail(ctx, t, sessionID, turnNo, &decision, decision.Specialist, c.fallbackText, start)
	}
	c.breaker.Record(decision.Specialist, true)

	t.to(StateCompleted)
	msg := core.NewSpecialistMessage(decision.Specialist, res.Text)
	if err := c.store.Append(ctx, sessionID, msg, &decision, res.Tokens); err != nil {
		return nil, fmt.Errorf("persisting response for session %s: %w", sessionID, err)
	}
	c.record(sessionID, turnNo, decision.Specialist, res.Tokens, time.Since(start), true, false)
	return &TurnResult{
		Response:   res.Text,
		AgentUsed:  decision.Specialist,
		TokensUsed: res.Tokens,
		LatencyMS:  time.Since(start).Milliseconds(),
		State:      t.state,
	}, nil
}

func (c *Coordinator) execute(ctx context.Context, sp specialist.Specialist, query string, history []core.Message) (*specialist.Result, error) {
	cctx, cancel := context.WithTimeout(ctx, c.specialistTimeout)
	defer cancel()
	return sp.Execute(cctx, query, history)
}

// escalate terminates the turn into the human queue with a ticket id.
func (c *Coordinator) escalate(ctx context.Context, t *turn, sessionID string, turnNo int, decision *core.RoutingDecision, history []core.Message, query string, start time.Time) (*TurnResult, error) {
	t.to(StateEscalated)
	ticket := NewTicketID()
	if c.sink != nil {
		esc := Escalation{
			Ticket:    ticket,
			SessionID: sessionID,
			Query:     query,
			Rationale: decision.Rationale,
			Context:   history,
			CreatedAt: time.Now().UTC(),
		}
		if err := c.sink.Escalate(ctx, esc); err != nil {
			c.logger.Error("escalation delivery failed", "session_id", sessionID, "ticket", ticket, "error", err.Error())
		}
	}
	if err := c.store.SetStatus(ctx, sessionID, core.SessionEscalated); err != nil {
		c.logger.Error("marking session escalated failed", "session_id", sessionID, "error", err.Error())
	}

	resp := fmt.Sprintf("I've passed this to our support team (ticket %s). A human agent will follow up shortly.", ticket)
	if err := c.store.Append(ctx, sessionID, core.NewSystemMessage(resp), decision, 0); err != nil {
		return nil, fmt.Errorf("persisting escalation for session %s: %w", sessionID, err)
	}
	c.record(sessionID, turnNo, AgentEscalation, 0, time.Since(start), false, true)
	return &TurnResult{
		Response:  resp,
		AgentUsed: AgentEscalation,
		LatencyMS: time.Since(start).Milliseconds(),
		State:     t.state,
		Ticket:    ticket,
	}, nil
}

// fail terminates the turn with a safe response after a security flag or an
// exhausted retry.
func (c *Coordinator) fail(ctx context.Context, t *turn, sessionID string, turnNo int, decision *core.RoutingDecision, agent, resp string, start time.Time) (*TurnResult, error) {
	t.to(StateFailed)
	if err := c.store.Append(ctx, sessionID, core.NewSystemMessage(resp), decision, 0); err != nil {
		return nil, fmt.Errorf("persisting fallback for session %s: %w", sessionID, err)
	}
	c.record(sessionID, turnNo, agent, 0, time.Since(start), false, false)
	return &TurnResult{
		Response:  resp,
		AgentUsed: agent,
		LatencyMS: time.Since(start).Milliseconds(),
		State:     t.state,
	}, nil
}

func (c *Coordinator) record(sessionID string, turnNo int, agent string, tokens int, latency time.Duration, success, escalated bool) {
	if c.tracker == nil {
		return
	}
	c.tracker.Record(core.QualityRecord{
		SessionID:  sessionID,
		Turn:       turnNo,
		Latency:    latency,
		Tokens:     tokens,
		Specialist: agent,
		Success:    success,
		Escalated:  escalated,
		Timestamp:  time.Now().UTC(),
	})
}

var preferencePatterns = []struct {
	key string
	re  *regexp.Regexp
}{
	{"preference", regexp.MustCompile(`(?i)\bi\s+prefer\s+([^.!?]{1,60})`)},
	{"budget", regexp.MustCompile(`(?i)\bmy\s+budget\s+is\s+\$?([\d,]+)`)},
	{"name", regexp.MustCompile(`(?i)\b(?:call\s+me|my\s+name\s+is)\s+([A-Za-z]+)`)},
	{"contact", regexp.MustCompile(`(?i)\bcontact\s+me\s+(?:by|via)\s+(email|phone|sms)`)},
}

// harvestPreferences extracts durable customer facts from the query text and
// stores them for later turns. Best effort; failures are logged, never fatal.
func (c *Coordinator) harvestPreferences(ctx context.Context, sessionID, text string) {
	if c.prefs == nil {
		return
	}
	delta := make(map[string]string)
	for _, p := range preferencePatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			delta[p.key] = strings.TrimSpace(m[1])
		}
	}
	if len(delta) == 0 {
		return
	}
	if err := c.prefs.Put(ctx, sessionID, delta); err != nil {
		c.logger.Warn("storing preferences failed", "session_id", sessionID, "error", err.Error())
	}
}

// injectPreferences prepends stored customer preferences to the context
// window so specialists can tailor their responses.
func (c *Coordinator) injectPreferences(ctx context.Context, sessionID string, history []core.Message) []core.Message {
	if c.prefs == nil {
		return history
	}
	prefs, err := c.prefs.Get(ctx, sessionID)
	if err != nil || len(prefs) == 0 {
		return history
	}
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+prefs[k])
	}
	note := core.NewSystemMessage("Known customer preferences: " + strings.Join(parts, "; "))
	return append([]core.Message{note}, history...)
}
