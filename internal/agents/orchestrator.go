package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/observability"
	"github.com/ventia/api/internal/platform/textutil"
	"github.com/ventia/api/internal/services"
)

const (
	// maxTransfers caps agent handoffs inside a single turn.
	maxTransfers = 3
	// maxEdgeRepeats breaks the turn when the same handoff edge repeats.
	maxEdgeRepeats = 2
)

// technicalProblemReply is the customer-facing apology when an agent fails.
const technicalProblemReply = "Disculpa, tuve un problema técnico. ¿Puedes reformular tu pregunta?"

// stopPhrases end the conversation immediately, before any classification.
var stopPhrases = []string{
	"mejor no", "mejor no gracias", "luego veo", "después veo", "chao",
	"adiós", "adios", "nos vemos", "hasta luego", "bye", "gracias igual",
	"gracias igualmente", "ya no", "no importa", "déjalo", "dejalo",
	"olvídalo", "olvidalo", "no gracias", "está muy caro gracias",
	"esta muy caro gracias", "muy caro gracias",
}

// TurnResult is what one processed user message produces.
type TurnResult struct {
	SessionID    string
	Reply        string
	Agent        domain.AgentName
	Intent       domain.Intent
	Style        domain.Style
	Transfers    int
	Ended        bool
	CheckoutStep *domain.CheckoutStage
}

// OrchestratorDeps bundles constructor inputs for the orchestrator.
type OrchestratorDeps struct {
	Sessions    services.SessionService
	Transcripts services.TranscriptService
	Classifier  *Classifier
	Agents      []Agent
	Metrics     *observability.Metrics
	Clock       func() time.Time
	Logger      *zap.Logger
}

// Orchestrator routes each user turn through classification and the agent
// chain, bounding handoffs so a misrouted turn can never loop.
type Orchestrator struct {
	sessions    services.SessionService
	transcripts services.TranscriptService
	classifier  *Classifier
	agents      map[domain.AgentName]Agent
	metrics     *observability.Metrics
	clock       func() time.Time
	logger      *zap.Logger
}

// NewOrchestrator constructs the orchestrator.
func NewOrchestrator(deps OrchestratorDeps) (*Orchestrator, error) {
	if deps.Sessions == nil {
		return nil, errors.New("orchestrator: session service is required")
	}
	if deps.Transcripts == nil {
		return nil, errors.New("orchestrator: transcript service is required")
	}
	if deps.Classifier == nil {
		return nil, errors.New("orchestrator: classifier is required")
	}
	if len(deps.Agents) == 0 {
		return nil, errors.New("orchestrator: at least one agent is required")
	}

	agents := make(map[domain.AgentName]Agent, len(deps.Agents))
	for _, agent := range deps.Agents {
		agents[agent.Name()] = agent
	}
	if _, ok := agents[domain.AgentSales]; !ok {
		return nil, errors.New("orchestrator: sales agent is required as fallback")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		sessions:    deps.Sessions,
		transcripts: deps.Transcripts,
		classifier:  deps.Classifier,
		agents:      agents,
		metrics:     deps.Metrics,
		clock:       func() time.Time { return clock().UTC() },
		logger:      logger,
	}, nil
}

// ProcessTurn handles one user message end to end: session load, transcript
// write, stop-phrase check, classification, agent dispatch with bounded
// transfers, and state persistence.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID, userID, message string) (TurnResult, error) {
	message = strings.TrimSpace(message)
	if sessionID == "" || userID == "" || message == "" {
		return TurnResult{}, errors.New("orchestrator: session id, user id and message are required")
	}

	session, err := o.loadSession(ctx, sessionID, userID)
	if err != nil {
		o.logger.Error("session store unavailable", zap.Error(err))
		return o.emergencyTurn(ctx, sessionID, userID, message), nil
	}

	o.appendTranscript(ctx, session, domain.TranscriptRoleUser, message, "")
	session.RememberMessage(domain.TranscriptRoleUser, message)

	if isStopPhrase(message) {
		return o.endConversation(ctx, session, message)
	}

	if session.Style == "" || session.Style == domain.StyleNeutral {
		session.Style, session.StyleConfidence = DetectStyle(session.RecentUserMessages(5), message)
	}

	// Mid-checkout turns skip classification so a "no" can be read by the
	// checkout agent instead of being reclassified.
	if session.CheckoutStage == nil {
		classification := o.classifier.Classify(ctx, message, len(session.SearchResults) > 0)
		session.Intent = classification.Intent
		session.IntentConfidence = classification.Confidence
		session.CurrentAgent = AgentForIntent(classification.Intent)
	} else {
		session.Intent = domain.IntentCheckout
		session.CurrentAgent = domain.AgentCheckout
	}

	result := o.dispatch(ctx, session, message)

	o.appendTranscript(ctx, session, domain.TranscriptRoleAgent, result.Reply, string(result.Agent))
	session.RememberMessage(domain.TranscriptRoleAgent, result.Reply)
	if err := o.sessions.Save(ctx, session); err != nil {
		o.logger.Error("session save failed", zap.String("session_id", session.ID), zap.Error(err))
	}

	result.SessionID = session.ID
	result.Intent = session.Intent
	result.Style = session.Style
	result.CheckoutStep = session.CheckoutStage
	return result, nil
}

// dispatch runs the agent chain for one turn. Responses gathered along a
// transfer chain are concatenated so a handoff never discards text already
// produced for the customer.
func (o *Orchestrator) dispatch(ctx context.Context, session *domain.Session, message string) TurnResult {
	agentName := session.CurrentAgent
	if _, ok := o.agents[agentName]; !ok {
		agentName = domain.AgentSales
	}

	var parts []string
	transfers := 0
	edges := map[string]int{}

	for {
		agent := o.agents[agentName]
		o.metrics.RecordTurn(ctx, string(agentName))

		response, err := agent.Handle(ctx, &Turn{Session: session, Message: message})
		if err != nil {
			o.logger.Error("agent failed",
				zap.String("agent", string(agentName)),
				zap.String("session_id", session.ID),
				zap.Error(err))
			parts = append(parts, technicalProblemReply)
			break
		}
		if response.Text != "" {
			parts = append(parts, response.Text)
		}
		if response.EndConversation {
			session.CurrentAgent = agentName
			return TurnResult{Reply: joinParts(parts), Agent: agentName, Transfers: transfers, Ended: true}
		}

		next := response.TransferTo
		if next == "" || next == agentName {
			break
		}
		if _, ok := o.agents[next]; !ok {
			o.logger.Warn("transfer to unknown agent", zap.String("to", string(next)))
			break
		}

		edge := fmt.Sprintf("%s->%s", agentName, next)
		edges[edge]++
		session.TransferCounts[edge]++
		session.TransferTotal++
		transfers++
		o.metrics.RecordTransfer(ctx, string(agentName), string(next))

		if transfers >= maxTransfers || edges[edge] >= maxEdgeRepeats {
			o.metrics.RecordLoopBreak(ctx)
			o.logger.Warn("transfer loop broken",
				zap.String("session_id", session.ID),
				zap.String("edge", edge),
				zap.Int("transfers", transfers))
			agentName = next
			break
		}
		agentName = next
	}

	session.CurrentAgent = agentName
	return TurnResult{Reply: joinParts(parts), Agent: agentName, Transfers: transfers}
}

// endConversation closes the turn with a style farewell and clears any
// pending script state so a stale guided sale cannot resume later.
func (o *Orchestrator) endConversation(ctx context.Context, session *domain.Session, message string) (TurnResult, error) {
	farewell := Farewell(session.Style)
	session.Intent = domain.IntentEnd
	session.CheckoutStage = nil

	if err := o.sessions.DeleteScript(ctx, session.ID); err != nil {
		o.logger.Warn("script session cleanup failed", zap.String("session_id", session.ID), zap.Error(err))
	}

	o.appendTranscript(ctx, session, domain.TranscriptRoleAgent, farewell, string(session.CurrentAgent))
	session.RememberMessage(domain.TranscriptRoleAgent, farewell)
	if err := o.sessions.Save(ctx, session); err != nil {
		o.logger.Error("session save failed", zap.String("session_id", session.ID), zap.Error(err))
	}

	return TurnResult{
		SessionID: session.ID,
		Reply:     farewell,
		Agent:     session.CurrentAgent,
		Intent:    domain.IntentEnd,
		Style:     session.Style,
		Ended:     true,
	}, nil
}

// emergencyTurn answers with minimal fresh state when the session store is
// down. The customer gets a usable reply; nothing is persisted.
func (o *Orchestrator) emergencyTurn(ctx context.Context, sessionID, userID, message string) TurnResult {
	session := domain.NewSession(sessionID, userID, o.clock())
	session.RememberMessage(domain.TranscriptRoleUser, message)

	if isStopPhrase(message) {
		return TurnResult{
			SessionID: sessionID,
			Reply:     Farewell(domain.StyleNeutral),
			Agent:     session.CurrentAgent,
			Intent:    domain.IntentEnd,
			Style:     domain.StyleNeutral,
			Ended:     true,
		}
	}

	classification := o.classifier.Classify(ctx, message, false)
	session.Intent = classification.Intent
	session.CurrentAgent = AgentForIntent(classification.Intent)
	result := o.dispatch(ctx, session, message)

	result.SessionID = sessionID
	result.Intent = session.Intent
	result.Style = session.Style
	return result
}

func (o *Orchestrator) loadSession(ctx context.Context, sessionID, userID string) (*domain.Session, error) {
	session, err := o.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = domain.NewSession(sessionID, userID, o.clock())
	}
	if session.Slots == nil {
		session.Slots = map[string]string{}
	}
	if session.TransferCounts == nil {
		session.TransferCounts = map[string]int{}
	}
	return session, nil
}

// appendTranscript writes one record; failures are logged, never surfaced,
// so the customer still gets a reply when the durable log hiccups.
func (o *Orchestrator) appendTranscript(ctx context.Context, session *domain.Session, role domain.TranscriptRole, body, agent string) {
	if body == "" {
		return
	}
	record := domain.TranscriptRecord{
		SessionID: session.ID,
		UserID:    session.UserID,
		Role:      role,
		Body:      body,
		CreatedAt: o.clock(),
	}
	if agent != "" {
		record.Metadata = map[string]string{"agent": agent}
	}
	if err := o.transcripts.Append(ctx, record); err != nil {
		o.logger.Error("transcript append failed", zap.String("session_id", session.ID), zap.Error(err))
	}
}

func isStopPhrase(message string) bool {
	folded := textutil.Fold(strings.TrimSpace(message))
	for _, phrase := range stopPhrases {
		if strings.Contains(folded, textutil.Fold(phrase)) {
			return true
		}
	}
	return false
}

func joinParts(parts []string) string {
	if len(parts) == 0 {
		return technicalProblemReply
	}
	return strings.Join(parts, "\n\n")
}
