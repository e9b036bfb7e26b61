package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/ventia/api/internal/platform/observability")

// Metrics bundles the counters recorded by the conversation engine.
type Metrics struct {
	chatTurns      metric.Int64Counter
	agentTransfers metric.Int64Counter
	loopBreaks     metric.Int64Counter
	ordersCreated  metric.Int64Counter
	ordersCanceled metric.Int64Counter
}

// NewMetrics registers the engine counters on the global meter provider.
func NewMetrics() (*Metrics, error) {
	chatTurns, err := meter.Int64Counter("chat.turns",
		metric.WithDescription("Completed conversation turns"))
	if err != nil {
		return nil, err
	}
	transfers, err := meter.Int64Counter("chat.agent_transfers",
		metric.WithDescription("Agent-to-agent handoffs within a turn"))
	if err != nil {
		return nil, err
	}
	loopBreaks, err := meter.Int64Counter("chat.loop_breaks",
		metric.WithDescription("Transfer loops broken by the orchestrator"))
	if err != nil {
		return nil, err
	}
	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Orders committed with stock decrement"))
	if err != nil {
		return nil, err
	}
	canceled, err := meter.Int64Counter("orders.canceled",
		metric.WithDescription("Orders canceled with stock restore"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		chatTurns:      chatTurns,
		agentTransfers: transfers,
		loopBreaks:     loopBreaks,
		ordersCreated:  created,
		ordersCanceled: canceled,
	}, nil
}

// RecordTurn counts a completed turn attributed to the agent that produced the reply.
func (m *Metrics) RecordTurn(ctx context.Context, agent string) {
	if m == nil || m.chatTurns == nil {
		return
	}
	m.chatTurns.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agent)))
}

// RecordTransfer counts a handoff edge between two agents.
func (m *Metrics) RecordTransfer(ctx context.Context, from, to string) {
	if m == nil || m.agentTransfers == nil {
		return
	}
	m.agentTransfers.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// RecordLoopBreak counts a transfer loop detected and broken.
func (m *Metrics) RecordLoopBreak(ctx context.Context) {
	if m == nil || m.loopBreaks == nil {
		return
	}
	m.loopBreaks.Add(ctx, 1)
}

// RecordOrderCreated counts a committed order.
func (m *Metrics) RecordOrderCreated(ctx context.Context) {
	if m == nil || m.ordersCreated == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1)
}

// RecordOrderCanceled counts a canceled order.
func (m *Metrics) RecordOrderCanceled(ctx context.Context) {
	if m == nil || m.ordersCanceled == nil {
		return
	}
	m.ordersCanceled.Add(ctx, 1)
}
