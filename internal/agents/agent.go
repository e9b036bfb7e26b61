// Package agents implements the conversational agents and the orchestrator
// that routes turns between them.
package agents

import (
	"context"

	domain "github.com/ventia/api/internal/domain"
)

// Turn carries one inbound user message together with the mutable session
// state agents read and update.
type Turn struct {
	Session *domain.Session
	Message string
}

// Response is what an agent produced for a turn. A non-empty TransferTo
// asks the orchestrator to hand the same turn to another agent.
type Response struct {
	Text            string
	TransferTo      domain.AgentName
	EndConversation bool
}

// Agent handles turns for one conversational role.
type Agent interface {
	Name() domain.AgentName
	Handle(ctx context.Context, turn *Turn) (Response, error)
}
