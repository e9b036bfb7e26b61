package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/ventia/api/internal/domain"
	"github.com/ventia/api/internal/platform/textutil"
	"github.com/ventia/api/internal/repositories"
)

// conversationPreviewRunes caps the last-message preview in conversation
// listings.
const conversationPreviewRunes = 100

var (
	// ErrTranscriptInvalidInput indicates missing or malformed arguments.
	ErrTranscriptInvalidInput = errors.New("transcript service: invalid input")
	// ErrTranscriptForbidden indicates the record belongs to another user.
	ErrTranscriptForbidden = errors.New("transcript service: record owned by another user")
	// ErrTranscriptNotFound indicates the record does not exist.
	ErrTranscriptNotFound = errors.New("transcript service: record not found")
)

// TranscriptServiceDeps bundles constructor inputs for the transcript service.
type TranscriptServiceDeps struct {
	Transcripts repositories.TranscriptRepository
	Clock       func() time.Time
}

type transcriptService struct {
	repo  repositories.TranscriptRepository
	clock func() time.Time
}

// NewTranscriptService constructs the transcript service.
func NewTranscriptService(deps TranscriptServiceDeps) (TranscriptService, error) {
	if deps.Transcripts == nil {
		return nil, errors.New("transcript service: transcript repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &transcriptService{repo: deps.Transcripts, clock: func() time.Time { return clock().UTC() }}, nil
}

func (s *transcriptService) Append(ctx context.Context, record domain.TranscriptRecord) error {
	if strings.TrimSpace(record.SessionID) == "" || strings.TrimSpace(record.UserID) == "" {
		return ErrTranscriptInvalidInput
	}
	if strings.TrimSpace(record.Body) == "" {
		return ErrTranscriptInvalidInput
	}
	switch record.Role {
	case domain.TranscriptRoleUser, domain.TranscriptRoleAgent, domain.TranscriptRoleSystem:
	default:
		return ErrTranscriptInvalidInput
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.clock()
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		return fmt.Errorf("transcript service: append: %w", err)
	}
	return nil
}

func (s *transcriptService) History(ctx context.Context, sessionID, userID string, limit, offset int) ([]domain.TranscriptRecord, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrTranscriptInvalidInput
	}

	records, err := s.repo.ListBySession(ctx, repositories.TranscriptFilter{
		SessionID: sessionID,
		UserID:    userID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("transcript service: history: %w", err)
	}
	return records, nil
}

func (s *transcriptService) Conversations(ctx context.Context, userID string, limit, offset int) ([]domain.ConversationSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrTranscriptInvalidInput
	}

	summaries, err := s.repo.ListConversations(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("transcript service: conversations: %w", err)
	}
	for i := range summaries {
		summaries[i].LastBody = textutil.TruncateRunes(summaries[i].LastBody, conversationPreviewRunes)
	}
	return summaries, nil
}

func (s *transcriptService) EditMessage(ctx context.Context, recordID, userID, body string) (domain.TranscriptRecord, error) {
	if strings.TrimSpace(recordID) == "" || strings.TrimSpace(body) == "" {
		return domain.TranscriptRecord{}, ErrTranscriptInvalidInput
	}
	if err := s.authorize(ctx, recordID, userID); err != nil {
		return domain.TranscriptRecord{}, err
	}

	record, err := s.repo.UpdateBody(ctx, recordID, body)
	if errors.Is(err, repositories.ErrTranscriptNotFound) {
		return domain.TranscriptRecord{}, ErrTranscriptNotFound
	}
	if err != nil {
		return domain.TranscriptRecord{}, fmt.Errorf("transcript service: edit: %w", err)
	}
	return record, nil
}

func (s *transcriptService) DeleteMessage(ctx context.Context, recordID, userID string) error {
	if strings.TrimSpace(recordID) == "" {
		return ErrTranscriptInvalidInput
	}
	if err := s.authorize(ctx, recordID, userID); err != nil {
		return err
	}

	err := s.repo.Delete(ctx, recordID)
	if errors.Is(err, repositories.ErrTranscriptNotFound) {
		return ErrTranscriptNotFound
	}
	if err != nil {
		return fmt.Errorf("transcript service: delete: %w", err)
	}
	return nil
}

// authorize loads the record and checks ownership when a user id is given.
// An empty user id means an internal caller that already holds authority.
func (s *transcriptService) authorize(ctx context.Context, recordID, userID string) error {
	record, err := s.repo.FindByID(ctx, recordID)
	if errors.Is(err, repositories.ErrTranscriptNotFound) {
		return ErrTranscriptNotFound
	}
	if err != nil {
		return fmt.Errorf("transcript service: load %s: %w", recordID, err)
	}
	if userID != "" && record.UserID != userID {
		return ErrTranscriptForbidden
	}
	return nil
}

func (s *transcriptService) Archive(ctx context.Context, sessionID, userID string) (int, error) {
	if strings.TrimSpace(sessionID) == "" || strings.TrimSpace(userID) == "" {
		return 0, ErrTranscriptInvalidInput
	}

	archived, err := s.repo.ArchiveSession(ctx, sessionID, userID)
	if err != nil {
		return 0, fmt.Errorf("transcript service: archive: %w", err)
	}
	return archived, nil
}

func (s *transcriptService) Stats(ctx context.Context, userID string) (domain.TranscriptStats, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.TranscriptStats{}, ErrTranscriptInvalidInput
	}

	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return domain.TranscriptStats{}, fmt.Errorf("transcript service: stats: %w", err)
	}
	return stats, nil
}
