package assistant

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"aminestudio/internal/gemini"
	"aminestudio/internal/models"
)

// Chat sends one user turn to the backend and persists both sides of
// the exchange. At most one generation runs per session; a second
// request while one is in flight returns ErrSessionBusy and stores
// nothing. Backend failures are not returned as errors: the failure is
// materialized as the assistant's reply so the conversation keeps its
// alternating shape.
func (s *Service) Chat(ctx context.Context, sessionID int64, content, imageURI string) (*models.Message, *models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" && imageURI == "" {
		return nil, nil, errors.New("message text or image required")
	}

	var image *gemini.DataURI
	if imageURI != "" {
		parsed, err := gemini.ParseDataURI(imageURI)
		if err != nil {
			return nil, nil, err
		}
		image = parsed
	}

	if !s.runtime.TryAcquire(sessionID) {
		return nil, nil, ErrSessionBusy
	}
	defer s.runtime.Release(sessionID)

	// Context window: the last turns before this one.
	history, err := s.recentMessages(ctx, sessionID, s.historyWindow)
	if err != nil {
		return nil, nil, err
	}

	userMsg, err := s.addMessage(ctx, models.Message{
		SessionID: sessionID,
		Role:      models.RoleUser,
		Content:   content,
		Image:     imageURI,
	})
	if err != nil {
		return nil, nil, err
	}

	text := content
	if text == "" {
		text = defaultAnalyzeText
	}
	payload := gemini.Payload{
		System:         systemInstruction,
		Text:           text,
		Image:          image,
		History:        historyTurns(history),
		ThinkingBudget: s.thinkingBudget,
	}

	reply, genErr := s.generate(ctx, payload)
	if genErr != nil {
		if ctx.Err() != nil {
			return userMsg, nil, ctx.Err()
		}
		s.logger.Warn("generation failed", zap.Int64("session", sessionID), zap.Error(genErr))
		failMsg, err := s.addMessage(ctx, models.Message{
			SessionID: sessionID,
			Role:      models.RoleAssistant,
			Content:   failureText(genErr),
		})
		if err != nil {
			return userMsg, nil, err
		}
		return userMsg, failMsg, nil
	}

	assistantMsg := models.Message{
		SessionID: sessionID,
		Role:      models.RoleAssistant,
		Content:   reply.Text,
	}
	if reply.Image != nil {
		assistantMsg.Image = reply.Image.String()
	}
	stored, err := s.addMessage(ctx, assistantMsg)
	if err != nil {
		return userMsg, nil, err
	}
	return userMsg, stored, nil
}

// historyTurns maps stored messages onto backend conversation roles.
// Attached images are represented by their text only; the window stays
// lightweight.
func historyTurns(messages []*models.Message) []gemini.Turn {
	turns := make([]gemini.Turn, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		turns = append(turns, gemini.Turn{Role: role, Text: m.Content})
	}
	return turns
}
