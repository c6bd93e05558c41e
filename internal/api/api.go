package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wierdbytes/tellm/internal/chat"
	"github.com/wierdbytes/tellm/internal/database"
	pkgapi "github.com/wierdbytes/tellm/pkg/api"
)

const defaultMessageLimit = 50

// Service exposes a read-only ops surface over the message log: liveness,
// recent messages of a chat and on-demand chain reconstruction.
type Service struct {
	store *database.Store
}

func NewService(store *database.Store) *Service {
	return &Service{store: store}
}

func (s *Service) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(s.Health))
	r.Route("/chats/{chat_id}", func(r chi.Router) {
		r.Get("/messages", RestHandler(s.GetMessages))
		r.Get("/chain/{message_id}", RestHandler(s.GetChain))
	})
}

func (s *Service) Health(r *http.Request) (any, error) {
	return pkgapi.HealthResponse{Status: "ok"}, nil
}

func (s *Service) GetMessages(r *http.Request) (any, error) {
	chatID, err := URLParamInt64(r, "chat_id")
	if err != nil {
		return nil, err
	}

	query, err := ParseRequestQueryParams[pkgapi.GetMessagesQuery](r)
	if err != nil {
		return nil, err
	}
	if query.Limit <= 0 {
		query.Limit = defaultMessageLimit
	}

	rows, err := s.store.Recent(r.Context(), chatID, query.Limit)
	if err != nil {
		return nil, err
	}

	messages := make([]pkgapi.StoredMessage, len(rows))
	for i, row := range rows {
		messages[i] = pkgapi.StoredMessage{
			ChatID:           row.ChatID,
			MessageID:        row.MessageID,
			ReplyToMessageID: row.ReplyToMessageID,
			Role:             row.Role,
			Content:          row.Content,
			CreatedAt:        row.CreatedAt,
		}
	}

	return pkgapi.GetMessagesResponse{Messages: messages}, nil
}

func (s *Service) GetChain(r *http.Request) (any, error) {
	chatID, err := URLParamInt64(r, "chat_id")
	if err != nil {
		return nil, err
	}
	messageID, err := URLParamInt64(r, "message_id")
	if err != nil {
		return nil, err
	}

	chain, err := chat.Reconstruct(r.Context(), s.store, chatID, messageID)
	truncated := errors.Is(err, chat.ErrChainTooLong)
	if err != nil && !truncated {
		return nil, err
	}

	transcript, err := chat.AssembleTranscript(r.Context(), s.store, chatID, chain)
	if err != nil {
		return nil, err
	}

	turns := make([]pkgapi.TranscriptTurn, len(transcript))
	for i, turn := range transcript {
		turns[i] = pkgapi.TranscriptTurn{Role: string(turn.Role), Content: turn.Content}
	}

	return pkgapi.GetChainResponse{
		ChatID:     chatID,
		MessageIDs: chain,
		Truncated:  truncated,
		Transcript: turns,
	}, nil
}
