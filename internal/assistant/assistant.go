package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"contract-assistant/internal/index"
	"contract-assistant/internal/models"
	"contract-assistant/internal/session"
)

const answerSystemPrompt = "You are a contract assistant. Use the provided context to answer the question. Do not use outside knowledge."

// Loader extracts text sections from an uploaded file.
type Loader interface {
	Load(path string) ([]models.Section, error)
}

// Splitter cuts sections into indexable chunks.
type Splitter interface {
	Split(sections []models.Section) ([]models.Chunk, error)
}

// Guard classifies question relevance before anything expensive runs.
type Guard interface {
	Check(ctx context.Context, question string) (models.GuardrailVerdict, error)
}

// Completer runs one answer-model call over prepared messages.
type Completer interface {
	Generate(ctx context.Context, messages []llms.MessageContent) (string, error)
}

// Service wires the upload pipeline and the guarded question flow.
type Service struct {
	loader    Loader
	splitter  Splitter
	embedder  index.Embedder
	guard     Guard
	completer Completer
	store     *session.Store
	topK      int
}

func New(loader Loader, splitter Splitter, embedder index.Embedder, guard Guard, completer Completer, store *session.Store, topK int) *Service {
	return &Service{
		loader:    loader,
		splitter:  splitter,
		embedder:  embedder,
		guard:     guard,
		completer: completer,
		store:     store,
		topK:      topK,
	}
}

// Upload extracts, chunks and indexes a document, then installs the fresh
// index for the session. Any failure leaves the previous index active.
func (s *Service) Upload(ctx context.Context, sessionID, path string) (int, error) {
	sections, err := s.loader.Load(path)
	if err != nil {
		return 0, err
	}

	chunks, err := s.splitter.Split(sections)
	if err != nil {
		return 0, fmt.Errorf("splitting document: %w", err)
	}

	idx, err := index.Build(ctx, s.embedder, chunks)
	if err != nil {
		return 0, err
	}

	s.store.Put(sessionID, idx)
	log.Info().Str("session", sessionID).Int("chunks", idx.Size()).Msg("Document indexed")
	return idx.Size(), nil
}

// Reply is the outcome of one question.
type Reply struct {
	Answer   string
	Rejected bool
}

// Answer runs the guardrail, retrieves context from the session's index
// and generates the final answer. A rejected question returns the
// guardrail's reasoning without touching retrieval or the answer model.
func (s *Service) Answer(ctx context.Context, sessionID, question string, history []models.ConversationTurn) (Reply, error) {
	verdict, err := s.guard.Check(ctx, question)
	if err != nil {
		return Reply{}, err
	}
	if !verdict.IsRelevant {
		log.Debug().Str("session", sessionID).Str("reasoning", verdict.Reasoning).Msg("Question rejected by guardrail")
		return Reply{Answer: verdict.Reasoning, Rejected: true}, nil
	}

	idx, ok := s.store.Get(sessionID)
	if !ok {
		return Reply{}, models.ErrNoIndex
	}

	chunks, err := idx.Retrieve(ctx, s.embedder, question, s.topK)
	if err != nil {
		return Reply{}, err
	}

	contextText := joinChunks(chunks)
	answer, err := s.completer.Generate(ctx, buildMessages(question, contextText, history))
	if err != nil {
		return Reply{}, err
	}
	return Reply{Answer: answer}, nil
}

func joinChunks(chunks []models.Chunk) string {
	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = chunk.Content
	}
	return strings.Join(parts, "\n\n")
}

func buildMessages(question, contextText string, history []models.ConversationTurn) []llms.MessageContent {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, answerSystemPrompt),
	}
	for _, turn := range history {
		role := schema.ChatMessageTypeHuman
		if turn.Role == models.RoleAssistant {
			role = schema.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman,
		fmt.Sprintf("Context: %s\n\nQuestion: %s", contextText, question)))
	return messages
}
