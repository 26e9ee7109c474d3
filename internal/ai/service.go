package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chat-ai-be/internal/chat"
	"chat-ai-be/internal/models"
)

// History row limits per operation. Analysis wants the widest context, reply
// suggestions only the immediate tail.
const (
	analyzeLimit  = 100
	queryLimit    = 150
	followUpLimit = 20
	replyLimit    = 10
)

// Service implements the AI operations. Each call re-fetches history through
// the store; no state is carried between calls.
type Service struct {
	Store    *chat.Store
	Provider Provider
}

func NewService(store *chat.Store, provider Provider) *Service {
	return &Service{Store: store, Provider: provider}
}

type Summary struct {
	ConversationHeader string `json:"conversationHeader"`
	MainDiscussion     string `json:"mainDiscussion"`
	OverallTone        string `json:"overallTone"`
}

type Decision struct {
	Decision string `json:"decision"`
	MadeBy   string `json:"madeBy"`
}

type Entities struct {
	Locations     []string `json:"locations"`
	Dates         []string `json:"dates"`
	Organizations []string `json:"organizations"`
}

type Analysis struct {
	Confidence   float64    `json:"confidence"`
	Intent       string     `json:"intent"`
	Sentiment    string     `json:"sentiment"`
	MessageCount int        `json:"message_count"`
	Participants []string   `json:"participants"`
	Timestamp    time.Time  `json:"timestamp"`
	Topics       []string   `json:"topics"`
	Decisions    []Decision `json:"decisions"`
	Entities     Entities   `json:"entities"`
	Summary      Summary    `json:"summary"`
}

type ConversationRef struct {
	ID           string           `json:"id"`
	DisplayName  string           `json:"display_name"`
	Participants []ParticipantRef `json:"participants"`
}

type ParticipantRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type AnalyzeResult struct {
	Message      string           `json:"message,omitempty"`
	Analysis     *Analysis        `json:"analysis,omitempty"`
	Conversation *ConversationRef `json:"conversation,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Analyze summarizes the whole conversation between caller and partner.
// An empty conversation is not an error; the result just carries no analysis.
func (s *Service) Analyze(ctx context.Context, callerID, partnerID uint) (*AnalyzeResult, error) {
	caller, partner, err := s.loadPair(callerID, partnerID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.Store.HistoryLimited(callerID, partnerID, analyzeLimit)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return &AnalyzeResult{Message: "No messages to analyze.", Timestamp: time.Now().UTC()}, nil
	}

	prompt := analyzePrompt(caller.FullName, partner.FullName, s.transcript(msgs, caller, partner))

	var parsed struct {
		Summary   Summary    `json:"summary"`
		Sentiment string     `json:"sentiment"`
		Topics    []string   `json:"topics"`
		Decisions []Decision `json:"decisions"`
		Entities  Entities   `json:"entities"`
	}
	if err := s.generateJSON(ctx, prompt, &parsed); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &AnalyzeResult{
		Analysis: &Analysis{
			Confidence:   0.95,
			Intent:       "General Conversation",
			Sentiment:    parsed.Sentiment,
			MessageCount: len(msgs),
			Participants: []string{caller.FullName, partner.FullName},
			Timestamp:    now,
			Topics:       parsed.Topics,
			Decisions:    parsed.Decisions,
			Entities:     parsed.Entities,
			Summary:      parsed.Summary,
		},
		Conversation: &ConversationRef{
			ID:          fmt.Sprintf("%d_%d", caller.ID, partner.ID),
			DisplayName: fmt.Sprintf("%s & %s", caller.FullName, partner.FullName),
			Participants: []ParticipantRef{
				{ID: caller.ID, Name: caller.FullName},
				{ID: partner.ID, Name: partner.FullName},
			},
		},
		Timestamp: now,
	}, nil
}

type QueryResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Query answers a question about the conversation using only its history.
func (s *Service) Query(ctx context.Context, callerID, partnerID uint, query string) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required: %w", chat.ErrInvalidArgument)
	}

	caller, partner, err := s.loadPair(callerID, partnerID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.Store.HistoryLimited(callerID, partnerID, queryLimit)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return &QueryResult{
			Question: query,
			Answer:   "There are no messages in this chat to search for an answer.",
		}, nil
	}

	prompt := queryPrompt(caller.FullName, partner.FullName, s.transcript(msgs, caller, partner), query)

	var parsed QueryResult
	if err := s.generateJSON(ctx, prompt, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

type FollowUpResult struct {
	Suggestions []string `json:"suggestions"`
}

// FollowUps suggests three ways for the caller to continue the conversation.
// With no history it falls back to conversation starters.
func (s *Service) FollowUps(ctx context.Context, callerID, partnerID uint) (*FollowUpResult, error) {
	caller, partner, err := s.loadPair(callerID, partnerID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.Store.RecentHistory(callerID, partnerID, followUpLimit)
	if err != nil {
		return nil, err
	}

	prompt := followUpPrompt(caller.FullName, partner.FullName, s.transcript(msgs, caller, partner))

	var parsed FollowUpResult
	if err := s.generateJSON(ctx, prompt, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

type ReplyResult struct {
	Replies []string `json:"replies"`
}

// Replies suggests three replies to the partner's latest message. There has
// to be a message from the partner to reply to.
func (s *Service) Replies(ctx context.Context, callerID, partnerID uint) (*ReplyResult, error) {
	caller, partner, err := s.loadPair(callerID, partnerID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.Store.RecentHistory(callerID, partnerID, replyLimit)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 || msgs[len(msgs)-1].SenderID == callerID {
		return nil, fmt.Errorf("no message from the other person to reply to: %w", chat.ErrInvalidArgument)
	}

	last := msgs[len(msgs)-1].Text
	prompt := replyPrompt(caller.FullName, partner.FullName, last, s.transcript(msgs, caller, partner))

	var parsed ReplyResult
	if err := s.generateJSON(ctx, prompt, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

type RefineResult struct {
	RefinedMessages []string `json:"refined_messages"`
}

// Refine rewrites a draft in the requested tone, three ways. It is the one
// operation that never touches history.
func (s *Service) Refine(ctx context.Context, draft, tone string) (*RefineResult, error) {
	if strings.TrimSpace(draft) == "" {
		return nil, fmt.Errorf("draft is required: %w", chat.ErrInvalidArgument)
	}
	if tone == "" {
		tone = "clear and friendly"
	}

	var parsed RefineResult
	if err := s.generateJSON(ctx, refinePrompt(draft, tone), &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (s *Service) loadPair(callerID, partnerID uint) (*models.User, *models.User, error) {
	caller, err := s.Store.GetUser(callerID)
	if err != nil {
		return nil, nil, err
	}
	partner, err := s.Store.GetUser(partnerID)
	if err != nil {
		return nil, nil, err
	}
	return caller, partner, nil
}

// generateJSON runs the prompt, strips any markdown fencing the model wrapped
// its output in, and decodes into out. A non-JSON reply counts as a provider
// failure.
func (s *Service) generateJSON(ctx context.Context, prompt string, out interface{}) error {
	text, err := s.Provider.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("text generation: %v: %w", err, chat.ErrDependencyFailure)
	}
	cleaned := stripFences(text)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("malformed model response: %w", chat.ErrDependencyFailure)
	}
	return nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// transcript renders messages as "[timestamp] Name: text" lines.
func (s *Service) transcript(msgs []models.Message, a, b *models.User) string {
	names := map[uint]string{a.ID: a.FullName, b.ID: b.FullName}

	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		name := names[m.SenderID]
		if name == "" {
			name = "Unknown User"
		}
		text := m.Text
		if text == "" && m.ImageURL != "" {
			text = "[image]"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", m.CreatedAt.UTC().Format(time.RFC3339), name, text))
	}
	return strings.Join(lines, "\n")
}
