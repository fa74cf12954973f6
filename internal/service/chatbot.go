package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ChatReply is the assistant's answer plus the category the message was
// routed to ("places", "greeting", "help", "llm").
type ChatReply struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// ChatService answers user messages. Safety-related keywords are routed to
// the nearby-places lookup; greetings and help requests get canned replies;
// everything else is passed to a Groq-compatible LLM endpoint when an API
// key is configured.
type ChatService struct {
	Places  *PlaceService
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
}

func NewChatService(places *PlaceService, apiKey string) *ChatService {
	return &ChatService{
		Places:  places,
		APIKey:  apiKey,
		Model:   "llama-3.1-8b-instant",
		BaseURL: "https://api.groq.com/openai/v1",
		HTTP:    &http.Client{Timeout: 20 * time.Second},
	}
}

// Keyword groups checked in order; the first hit wins.
var chatCategories = []struct {
	category string
	keywords []string
}{
	{"hospital", []string{"hospital", "doctor", "injured", "medical", "ambulance"}},
	{"police", []string{"police", "crime", "theft", "attack", "harass", "stalk"}},
	{"pharmacy", []string{"pharmacy", "medicine", "drug store", "chemist"}},
	{"greeting", []string{"hello", "hi ", "hey", "good morning", "good evening"}},
	{"help", []string{"help", "what can you do", "how do i", "how to"}},
}

// Answer routes one user message. Lat/lng are the user's last known
// location, used for place lookups; zero values skip the lookup.
func (s *ChatService) Answer(ctx context.Context, message string, lat, lng float64) (ChatReply, error) {
	msg := strings.ToLower(strings.TrimSpace(message))
	if msg == "" {
		return ChatReply{}, ErrInvalidArgument
	}

	switch category := classify(msg); category {
	case "greeting":
		return ChatReply{Category: "greeting", Message: "Hello! I can help you find nearby hospitals, police stations and pharmacies, or answer safety questions."}, nil
	case "help":
		return ChatReply{Category: "help", Message: "Ask me about nearby safe places (hospital, police, pharmacy), report an incident from the incidents tab, or use the SOS button in an emergency."}, nil
	case "hospital", "police", "pharmacy":
		return s.placesReply(ctx, category, lat, lng)
	}

	if s.APIKey == "" {
		return ChatReply{Category: "llm", Message: "I'm best at safety questions. Try asking about nearby hospitals, police stations or pharmacies."}, nil
	}
	text, err := s.askLLM(ctx, message)
	if err != nil {
		return ChatReply{}, err
	}
	return ChatReply{Category: "llm", Message: text}, nil
}

func classify(msg string) string {
	for _, g := range chatCategories {
		for _, kw := range g.keywords {
			if strings.Contains(msg, kw) {
				return g.category
			}
		}
	}
	return ""
}

func (s *ChatService) placesReply(ctx context.Context, placeType string, lat, lng float64) (ChatReply, error) {
	if lat == 0 && lng == 0 {
		return ChatReply{Category: placeType, Message: "Share your location and I can list the nearest " + placeType + " options."}, nil
	}
	places, err := s.Places.FindNearby(ctx, lat, lng, 5, placeType, 3)
	if err != nil {
		return ChatReply{}, err
	}
	if len(places) == 0 {
		return ChatReply{Category: placeType, Message: "I couldn't find a " + placeType + " within 5 km of you."}, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Nearest %s options:", placeType)
	for _, p := range places {
		b.WriteString("\n- " + p.Name)
		if p.Address != "" {
			b.WriteString(", " + p.Address)
		}
	}
	return ChatReply{Category: placeType, Message: b.String()}, nil
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *ChatService) askLLM(ctx context.Context, message string) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model: s.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a concise personal-safety assistant. Keep answers short and practical."},
			{Role: "user", Content: message},
		},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("groq: status %d: %s", resp.StatusCode, b)
	}
	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("groq: empty completion")
	}
	return parsed.Choices[0].Message.Content, nil
}
