package email

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Message is one email accepted by the sink.
type Message struct {
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// Sink stands in for the outbound mail provider in development. It accepts
// the same /send requests the receipt worker makes and keeps the most recent
// messages in memory so they can be inspected.
type Sink struct {
	mu       sync.Mutex
	messages []Message
	capacity int
	logger   *slog.Logger
}

func NewSink(capacity int, logger *slog.Logger) *Sink {
	if capacity <= 0 {
		capacity = 100
	}
	return &Sink{capacity: capacity, logger: logger}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (s *Sink) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !strings.Contains(req.To, "@") {
		s.writeError(w, http.StatusBadRequest, "invalid recipient")
		return
	}

	s.record(Message{To: req.To, Subject: req.Subject, Body: req.Body, ReceivedAt: time.Now().UTC()})
	s.logger.Info("email accepted", "to", req.To, "subject", req.Subject)

	s.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
}

// HandleList returns the retained messages, oldest first.
func (s *Sink) HandleList(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Messages())
}

func (s *Sink) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message{}, s.messages...)
}

func (s *Sink) record(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
	if over := len(s.messages) - s.capacity; over > 0 {
		s.messages = append([]Message(nil), s.messages[over:]...)
	}
}

func (s *Sink) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Sink) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
