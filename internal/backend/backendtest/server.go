// Package backendtest provides an in-memory kit assembly backend for tests.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"

	"kitlab/internal/kit"
)

// Prefix is where the fake mounts its routes, matching the legacy service.
const Prefix = "/api/kit"

// Reply is a canned response.
type Reply struct {
	Status int
	Body   string
}

// Server is a fake backend. Generate replies are served from a FIFO queue;
// once the queue is empty the default reply is used.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	generate     []Reply
	defaultReply Reply
	history      Reply
	kits         map[string]string
	requests     []kit.GenerationRequest
	headers      []http.Header
	historyCalls int
	hold         chan struct{}
}

// New starts a fake backend. Call Close when done.
func New() *Server {
	s := &Server{
		defaultReply: Reply{Status: http.StatusOK, Body: `{"response":"ok"}`},
		history:      Reply{Status: http.StatusOK, Body: `[]`},
		kits:         make(map[string]string),
	}

	r := chi.NewRouter()
	r.Route(Prefix, func(r chi.Router) {
		r.Post("/generate", s.handleGenerate)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleKit)
	})
	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL returns the root the client should be configured with.
func (s *Server) BaseURL() string {
	return s.URL + Prefix
}

// QueueGenerate appends a reply for the next POST /generate.
func (s *Server) QueueGenerate(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generate = append(s.generate, Reply{Status: status, Body: body})
}

// SetHistory sets the GET /history reply.
func (s *Server) SetHistory(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = Reply{Status: status, Body: body}
}

// SetKit registers a kit body for GET /history/{id}.
func (s *Server) SetKit(id, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kits[id] = body
}

// Hold blocks every generate handler until the returned release func is called.
func (s *Server) Hold() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold = ch
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.hold = nil
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Requests returns every decoded generation request received so far.
func (s *Server) Requests() []kit.GenerationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]kit.GenerationRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Headers returns the request headers of every generation request.
func (s *Server) Headers() []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]http.Header, len(s.headers))
	copy(out, s.headers)
	return out
}

// HistoryCalls counts GET /history requests.
func (s *Server) HistoryCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyCalls
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req kit.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.headers = append(s.headers, r.Header.Clone())
	reply := s.defaultReply
	if len(s.generate) > 0 {
		reply = s.generate[0]
		s.generate = s.generate[1:]
	}
	hold := s.hold
	s.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}
	write(w, reply)
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.historyCalls++
	reply := s.history
	s.mu.Unlock()
	write(w, reply)
}

func (s *Server) handleKit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	body, ok := s.kits[id]
	s.mu.Unlock()

	if !ok {
		write(w, Reply{Status: http.StatusNotFound, Body: `{"error":"not found"}`})
		return
	}
	write(w, Reply{Status: http.StatusOK, Body: body})
}

func write(w http.ResponseWriter, reply Reply) {
	w.Header().Set("Content-Type", "application/json")
	status := reply.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(reply.Body))
}
