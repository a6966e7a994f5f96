// Package server exposes a quill pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/quill"
)

// Signals emitted per HTTP request.
var (
	RequestReceived = capitan.NewSignal("http.generate.started", "Generate request received")
	RequestRejected = capitan.NewSignal("http.generate.rejected", "Generate request rejected as invalid")
	RequestServed   = capitan.NewSignal("http.generate.completed", "Generate request answered with an article")
	RequestFailed   = capitan.NewSignal("http.generate.failed", "Generate request failed in the pipeline")
)

// Keys for HTTP event fields.
var (
	HTTPRequestIDKey = capitan.NewStringKey("http.request.id")
	TopicKey         = capitan.NewStringKey("http.topic")
)

// maxBodyBytes bounds the /generate request body.
const maxBodyBytes = 1 << 20

// Runner runs the article pipeline for one topic.
type Runner interface {
	Run(ctx context.Context, query string) (quill.State, error)
}

// Config holds server settings.
type Config struct {
	Service string        // reported by /health, defaults to "quill"
	Timeout time.Duration // per-request pipeline deadline, zero for none
}

// Server routes /health and /generate to an injected Runner.
type Server struct {
	runner  Runner
	service string
	timeout time.Duration
	mux     *http.ServeMux
}

// New creates a server for runner.
func New(runner Runner, config Config) *Server {
	if config.Service == "" {
		config.Service = "quill"
	}
	s := &Server{
		runner:  runner,
		service: config.Service,
		timeout: config.Timeout,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /generate", s.handleGenerate)
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type generateRequest struct {
	Topic string `json:"topic"`
	Query string `json:"query"`
}

type generateResponse struct {
	Topic           string `json:"topic"`
	ResearchSummary string `json:"research_summary"`
	Draft           string `json:"draft"`
	Final           string `json:"final"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Service: s.service})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := uuid.New().String()
	start := time.Now()

	topic := readTopic(r.Body)
	if topic == "" {
		capitan.Info(ctx, RequestRejected,
			HTTPRequestIDKey.Field(requestID),
			quill.HTTPStatusCodeKey.Field(http.StatusBadRequest),
		)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing 'topic' in body"})
		return
	}

	capitan.Info(ctx, RequestReceived,
		HTTPRequestIDKey.Field(requestID),
		TopicKey.Field(topic),
	)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	state, err := s.runner.Run(ctx, topic)
	if err != nil {
		capitan.Error(ctx, RequestFailed,
			HTTPRequestIDKey.Field(requestID),
			TopicKey.Field(topic),
			quill.ErrorKey.Field(err.Error()),
			quill.HTTPStatusCodeKey.Field(http.StatusInternalServerError),
			quill.DurationMsKey.Field(int(time.Since(start).Milliseconds())),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "agent_error", Detail: err.Error()})
		return
	}

	record := state.Record()
	capitan.Info(ctx, RequestServed,
		HTTPRequestIDKey.Field(requestID),
		TopicKey.Field(topic),
		quill.HTTPStatusCodeKey.Field(http.StatusOK),
		quill.DurationMsKey.Field(int(time.Since(start).Milliseconds())),
	)
	writeJSON(w, http.StatusOK, generateResponse{
		Topic:           topic,
		ResearchSummary: record.ResearchSummary,
		Draft:           record.DraftArticle,
		Final:           record.ReviewedArticle,
	})
}

// readTopic returns the topic, or the query alias when topic is empty.
// An unreadable or malformed body yields "".
func readTopic(body io.Reader) string {
	var req generateRequest
	if err := json.NewDecoder(io.LimitReader(body, maxBodyBytes)).Decode(&req); err != nil {
		return ""
	}
	if req.Topic != "" {
		return req.Topic
	}
	return req.Query
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
