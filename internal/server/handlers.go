package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/rivervm/internal/address"
	"github.com/roach88/rivervm/internal/message"
	"github.com/roach88/rivervm/internal/rvm"
)

// BatchRequest is the body of POST /messageBatch. Each element is a wire
// message object or a JSON string containing one.
type BatchRequest struct {
	Messages []json.RawMessage `json:"messages"`
}

// Rejection identifies the message that stopped a batch.
type Rejection struct {
	Index   int            `json:"index"`
	Code    rvm.RejectCode `json:"code"`
	Message string         `json:"message"`
}

// BatchResponse reports the committed prefix of a batch.
type BatchResponse struct {
	BatchID   string     `json:"batchId"`
	Result    []string   `json:"result"`
	Committed int        `json:"committed"`
	Rejected  *Rejection `json:"rejected,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError sends a JSON error response with the given status code.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) postMessageBatch(w http.ResponseWriter, r *http.Request) {
	batchID := s.batchIDs.Generate()
	logger := s.logger.With("batch_id", batchID)

	var req BatchRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "no messages")
		return
	}
	if len(req.Messages) > s.maxBatchSize {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch of %d exceeds limit of %d", len(req.Messages), s.maxBatchSize))
		return
	}

	// Decode everything up front: a malformed element rejects the whole
	// batch before any message is applied.
	msgs := make([]message.Message, len(req.Messages))
	for i, raw := range req.Messages {
		m, err := message.DecodeWire(bytes.TrimSpace(raw))
		if err != nil {
			logger.Info("malformed message in batch", "index", i, "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": err.Error(),
				"index": i,
			})
			return
		}
		msgs[i] = m
	}

	res := s.router.ProcessBatch(r.Context(), msgs)
	resp := BatchResponse{
		BatchID:   batchID,
		Result:    ids(res.Committed),
		Committed: len(res.Committed),
	}

	status := http.StatusOK
	switch {
	case res.OK():
	case rvm.IsVerificationFailure(res.Err):
		status = http.StatusUnauthorized
		resp.Rejected = rejection(res)
		resp.Error = "verification failed"
	case rvm.IsRejection(res.Err):
		resp.Rejected = rejection(res)
	default:
		status = http.StatusInternalServerError
		resp.Error = "internal error"
		logger.Error("batch failed", "index", res.FailedIndex, "error", res.Err)
	}

	logger.Info("batch processed",
		"messages", len(msgs),
		"committed", resp.Committed,
		"status", status,
	)
	writeJSON(w, status, resp)
}

func rejection(res rvm.BatchResult) *Rejection {
	var re *rvm.RejectError
	msg := res.Err.Error()
	if errors.As(res.Err, &re) {
		msg = re.Message
	}
	return &Rejection{Index: res.FailedIndex, Code: rvm.CodeOf(res.Err), Message: msg}
}

func ids(committed []address.ContentID) []string {
	out := make([]string, len(committed))
	for i, id := range committed {
		out[i] = id.String()
	}
	return out
}

// lookup serves a point read. A nil record with no error is a 404.
func lookup[T any](w http.ResponseWriter, r *http.Request, s *Server, read func(ctx context.Context, id string) (*T, error)) {
	id := chi.URLParam(r, "id")
	if _, err := address.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	rec, err := read(r.Context(), id)
	if err != nil {
		s.logger.Error("lookup failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	lookup(w, r, s, s.reader.Message)
}

func (s *Server) getChannel(w http.ResponseWriter, r *http.Request) {
	lookup(w, r, s, s.reader.Channel)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	lookup(w, r, s, s.reader.Item)
}

func (s *Server) getSubmission(w http.ResponseWriter, r *http.Request) {
	lookup(w, r, s, s.reader.Submission)
}

func (s *Server) getResponse(w http.ResponseWriter, r *http.Request) {
	lookup(w, r, s, s.reader.Response)
}

func (s *Server) getChannelSubmissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := address.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	subs, err := s.reader.Submissions(r.Context(), id)
	if err != nil {
		s.logger.Error("list submissions failed", "channel", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"` // "pass" or "fail"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Checks: make(map[string]Check)}
	for name, check := range s.checks {
		start := time.Now()
		if err := check(ctx); err != nil {
			resp.Checks[name] = Check{Status: "fail", Message: "connection failed"}
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = Check{Status: "pass", Latency: time.Since(start).String()}
	}
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
