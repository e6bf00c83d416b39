package api

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/BirthdayVerse/core/birthday"
	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/core/lookup"
	"github.com/FocuswithJustin/BirthdayVerse/core/verse"
	"github.com/FocuswithJustin/BirthdayVerse/internal/logging"
	"github.com/FocuswithJustin/BirthdayVerse/internal/metrics"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Error codes.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInputIncomplete  = "INPUT_INCOMPLETE"
	CodeInvalidDate      = "INVALID_DATE"
	CodeLookupFailed     = "LOOKUP_FAILED"
)

// EndpointInfo describes one API endpoint.
type EndpointInfo struct {
	Path        string `json:"path"`
	Description string `json:"description"`
}

// ServiceInfo is returned by GET /.
type ServiceInfo struct {
	Name      string         `json:"name"`
	Version   string         `json:"version"`
	Endpoints []EndpointInfo `json:"endpoints"`
}

// HealthInfo is returned by GET /health.
type HealthInfo struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Books         int     `json:"books"`
	Source        string  `json:"source"`
	Sessions      int     `json:"websocket_sessions"`
}

// BookInfo describes one catalog entry.
type BookInfo struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Title    string `json:"title"`
	OSIS     string `json:"osis"`
	Chapters int    `json:"chapters"`
}

// VerseResponse is returned by GET /verse.
type VerseResponse struct {
	Date      birthday.Date      `json:"date"`
	Candidate birthday.Candidate `json:"candidate"`
	Book      string             `json:"book"`
	Result    verse.Result       `json:"result"`
}

var endpoints = []EndpointInfo{
	{"/", "Service information"},
	{"/health", "Health check"},
	{"/books", "Book catalog in index order"},
	{"/verse?date=YYYY-MM-DD", "Birthday verse for a date (or day, month, year)"},
	{"/ws", "WebSocket lookup session"},
	{"/metrics", "Prometheus metrics"},
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, CodeNotFound, "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, ServiceInfo{
		Name:      "birthdayverse",
		Version:   s.cfg.Version,
		Endpoints: endpoints,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(s.started)
	respond(w, http.StatusOK, HealthInfo{
		Status:        "healthy",
		Version:       s.cfg.Version,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
		Books:         s.service.Catalog().Len(),
		Source:        s.cfg.SourceKind,
		Sessions:      s.hub.Count(),
	})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
		return
	}

	books := s.service.Catalog().Books()
	infos := make([]BookInfo, len(books))
	for i, b := range books {
		infos[i] = BookInfo{Index: i, Name: b.Name, Title: b.Title, OSIS: b.OSIS, Chapters: b.Chapters}
	}
	respondList(w, infos, len(infos))
}

func (s *Server) handleVerse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed")
		return
	}

	d, err := dateFromQuery(r)
	if err != nil {
		s.metrics.RecordLookup(metrics.OutcomeIdle)
		if errors.Is(err, errors.ErrIncompleteInput) {
			respondError(w, http.StatusBadRequest, CodeInputIncomplete, lookup.IncompleteMessage)
			return
		}
		message := birthday.InvalidDateMessage
		var verr *errors.ValidationError
		if errors.As(err, &verr) {
			message = verr.Message
		}
		respondError(w, http.StatusBadRequest, CodeInvalidDate, message)
		return
	}

	ctx := r.Context()
	start := time.Now()
	out, err := s.service.Resolve(ctx, d)
	if err != nil {
		s.metrics.RecordLookup(metrics.OutcomeFailed)
		logging.SourceError(ctx, s.cfg.SourceKind, "resolve", err, "date", d.String())
		logging.LookupEvent(ctx, s.cfg.SourceKind, "", metrics.OutcomeFailed, time.Since(start))
		respondError(w, http.StatusBadGateway, CodeLookupFailed, lookup.MessageFor(err))
		return
	}

	outcome := metrics.OutcomeSuccess
	if out.Result.Fallback {
		outcome = metrics.OutcomeFallback
	}
	s.metrics.RecordLookup(outcome)
	logging.LookupEvent(ctx, s.cfg.SourceKind, out.Result.Reference, outcome, time.Since(start), "date", d.String())

	tag, err := resultETag(out.Result)
	if err == nil {
		w.Header().Set("ETag", tag)
		w.Header().Set("Cache-Control", "no-cache")
		if etagMatches(r.Header.Get("If-None-Match"), tag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	respond(w, http.StatusOK, VerseResponse{
		Date:      out.Date,
		Candidate: out.Candidate,
		Book:      out.Book,
		Result:    out.Result,
	})
}

// dateFromQuery reads either ?date=YYYY-MM-DD or ?day=&month=&year=.
// Missing fields yield ErrIncompleteInput; malformed values yield a
// ValidationError carrying the user-facing message.
func dateFromQuery(r *http.Request) (birthday.Date, error) {
	q := r.URL.Query()
	if q.Has("date") {
		d, err := birthday.ParseDate(q.Get("date"))
		if err != nil {
			if errors.Is(err, errors.ErrIncompleteInput) {
				return birthday.Date{}, err
			}
			return birthday.Date{}, errors.NewValidation("date", birthday.InvalidDateMessage)
		}
		if !d.Complete() {
			return birthday.Date{}, errors.ErrIncompleteInput
		}
		return d, nil
	}

	var fields [3]*int
	for i, name := range []string{"day", "month", "year"} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return birthday.Date{}, errors.NewValidation(name, fmt.Sprintf("Invalid %s: must be a whole number.", name))
		}
		fields[i] = &v
	}
	return birthday.FromFields(fields[0], fields[1], fields[2])
}

// resultETag derives a strong ETag from the BLAKE3 hash of the result JSON.
func resultETag(res verse.Result) (string, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

func etagMatches(header, tag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == tag {
			return true
		}
	}
	return false
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func respondList(w http.ResponseWriter, data interface{}, total int) {
	writeResponse(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Total:     total,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeResponse(w, status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func writeResponse(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
