package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/BirthdayVerse/core/birthday"
	"github.com/FocuswithJustin/BirthdayVerse/core/errors"
	"github.com/FocuswithJustin/BirthdayVerse/core/lookup"
	"github.com/FocuswithJustin/BirthdayVerse/internal/logging"
	"github.com/FocuswithJustin/BirthdayVerse/internal/metrics"
	"github.com/FocuswithJustin/BirthdayVerse/internal/server"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 16
)

// MalformedMessage is sent when a frame is not a valid lookup request.
const MalformedMessage = `Malformed request. Send {"day", "month", "year"} or {"date"}.`

// lookupRequest is one client frame. Either Date or the three fields are used.
type lookupRequest struct {
	Day   *int   `json:"day"`
	Month *int   `json:"month"`
	Year  *int   `json:"year"`
	Date  string `json:"date,omitempty"`
}

// Hub tracks open lookup sessions.
type Hub struct {
	mu       sync.Mutex
	sessions map[*session]struct{}
	closed   bool
	wg       sync.WaitGroup
	metrics  *metrics.Metrics
}

// NewHub creates an empty hub.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		sessions: make(map[*session]struct{}),
		metrics:  m,
	}
}

// register adds s unless the hub is closed.
func (h *Hub) register(s *session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.sessions[s] = struct{}{}
	h.wg.Add(1)
	h.metrics.WebSocketSessions.Inc()
	return true
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s]; !ok {
		return
	}
	delete(h.sessions, s)
	h.wg.Done()
	h.metrics.WebSocketSessions.Dec()
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// CloseAll closes every open session and refuses new ones.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.cancel()
	}
}

// Wait blocks until every session has finished or ctx is done.
func (h *Hub) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// session is one WebSocket connection running lookups for a single user.
// Each new request cancels the previous one and the tracker drops any
// result that is no longer the latest.
type session struct {
	hub     *Hub
	conn    *websocket.Conn
	service *lookup.Service
	tracker *lookup.Tracker
	bucket  *tokenBucket
	metrics *metrics.Metrics
	source  string
	remote  string
	maxSize int64

	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	cancelLookup context.CancelFunc
	lookups      sync.WaitGroup
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	// Non-browser clients send no Origin.
	if origin == "" {
		return true
	}
	if server.IsOriginAllowed(origin, s.cfg.AllowedOrigins) {
		return true
	}

	logging.SecurityEvent("websocket_origin_rejected", "api",
		"origin", origin,
		"remote", server.ClientIP(r))
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		hub:     s.hub,
		conn:    conn,
		service: s.service,
		tracker: lookup.NewTracker(),
		bucket:  newMessageRateBucket(s.cfg.WebSocket.MaxMessageRate),
		metrics: s.metrics,
		source:  s.cfg.SourceKind,
		remote:  server.ClientIP(r),
		maxSize: s.cfg.WebSocket.MaxMessageSize,
		send:    make(chan []byte, sendBuffer),
		ctx:     logging.WithRequestID(ctx, logging.GetRequestID(r.Context())),
		cancel:  cancel,
	}

	if !s.hub.register(sess) {
		cancel()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	logging.WebSocketEvent("session_opened", s.hub.Count(), "remote", sess.remote)

	go sess.writePump()
	go sess.readPump()
}

// readPump reads lookup requests until the connection closes, then tears
// the session down.
func (s *session) readPump() {
	defer func() {
		s.cancel()
		s.cancelInFlight()
		s.lookups.Wait()
		s.hub.unregister(s)
		s.conn.Close()
		logging.WebSocketEvent("session_closed", s.hub.Count(), "remote", s.remote)
	}()

	s.conn.SetReadLimit(s.maxSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Warn("websocket unexpected close", "error", err, "remote", s.remote)
			}
			return
		}

		if !s.bucket.allow() {
			logging.SecurityEvent("websocket_rate_limited", "api", "remote", s.remote)
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "rate limit exceeded"),
				time.Now().Add(writeWait))
			return
		}

		s.handle(message)
	}
}

// writePump is the only writer of data frames on the connection.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.cancel()
		s.conn.Close()
	}()

	for {
		select {
		case message := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.ctx.Done():
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// handle processes one client frame.
func (s *session) handle(message []byte) {
	var req lookupRequest
	if err := json.Unmarshal(message, &req); err != nil {
		s.fail(MalformedMessage)
		return
	}

	in := lookup.Input{Day: req.Day, Month: req.Month, Year: req.Year}
	if req.Date != "" {
		d, err := birthday.ParseDate(req.Date)
		switch {
		case errors.Is(err, errors.ErrIncompleteInput):
			s.idle()
			return
		case err != nil:
			s.fail(birthday.InvalidDateMessage)
			return
		}
		in = lookup.NewInput(d)
	}

	if _, err := birthday.FromFields(in.Day, in.Month, in.Year); err != nil {
		s.idle()
		return
	}

	s.start(in)
}

// start cancels any in-flight lookup and begins a new one.
func (s *session) start(in lookup.Input) {
	s.cancelInFlight()

	ctx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	s.cancelLookup = cancel
	s.mu.Unlock()

	id := s.tracker.Begin()
	s.enqueue(lookup.Loading(id))

	s.lookups.Add(1)
	go func() {
		defer s.lookups.Done()
		defer cancel()

		start := time.Now()
		st := s.service.Lookup(ctx, id, in)
		if !s.tracker.Complete(st) {
			logging.DebugContext(s.ctx, "discarding stale lookup", "request_id", id)
			return
		}

		outcome := stateOutcome(st)
		s.metrics.RecordLookup(outcome)
		reference := ""
		if st.Result != nil {
			reference = st.Result.Reference
		}
		logging.LookupEvent(s.ctx, s.source, reference, outcome, time.Since(start), "request_id", id)

		s.enqueue(st)
	}()
}

func (s *session) cancelInFlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelLookup != nil {
		s.cancelLookup()
		s.cancelLookup = nil
	}
}

// idle resets the tracker for incomplete input; no lookup is performed.
func (s *session) idle() {
	s.cancelInFlight()
	s.metrics.RecordLookup(metrics.OutcomeIdle)
	st := s.tracker.Reset()
	s.enqueue(st.WithRequestID(s.tracker.Latest()))
}

// fail ends a new request immediately with message.
func (s *session) fail(message string) {
	s.cancelInFlight()
	id := s.tracker.Begin()
	st := lookup.Failed(id, message)
	s.tracker.Complete(st)
	s.enqueue(st)
}

// enqueue hands a state to writePump unless the session is closing.
func (s *session) enqueue(st lookup.State) {
	data, err := json.Marshal(st)
	if err != nil {
		logging.Error("websocket encode failed", "error", err)
		return
	}

	select {
	case s.send <- data:
	case <-s.ctx.Done():
	}
}

func stateOutcome(st lookup.State) string {
	switch st.Kind {
	case lookup.KindSuccess:
		if st.Result != nil && st.Result.Fallback {
			return metrics.OutcomeFallback
		}
		return metrics.OutcomeSuccess
	case lookup.KindFailed:
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeIdle
	}
}
