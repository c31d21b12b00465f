package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"trade-analytics-lab/internal/domain"
	"trade-analytics-lab/internal/engine"
	"trade-analytics-lab/internal/logger"
	"trade-analytics-lab/internal/metrics"
	"trade-analytics-lab/internal/observability"
	"trade-analytics-lab/internal/validation"
)

// Server exposes the engine over HTTP. Endpoints:
//
//	GET /healthz                                  liveness
//	GET /api/summary                              current dataset summary
//	GET /api/metrics?group_by=pair[&interval=24h] grouped metric sets
//	GET /api/trades?status=open|closed|all&pair=  accepted records
//	GET /api/rejections                           rejection audit trail
//	GET /metrics                                  Prometheus
//	GET /ws                                       live refresh events
type Server struct {
	engine   *engine.Engine
	hub      *Hub
	obs      *observability.Metrics
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// Options for creating a Server.
type Options struct {
	Engine  *engine.Engine         // required
	Metrics *observability.Metrics // nil disables the ws-client gauge
	Addr    string                 // listen address, e.g. ":8080"
}

// NewServer creates a Server. Call Start (or serve Handler yourself) to
// accept connections.
func NewServer(opts Options) *Server {
	s := &Server{
		engine: opts.Engine,
		hub:    NewHub(),
		obs:    opts.Metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if opts.Metrics != nil {
		s.hub.SetOnChange(func(n int) { opts.Metrics.WSClients.Set(float64(n)) })
	}
	s.httpSrv = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/summary", s.handleSummary)
	mux.HandleFunc("/api/metrics", s.handleMetrics)
	mux.HandleFunc("/api/trades", s.handleTrades)
	mux.HandleFunc("/api/rejections", s.handleRejections)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start listens on the configured address and blocks until the server stops.
func (s *Server) Start() error {
	err := s.httpSrv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP connections and disconnects WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	return s.httpSrv.Shutdown(ctx)
}

// RefreshEvent is broadcast to WebSocket clients after the dataset changes.
type RefreshEvent struct {
	Type        string    `json:"type"`
	SnapshotID  string    `json:"snapshot_id"`
	ShortID     string    `json:"short_id"`
	Accepted    int       `json:"accepted"`
	Rejected    int       `json:"rejected"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NotifyRefresh broadcasts a refresh event for ds.
func (s *Server) NotifyRefresh(ds *engine.Dataset) {
	s.hub.Broadcast(RefreshEvent{
		Type:        "refresh",
		SnapshotID:  ds.SnapshotID,
		ShortID:     ds.ShortID,
		Accepted:    len(ds.Accepted),
		Rejected:    len(ds.Rejected),
		GeneratedAt: time.Now().UTC(),
	})
}

// RunRefreshLoop refreshes the engine every interval until ctx is cancelled,
// broadcasting an event when the snapshot id changes. interval <= 0 disables
// the loop.
func (s *Server) RunRefreshLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSnapshot string
	if ds := s.engine.Dataset(); ds != nil {
		lastSnapshot = ds.SnapshotID
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ds, err := s.engine.Refresh(ctx)
			if err != nil {
				logger.L(ctx).Error("scheduled refresh failed", "error", err)
				continue
			}
			if ds.SnapshotID != lastSnapshot {
				lastSnapshot = ds.SnapshotID
				s.NotifyRefresh(ds)
			}
		}
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SummaryResponse is the JSON response for /api/summary.
type SummaryResponse struct {
	Source     string     `json:"source"`
	SnapshotID string     `json:"snapshot_id"`
	ShortID    string     `json:"short_id"`
	LoadedAt   time.Time  `json:"loaded_at"`
	Accepted   int        `json:"accepted"`
	Rejected   int        `json:"rejected"`
	Open       int        `json:"open"`
	Closed     int        `json:"closed"`
	DateStart  *time.Time `json:"date_start,omitempty"`
	DateEnd    *time.Time `json:"date_end,omitempty"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ds := s.engine.Dataset()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, engine.ErrNoDataset.Error())
		return
	}

	resp := SummaryResponse{
		Source:     ds.Source,
		SnapshotID: ds.SnapshotID,
		ShortID:    ds.ShortID,
		LoadedAt:   ds.LoadedAt,
		Accepted:   len(ds.Accepted),
		Rejected:   len(ds.Rejected),
		Open:       ds.OpenCount(),
		Closed:     ds.ClosedCount(),
	}
	if start, end, ok := ds.DateRange(); ok {
		resp.DateStart = &start
		resp.DateEnd = &end
	}
	writeJSON(w, http.StatusOK, resp)
}

// MetricsResponse is the JSON response for /api/metrics.
type MetricsResponse struct {
	SnapshotID string                        `json:"snapshot_id"`
	GroupKey   string                        `json:"group_key"`
	Groups     map[string]*metrics.MetricSet `json:"groups"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	raw := q.Get("group_by")
	if raw == "" {
		raw = "pair"
	}
	kind, ok := metrics.ParseGroupKind(raw)
	if !ok {
		// Let key validation produce the configuration error message.
		kind = metrics.GroupKind(raw)
	}

	key := metrics.GroupKey{Kind: kind}
	if kind == metrics.GroupByTimeBucket {
		key.BucketInterval = 24 * time.Hour
		if ivRaw := q.Get("interval"); ivRaw != "" {
			iv, err := time.ParseDuration(ivRaw)
			if err != nil {
				writeError(w, http.StatusBadRequest, (&domain.ConfigurationError{
					Param:  "interval",
					Value:  ivRaw,
					Reason: "must be a duration such as 1h or 24h",
				}).Error())
				return
			}
			key.BucketInterval = iv
		}
	}

	sets, err := s.engine.Aggregate(r.Context(), key)
	if err != nil {
		var cfgErr *domain.ConfigurationError
		switch {
		case errors.As(err, &cfgErr):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, engine.ErrNoDataset):
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, MetricsResponse{
		SnapshotID: s.engine.Dataset().SnapshotID,
		GroupKey:   key.CacheKey(),
		Groups:     sets,
	})
}

// TradesResponse is the JSON response for /api/trades.
type TradesResponse struct {
	SnapshotID string                `json:"snapshot_id"`
	Count      int                   `json:"count"`
	Trades     []*domain.TradeRecord `json:"trades"`
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	ds := s.engine.Dataset()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, engine.ErrNoDataset.Error())
		return
	}

	q := r.URL.Query()
	status := q.Get("status")
	if status == "" {
		status = "all"
	}
	if status != "all" && status != "open" && status != "closed" {
		writeError(w, http.StatusBadRequest, (&domain.ConfigurationError{
			Param:  "status",
			Value:  status,
			Reason: "must be open, closed, or all",
		}).Error())
		return
	}
	pair := q.Get("pair")

	trades := make([]*domain.TradeRecord, 0, len(ds.Accepted))
	for _, rec := range ds.Accepted {
		if pair != "" && rec.Pair != pair {
			continue
		}
		switch status {
		case "open":
			if rec.IsClosed() {
				continue
			}
		case "closed":
			if !rec.IsClosed() {
				continue
			}
		}
		trades = append(trades, rec)
	}

	writeJSON(w, http.StatusOK, TradesResponse{
		SnapshotID: ds.SnapshotID,
		Count:      len(trades),
		Trades:     trades,
	})
}

// RejectionRow flattens a validation rejection for the audit endpoint.
type RejectionRow struct {
	TradeID string `json:"trade_id,omitempty"`
	Field   string `json:"field"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// RejectionsResponse is the JSON response for /api/rejections.
type RejectionsResponse struct {
	SnapshotID string         `json:"snapshot_id"`
	Summary    string         `json:"summary"`
	Count      int            `json:"count"`
	Rejections []RejectionRow `json:"rejections"`
}

func (s *Server) handleRejections(w http.ResponseWriter, r *http.Request) {
	ds := s.engine.Dataset()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, engine.ErrNoDataset.Error())
		return
	}

	rows := make([]RejectionRow, len(ds.Rejected))
	for i, rej := range ds.Rejected {
		row := RejectionRow{
			Field:  rej.Field,
			Reason: rej.Reason,
			Detail: rej.Detail,
			Line:   rej.Line,
		}
		if rej.Record != nil {
			row.TradeID = rej.Record.TradeID
		}
		rows[i] = row
	}

	result := validation.Result{Accepted: ds.Accepted, Rejected: ds.Rejected}
	writeJSON(w, http.StatusOK, RejectionsResponse{
		SnapshotID: ds.SnapshotID,
		Summary:    result.Summary(),
		Count:      len(rows),
		Rejections: rows,
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		logger.L(r.Context()).Warn("websocket upgrade failed", "error", err)
		return
	}

	s.hub.Add(conn)
	defer s.hub.Remove(conn)

	// Inbound messages are ignored; the read loop only detects disconnects.
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
