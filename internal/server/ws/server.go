package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"github.com/elyesghazel/notedown/internal/common"
	"github.com/elyesghazel/notedown/internal/logging"
	"github.com/elyesghazel/notedown/internal/protocol"
	"github.com/elyesghazel/notedown/internal/server/auth"
	"github.com/elyesghazel/notedown/internal/server/models"
	"github.com/elyesghazel/notedown/internal/server/services"
	"github.com/elyesghazel/notedown/internal/server/store"
)

// Server exposes the sync engine over a WebSocket endpoint at /ws plus a
// store-backed /healthz probe. Room and connection state is process-local.
type Server struct {
	address   string
	logger    logging.Logger
	sync      *services.SyncService
	store     store.Store
	jwtSecret []byte
	tokenTTL  time.Duration
	devMode   bool
	upgrader  websocket.Upgrader
	registry  *Registry

	mu    sync.RWMutex
	conns map[string]*conn
}

func NewServer(address string, log logging.Logger, syncSvc *services.SyncService, st store.Store, secretKey string, tokenTTL time.Duration, allowAnyOrigin bool) *Server {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if allowAnyOrigin {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return &Server{
		address:   address,
		logger:    log.With("module", "ws_server"),
		sync:      syncSvc,
		store:     st,
		jwtSecret: []byte(secretKey),
		tokenTTL:  tokenTTL,
		devMode:   allowAnyOrigin,
		upgrader:  upgrader,
		registry:  NewRegistry(),
		conns:     make(map[string]*conn),
	}
}

// Run serves until ctx is cancelled, then shuts down the listener and closes
// every live connection.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.address, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping WebSocket server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.closeConnections()
	}()

	s.logger.Info(ctx, "Starting WebSocket server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the HTTP routes served by Run. Exposed so tests can mount
// them on an httptest server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.devMode {
		mux.HandleFunc("/token", s.handleDevToken)
	}
	return mux
}

// handleDevToken mints an access token for the requested user id. Only
// mounted in development mode; production deployments receive tokens from
// the account service fronting this one.
func (s *Server) handleDevToken(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user query parameter required", http.StatusBadRequest)
		return
	}
	token, err := auth.GenerateToken(userID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		s.logger.Error(r.Context(), "token mint failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(token))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleWS upgrades the connection, resolves the caller identity from the
// handshake credentials, and starts the read/write pumps.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn(r.Context(), "upgrade failed", "err", err)
		return
	}

	creds := credentialsFromRequest(r)
	identity := auth.ResolveIdentity(r.Context(), creds, s.jwtSecret, s.logger)

	c := &conn{
		id:     ulid.Make().String(),
		sess:   &models.Session{UserID: identity},
		sock:   sock,
		send:   make(chan []byte, 256),
		server: s,
	}
	c.logger = s.logger.With("conn_id", c.id)

	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()

	c.logger.Info(r.Context(), "connection established", "identity", identity)

	go c.writePump()
	go c.readPump()
}

// credentialsFromRequest extracts the signed token (query parameter or
// bearer header) and the optional guest identifier from the handshake.
func credentialsFromRequest(r *http.Request) auth.Credentials {
	creds := auth.Credentials{
		Token:   r.URL.Query().Get("token"),
		GuestID: r.URL.Query().Get("guest"),
	}
	if creds.Token == "" {
		if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
			creds.Token = h[7:]
		}
	}
	return creds
}

// handleMessage dispatches one inbound frame. Join events are acknowledged;
// update events that fail authorization are dropped silently. No inbound
// message may terminate the serve loop.
func (s *Server) handleMessage(ctx context.Context, c *conn, msg []byte) {
	var f protocol.Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		c.logger.Debug(ctx, "malformed frame", "err", err)
		return
	}

	switch f.Type {
	case protocol.EventDocJoin:
		var p protocol.DocJoinPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			c.logger.Debug(ctx, "malformed doc:join payload", "err", err)
			return
		}
		err := s.sync.JoinDocument(ctx, c.sess, p.DocumentID)
		if err == nil {
			s.registry.Join(c.id, services.DocumentRoom(p.DocumentID))
		}
		s.ack(ctx, c, f.ID, err)

	case protocol.EventShareJoin:
		var p protocol.ShareJoinPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			c.logger.Debug(ctx, "malformed share:join payload", "err", err)
			return
		}
		err := s.sync.JoinShare(ctx, c.sess, p.UUID, p.GuestName, p.EditPassword)
		if err == nil {
			s.registry.Join(c.id, services.ShareRoom(p.UUID))
		}
		s.ack(ctx, c, f.ID, err)

	case protocol.EventDocUpdate:
		var p protocol.DocUpdatePayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			c.logger.Debug(ctx, "malformed doc:update payload", "err", err)
			return
		}
		bc, err := s.sync.ApplyDocumentUpdate(ctx, c.sess, p.DocumentID, p.Content)
		if err != nil {
			c.logger.Debug(ctx, "doc:update dropped", "document_id", p.DocumentID, "err", err)
			return
		}
		s.fanOut(bc, c.id)

	case protocol.EventShareUpdate:
		var p protocol.ShareUpdatePayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			c.logger.Debug(ctx, "malformed share:update payload", "err", err)
			return
		}
		bc, err := s.sync.ApplyShareUpdate(ctx, c.sess, p.UUID, p.Content)
		if err != nil {
			c.logger.Debug(ctx, "share:update dropped", "uuid", p.UUID, "err", err)
			return
		}
		s.fanOut(bc, c.id)

	default:
		c.logger.Debug(ctx, "unknown event type", "type", f.Type)
	}
}

// ack reports a join result back to the requesting connection.
func (s *Server) ack(ctx context.Context, c *conn, id int64, joinErr error) {
	payload := protocol.AckPayload{OK: joinErr == nil, Error: reasonText(ctx, c.logger, joinErr)}
	msg, err := protocol.MarshalFrame(protocol.EventAck, id, payload)
	if err != nil {
		c.logger.Error(ctx, "ack marshal failed", "err", err)
		return
	}
	c.enqueue(msg)
}

// reasonText maps a join error to the reason string of the acknowledgment.
// Unexpected errors (store failures and the like) are logged and surfaced as
// a generic internal error.
func reasonText(ctx context.Context, log logging.Logger, err error) string {
	if err == nil {
		return ""
	}
	for _, sentinel := range []error{
		common.ErrGuestNameRequired,
		common.ErrShareNotFound,
		common.ErrShareNotEditable,
		common.ErrInvalidPassword,
		common.ErrOwnerNotFound,
		common.ErrorUnauthorized,
		common.ErrorNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	log.Error(ctx, "join failed", "err", err)
	return common.ErrorInternal.Error()
}

// fanOut delivers one update to every connection in the broadcast's rooms,
// excluding the originating connection in each room so an editor never
// receives its own edit back.
func (s *Server) fanOut(bc *services.Broadcast, origin string) {
	msg, err := protocol.MarshalFrame(protocol.EventDocContent, 0, protocol.DocContentPayload{
		DocumentID: bc.DocumentID,
		Content:    bc.Content,
		Origin:     origin,
	})
	if err != nil {
		s.logger.Error(context.Background(), "broadcast marshal failed", "err", err)
		return
	}

	targets := s.registry.Targets(bc.Rooms, origin)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range targets {
		if c, ok := s.conns[id]; ok {
			c.enqueue(msg)
		}
	}
}

// unregister tears down a connection: all room memberships are removed and
// the session state is discarded. No durability action is taken.
func (s *Server) unregister(c *conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[c.id]; !ok {
		return
	}
	delete(s.conns, c.id)
	s.registry.LeaveAll(c.id)
	close(c.send)
	c.logger.Info(context.Background(), "connection closed")
}

// closeConnections force-closes every live socket during shutdown.
func (s *Server) closeConnections() {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.sock.Close()
	}
}
