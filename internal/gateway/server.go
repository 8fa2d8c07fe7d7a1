// Package gateway serves the chat widget to browser pages over WebSocket.
// Every authenticated connection drives its own widget; UI and display
// updates are pushed to the page as events.
package gateway

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/bakebot/internal/channel"
	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/hooks"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/plugin"
	"github.com/soyeahso/bakebot/internal/render"
	"github.com/soyeahso/bakebot/internal/store"
	"github.com/soyeahso/bakebot/internal/version"
	"github.com/soyeahso/bakebot/internal/widget"
)

var ErrClientClosed = errors.New("client connection closed")

const maxPayload = 4 * 1024 * 1024

// Server is the bakebot gateway HTTP + WebSocket server.
type Server struct {
	cfg      config.Config
	auth     ResolvedAuth
	log      *logging.Logger
	clients  *ClientRegistry
	handlers map[string]RequestHandler
	factory  *widget.Factory

	// Persistence (optional; nil runs pages without saved state)
	db       *store.DB
	recipes  *store.RecipeStore
	sessions *store.SessionStore

	channels  *channel.Registry
	hooks     *hooks.Manager
	plugins   *plugin.Registry
	configRaw map[string]any // read-only after New

	startedAt   time.Time
	httpServer  *http.Server
	upgrader    websocket.Upgrader
	authLimiter *authRateLimiter
}

// authRateLimiter tracks failed auth attempts per IP to slow down brute force.
type authRateLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time

	done     chan struct{}
	stopOnce sync.Once
}

const (
	authRateWindow   = 5 * time.Minute
	authRateMaxFails = 10
	authRateMaxIPs   = 10000
)

func newAuthRateLimiter() *authRateLimiter {
	rl := &authRateLimiter{
		failures: make(map[string][]time.Time),
		done:     make(chan struct{}),
	}
	go rl.periodicCleanup(time.Minute)
	return rl
}

func (l *authRateLimiter) periodicCleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
		}
		l.mu.Lock()
		for ip := range l.failures {
			l.prune(ip)
		}
		l.mu.Unlock()
	}
}

// stop ends the cleanup loop. Safe to call more than once.
func (l *authRateLimiter) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// prune drops failures older than the window. Caller holds l.mu.
func (l *authRateLimiter) prune(host string) int {
	cutoff := time.Now().Add(-authRateWindow)
	recent := slices.DeleteFunc(l.failures[host], func(t time.Time) bool { return !t.After(cutoff) })
	if len(recent) == 0 {
		delete(l.failures, host)
		return 0
	}
	l.failures[host] = recent
	return len(recent)
}

func (l *authRateLimiter) allow(remoteAddr string) bool {
	host := hostOf(remoteAddr)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prune(host) < authRateMaxFails
}

func (l *authRateLimiter) recordFailure(remoteAddr string) {
	host := hostOf(remoteAddr)
	l.mu.Lock()
	defer l.mu.Unlock()

	// evict the stalest host once the table is full
	if _, exists := l.failures[host]; !exists && len(l.failures) >= authRateMaxIPs {
		var oldestIP string
		var oldest time.Time
		for ip, times := range l.failures {
			if len(times) > 0 && (oldestIP == "" || times[0].Before(oldest)) {
				oldestIP, oldest = ip, times[0]
			}
		}
		delete(l.failures, oldestIP)
	}
	l.failures[host] = append(l.failures[host], time.Now())
}

func hostOf(remoteAddr string) string {
	host, _, _ := net.SplitHostPort(remoteAddr)
	if host == "" {
		return remoteAddr
	}
	return host
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithStore persists sessions, transcripts and saved recipes in db.
func WithStore(db *store.DB) ServerOption {
	return func(s *Server) {
		s.db = db
	}
}

// WithConfigRaw sets the raw config map served by config.get.
func WithConfigRaw(raw map[string]any) ServerOption {
	return func(s *Server) {
		s.configRaw = raw
	}
}

// WithChannels sets the channel registry for channel status reporting.
func WithChannels(ch *channel.Registry) ServerOption {
	return func(s *Server) {
		s.channels = ch
	}
}

// WithPlugins sets the plugin registry reported by plugins.list.
func WithPlugins(reg *plugin.Registry) ServerOption {
	return func(s *Server) {
		s.plugins = reg
	}
}

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// New creates a new gateway server.
func New(cfg config.Config, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:         cfg,
		auth:        ResolveAuth(cfg.Gateway.Auth),
		log:         log.Sub("gateway"),
		clients:     NewClientRegistry(log.Sub("clients")),
		handlers:    make(map[string]RequestHandler),
		configRaw:   make(map[string]any),
		authLimiter: newAuthRateLimiter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkWebSocketOrigin(cfg.Gateway.AllowedOrigins),
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.db != nil {
		s.recipes = store.NewRecipeStore(s.db)
		s.sessions = store.NewSessionStore(s.db)
	}
	s.factory = widget.NewFactory(cfg, s.db, s.hooks, log)

	s.registerRPCHandlers()
	return s
}

// checkWebSocketOrigin validates WebSocket Origin headers. Requests without
// an Origin (same-origin or non-browser clients) are always accepted.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return isOriginAllowed(origin, allowed)
	}
}

// Handle registers an RPC method handler.
func (s *Server) Handle(method string, handler RequestHandler) {
	s.handlers[method] = handler
}

// Methods returns the registered RPC method names, sorted.
func (s *Server) Methods() []string {
	methods := make([]string, 0, len(s.handlers))
	for m := range s.handlers {
		methods = append(methods, m)
	}
	slices.Sort(methods)
	return methods
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "lan", "auto":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return net.JoinHostPort(host, fmt.Sprint(cfg.Port))
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening for HTTP and WebSocket connections.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg.Gateway)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if s.cfg.Gateway.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(s.cfg.Gateway.TLS.CertPath, s.cfg.Gateway.TLS.KeyPath)
		if err != nil {
			ln.Close()
			return fmt.Errorf("loading TLS certificate: %w", err)
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
		s.log.Info().Msg("TLS enabled")
	} else if s.cfg.Gateway.Bind != "loopback" {
		s.log.Warn().Msg("TLS is not enabled, credentials travel in cleartext")
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Gateway.Bind).
		Str("auth", s.auth.Mode).
		Str("backend", s.cfg.Backend.BaseURL).
		Int("methods", len(s.handlers)).
		Msg("gateway server ready")

	s.hooks.Emit(ctx, hooks.Payload{Event: hooks.EventGatewayStart, Data: map[string]any{"addr": ln.Addr().String()}})

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		s.hooks.Emit(context.Background(), hooks.Payload{Event: hooks.EventGatewayStop})
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.CloseAll()
		s.httpServer.Shutdown(shutdownCtx)
		s.Close()
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the background work New started. Start calls it on
// shutdown; servers that are never started should call it themselves.
func (s *Server) Close() {
	s.authLimiter.stop()
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// handleWebSocket upgrades HTTP to WebSocket, opens the page's widget and
// runs the connection loop.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.authLimiter.allow(r.RemoteAddr) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("rate limited, too many failed auth attempts")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxPayload)

	client, params, err := s.handshake(conn)
	if err != nil {
		s.log.Warn().Err(err).Msg("handshake failed")
		s.authLimiter.recordFailure(r.RemoteAddr)
		conn.Close()
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	wdg, err := s.factory.Open(ctx, widget.PageOptions{
		Page:     params.Page,
		Origin:   params.Client.ID,
		Renderer: render.Multi{client.Page, client},
		UI:       client,
	})
	if err != nil {
		s.log.Error().Err(err).Str("page", params.Page).Msg("failed to open page")
		client.Close()
		return
	}
	if params.ChefStyle != "" {
		wdg.SetChefStyle(params.ChefStyle)
	}
	client.Widget = wdg

	s.clients.Add(client)
	var inflight sync.WaitGroup
	defer func() {
		s.clients.Remove(client.ConnID)
		client.Close()
		cancel()
		inflight.Wait()
		wdg.Close(context.Background())
	}()

	s.readLoop(ctx, client, &inflight)
}

// handshake performs the WebSocket authentication handshake.
// Flow: server sends challenge, page sends connect, server validates and
// answers hello-ok.
func (s *Server) handshake(conn *websocket.Conn) (*Client, ConnectParams, error) {
	var params ConnectParams
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	challenge, err := NewEvent(EventChallenge, map[string]any{
		"nonce": uuid.New().String(),
		"ts":    time.Now().UnixMilli(),
	}, 0)
	if err != nil {
		return nil, params, fmt.Errorf("creating challenge: %w", err)
	}
	if err := conn.WriteJSON(challenge); err != nil {
		return nil, params, fmt.Errorf("sending challenge: %w", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, params, fmt.Errorf("reading connect: %w", err)
	}

	var frame Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		return nil, params, fmt.Errorf("parsing connect frame: %w", err)
	}
	if frame.Type != FrameTypeRequest || frame.Method != MethodConnect {
		sendErrorAndClose(conn, frame.ID, "protocol_error", "expected connect request")
		return nil, params, fmt.Errorf("expected connect request, got type=%s method=%s", frame.Type, frame.Method)
	}
	if err := json.Unmarshal(frame.Params, &params); err != nil {
		sendErrorAndClose(conn, frame.ID, "invalid_params", "invalid connect params")
		return nil, params, fmt.Errorf("parsing connect params: %w", err)
	}
	if params.MinProtocol > ProtocolVersion || (params.MaxProtocol != 0 && params.MaxProtocol < ProtocolVersion) {
		sendErrorAndClose(conn, frame.ID, "protocol_mismatch", fmt.Sprintf("server speaks protocol %d", ProtocolVersion))
		return nil, params, fmt.Errorf("protocol mismatch: client %d-%d", params.MinProtocol, params.MaxProtocol)
	}

	authResult := Authorize(s.auth, params.Auth)
	if !authResult.OK {
		sendErrorAndClose(conn, frame.ID, "unauthorized", authResult.Reason)
		return nil, params, fmt.Errorf("auth failed: %s", authResult.Reason)
	}

	conn.SetReadDeadline(time.Time{})

	if params.Page == "" {
		params.Page = uuid.New().String()
	}
	style := params.ChefStyle
	if style == "" {
		style = s.cfg.Widget.ChefStyle
	}

	client := NewClient(conn, params.Client, authResult, s.cfg.Widget.BotName, s.log.Sub("ws"))
	hello := HelloOK{
		Protocol: ProtocolVersion,
		Server: ServerInfo{
			Version: version.Version,
			Commit:  version.Commit,
			ConnID:  client.ConnID,
		},
		Page: PageInfo{
			Page:      params.Page,
			ChefStyle: domain.ParseChefStyle(style).Label(),
		},
		Features: Features{
			Methods: s.Methods(),
			Events:  pageEvents,
		},
		Policy: ServerPolicy{
			MaxPayload:     maxPayload,
			TimeoutMs:      int(s.cfg.Backend.Timeout().Milliseconds()),
			ErrorResetMs:   int(s.cfg.Widget.ErrorReset().Milliseconds()),
			TickIntervalMs: 30000,
		},
	}
	if err := client.Respond(frame.ID, hello); err != nil {
		return nil, params, fmt.Errorf("sending hello: %w", err)
	}

	s.log.Info().
		Str("connId", client.ConnID).
		Str("clientId", params.Client.ID).
		Str("page", params.Page).
		Str("authMethod", authResult.Method).
		Msg("client authenticated")

	return client, params, nil
}

// readLoop processes incoming frames from an authenticated client. Requests
// are handled concurrently so chat.ack and status calls are not stuck behind
// a running turn; the widget itself rejects overlapping sends.
func (s *Server) readLoop(ctx context.Context, client *Client, inflight *sync.WaitGroup) {
	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Str("connId", client.ConnID).Msg("client closed connection")
			} else {
				s.log.Warn().Err(err).Str("connId", client.ConnID).Msg("read error")
			}
			return
		}

		if frame.Type != FrameTypeRequest {
			s.log.Debug().Str("type", frame.Type).Msg("ignoring non-request frame")
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			s.dispatch(ctx, client, frame)
		}()
	}
}

// dispatch routes a request frame to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, client *Client, frame Frame) {
	handler, ok := s.handlers[frame.Method]
	if !ok {
		client.RespondError(frame.ID, ErrorShape{
			Code:    "method_not_found",
			Message: "unknown method: " + frame.Method,
		})
		return
	}

	handler(&RequestContext{
		Ctx:    ctx,
		Client: client,
		Frame:  frame,
		Server: s,
	})
}

// sendErrorAndClose sends an error response and closes the connection.
func sendErrorAndClose(conn *websocket.Conn, reqID, code, message string) {
	conn.WriteJSON(NewErrorResponse(reqID, ErrorShape{Code: code, Message: message}))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, message))
}
