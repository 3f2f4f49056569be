package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gymsync/internal/auth"
)

// Client-to-server and server-to-client message types.
const (
	MessageAuthenticate        = "authenticate"
	MessagePing                = "ping"
	EventPong                  = "pong"
	EventAuthenticationSuccess = "authentication_success"
	EventAuthenticationError   = "authentication_error"
	EventNotification          = "notification"
)

// DefaultAuthTimeout bounds how long a new channel may stay unauthenticated.
const DefaultAuthTimeout = 30 * time.Second

const (
	defaultWriteTimeout          = 10 * time.Second
	defaultPongWait              = 60 * time.Second
	defaultPingPeriod            = 25 * time.Second
	maxInboundMessageBytes int64 = 4096
)

// ClientMessage is a message sent by the client over the channel.
type ClientMessage struct {
	Type  string `json:"type"`
	Token string `json:"token,omitempty"`
}

// TokenVerifier authenticates the credential presented on a new channel.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

// WSChannel is a Channel backed by a websocket connection. Writes are
// serialized; gorilla connections support one concurrent writer.
type WSChannel struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

// NewWSChannel wraps conn.
func NewWSChannel(conn *websocket.Conn) *WSChannel {
	return &WSChannel{conn: conn, writeTimeout: defaultWriteTimeout}
}

// Push writes event as a JSON text frame.
func (c *WSChannel) Push(ctx context.Context, event Event) error {
	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(event)
}

func (c *WSChannel) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

// Server upgrades HTTP requests to realtime channels, authenticates them and
// keeps the Registry in sync with their lifetime.
type Server struct {
	verifier    TokenVerifier
	registry    Registry
	logger      *zap.Logger
	authTimeout time.Duration
	pongWait    time.Duration
	pingPeriod  time.Duration
	upgrader    websocket.Upgrader
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithAuthTimeout bounds how long a new channel may stay unauthenticated.
func WithAuthTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.authTimeout = d
		}
	}
}

// WithAllowedOrigins restricts the Origin header accepted on upgrade. Empty
// allows any origin.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		if len(origins) == 0 {
			return
		}
		allowed := make(map[string]struct{}, len(origins))
		for _, o := range origins {
			allowed[o] = struct{}{}
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
}

// NewServer creates a realtime Server.
func NewServer(verifier TokenVerifier, registry Registry, logger *zap.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		verifier:    verifier,
		registry:    registry,
		logger:      logger,
		authTimeout: DefaultAuthTimeout,
		pongWait:    defaultPongWait,
		pingPeriod:  defaultPingPeriod,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxInboundMessageBytes)

	ch := NewWSChannel(conn)
	ctx := r.Context()

	claims, err := s.authenticate(ctx, conn, r.URL.Query().Get("token"))
	if err != nil {
		s.logger.Info("realtime authentication failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		_ = ch.Push(ctx, Event{Type: EventAuthenticationError, Data: err.Error()})
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
			time.Now().Add(defaultWriteTimeout))
		return
	}
	userID, _ := claims.UserUUID()

	if prev := s.registry.Register(userID, ch); prev != nil {
		s.logger.Debug("realtime channel replaced", zap.String("user_id", userID.String()))
	}
	defer s.registry.Remove(userID, ch)

	if err := ch.Push(ctx, Event{Type: EventAuthenticationSuccess}); err != nil {
		return
	}
	s.logger.Info("realtime channel connected", zap.String("user_id", userID.String()), zap.String("role", claims.Role.String()))

	done := make(chan struct{})
	defer close(done)
	go s.keepAlive(ch, done)

	s.readLoop(ctx, conn, ch, userID)
	s.logger.Info("realtime channel disconnected", zap.String("user_id", userID.String()))
}

// authenticate resolves the channel's identity from the query token or from
// the first client message, which must arrive within authTimeout.
func (s *Server) authenticate(ctx context.Context, conn *websocket.Conn, queryToken string) (*auth.Claims, error) {
	if queryToken != "" {
		return s.verifier.Verify(ctx, queryToken)
	}

	if err := conn.SetReadDeadline(time.Now().Add(s.authTimeout)); err != nil {
		return nil, err
	}
	var msg ClientMessage
	if err := conn.ReadJSON(&msg); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, errors.New("authentication timeout")
		}
		return nil, errors.New("malformed authentication message")
	}
	if msg.Type != MessageAuthenticate {
		return nil, errors.New("first message must authenticate")
	}
	if msg.Token == "" {
		return nil, errors.New("no token provided")
	}
	return s.verifier.Verify(ctx, msg.Token)
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, ch *WSChannel, userID uuid.UUID) {
	_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("realtime read failed", zap.String("user_id", userID.String()), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case MessagePing:
			_ = ch.Push(ctx, Event{Type: EventPong, Data: map[string]string{"time": time.Now().UTC().Format(time.RFC3339)}})
		case MessageAuthenticate:
			// Already authenticated; re-authentication is acknowledged without re-binding.
			_ = ch.Push(ctx, Event{Type: EventAuthenticationSuccess})
		}
	}
}

func (s *Server) keepAlive(ch *WSChannel, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ch.ping(); err != nil {
				return
			}
		}
	}
}
