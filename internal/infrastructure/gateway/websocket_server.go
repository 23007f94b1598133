package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/internal/core/services"
	"streampulse/pkg/tracing"
	"streampulse/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxChatTextLen = 500

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocketServer is the realtime edge for a signed-in session: it replays
// undelivered notifications, streams new ones as they are inserted, relays
// chat, and renews the session's presence marker on every heartbeat.
type WebSocketServer struct {
	auth          services.AuthService
	presence      ports.PresenceService
	notifications ports.NotificationRepository
	feed          ports.NotificationFeed
	chat          ports.ChatRelay
	profiles      ports.ProfileRepository
	metrics       *services.MetricsService

	connections map[domain.Email]*websocket.Conn
	mu          sync.RWMutex

	retention    time.Duration
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	logger *zap.SugaredLogger
}

type Config struct {
	// Retention is how long delivered notification rows are kept before
	// expiry.
	Retention    time.Duration
	PingInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ClientMessage is what a session sends upstream.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage is what the gateway pushes downstream.
type ServerMessage struct {
	Type         string               `json:"type"`
	Notification *domain.Notification `json:"notification,omitempty"`
	Chat         *domain.ChatMessage  `json:"chat,omitempty"`
	Error        string               `json:"error,omitempty"`
}

type chatJoinPayload struct {
	Channel domain.Username `json:"channel"`
}

type chatSendPayload struct {
	Channel domain.Username `json:"channel"`
	Text    string          `json:"text"`
}

func NewWebSocketServer(
	auth services.AuthService,
	presence ports.PresenceService,
	notifications ports.NotificationRepository,
	feed ports.NotificationFeed,
	chat ports.ChatRelay,
	profiles ports.ProfileRepository,
	metrics *services.MetricsService,
	cfg Config,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &WebSocketServer{
		auth:          auth,
		presence:      presence,
		notifications: notifications,
		feed:          feed,
		chat:          chat,
		profiles:      profiles,
		metrics:       metrics,
		connections:   make(map[domain.Email]*websocket.Conn),
		retention:     cfg.Retention,
		pingInterval:  cfg.PingInterval,
		readTimeout:   cfg.ReadTimeout,
		writeTimeout:  cfg.WriteTimeout,
		logger:        logger,
	}
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	email, err := s.authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// A session reconnecting replaces its previous connection.
	s.mu.Lock()
	existingConn, isReconnect := s.connections[email]
	if isReconnect && existingConn != nil {
		existingConn.Close()
		s.logger.Infow("closing old connection for reconnecting session", "email", email)
	}
	s.connections[email] = conn
	s.mu.Unlock()

	ctx := r.Context()
	if err := s.presence.Connect(ctx, email); err != nil {
		s.logger.Warnw("failed to mark session online", "email", email, "error", err)
	}

	s.logger.Infow("session connected", "email", email, "reconnect", isReconnect)

	// Catch-up before subscribing would leave a gap; subscribe first, then
	// replay, and dedupe the overlap against the replayed rows. The feed
	// carries the copy as published, so its Sent flag says nothing about
	// rows the replay already pushed.
	feedCh, unsubscribe, err := s.feed.Subscribe(ctx, email)
	if err != nil {
		s.logger.Errorw("failed to subscribe to notification feed", "email", email, "error", err)
		s.dropConnection(email, conn)
		return
	}

	replayed := s.replayUnsent(ctx, email, conn)

	conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	messageChan := make(chan ClientMessage, 10)
	errorChan := make(chan error, 1)
	// All writes happen in the select loop below; chat messages are funneled
	// here because gorilla connections allow a single writer.
	chatChan := make(chan *domain.ChatMessage, 16)
	// Closed on teardown so the reader can never block on a full
	// messageChan after the select loop has exited.
	readerDone := make(chan struct{})

	go func() {
		for {
			var msg ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				select {
				case errorChan <- err:
				case <-readerDone:
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.readTimeout))
			select {
			case messageChan <- msg:
			case <-readerDone:
				return
			}
		}
	}()

	session := &sessionState{chatOut: chatChan}

	for {
		select {
		case msg := <-messageChan:
			if err := s.handleMessage(ctx, email, session, msg); err != nil {
				s.logger.Infow("error handling message from session", "email", email, "error", err)
				s.sendError(conn, err.Error())
			}

		case n, ok := <-feedCh:
			if !ok {
				goto cleanup
			}
			if _, seen := replayed[n.ID]; seen {
				// The row arrived in the subscribe/replay overlap window
				// and has already been pushed from the store.
				delete(replayed, n.ID)
				continue
			}
			s.deliver(ctx, conn, n)

		case cm := <-chatChan:
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteJSON(ServerMessage{Type: "chat", Chat: cm}); err != nil {
				s.logger.Infow("failed to relay chat message", "email", email, "error", err)
				goto cleanup
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Infow("error sending ping", "email", email, "error", err)
				goto cleanup
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading message from session", "email", email, "error", err)
			}
			goto cleanup
		}
	}

cleanup:
	close(readerDone)
	unsubscribe()
	session.leaveChat()

	s.dropConnection(email, conn)

	if err := s.presence.Disconnect(context.Background(), email); err != nil {
		s.logger.Infow("error clearing presence on disconnect", "email", email, "error", err)
	}

	s.logger.Infow("session disconnected", "email", email)
}

// sessionState tracks what a single connection has joined.
type sessionState struct {
	chatOut    chan<- *domain.ChatMessage
	chatCancel func()
	chatDone   chan struct{}
	username   domain.Username
}

func (st *sessionState) leaveChat() {
	if st.chatCancel != nil {
		st.chatCancel()
		<-st.chatDone
		st.chatCancel = nil
		st.chatDone = nil
	}
}

func (s *WebSocketServer) authenticate(r *http.Request) (domain.Email, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		auth := r.Header.Get("Authorization")
		token = strings.TrimPrefix(auth, "Bearer ")
	}
	if token == "" {
		return "", fmt.Errorf("missing token")
	}

	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		return "", err
	}
	if claims.Email == "" {
		return "", fmt.Errorf("token carries no identity")
	}
	return claims.Email, nil
}

// replayUnsent pushes every pending notification row to a fresh session,
// oldest first, marking each as delivered. The returned set holds the IDs it
// handled so the feed path can skip copies from the overlap window.
func (s *WebSocketServer) replayUnsent(ctx context.Context, email domain.Email, conn *websocket.Conn) map[domain.NotificationID]struct{} {
	replayed := make(map[domain.NotificationID]struct{})

	pending, err := s.notifications.ListUnsent(ctx, email)
	if err != nil {
		s.logger.Errorw("failed to list unsent notifications", "email", email, "error", err)
		return replayed
	}
	for _, n := range pending {
		s.deliver(ctx, conn, n)
		replayed[n.ID] = struct{}{}
	}
	return replayed
}

// deliver writes one notification to the session and marks the row sent.
// The row stays unsent if the write fails, so the next session replays it.
func (s *WebSocketServer) deliver(ctx context.Context, conn *websocket.Conn, n *domain.Notification) {
	if n.Sent {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := conn.WriteJSON(ServerMessage{Type: "notification", Notification: n}); err != nil {
		s.logger.Infow("failed to deliver notification", "id", n.ID, "error", err)
		return
	}

	if err := s.notifications.MarkSent(ctx, n.ID, s.retention); err != nil {
		if !errors.Is(err, domain.ErrNotificationNotFound) {
			s.logger.Warnw("failed to mark notification sent", "id", n.ID, "error", err)
		}
		return
	}
	s.metrics.RecordNotificationSent()
}

func (s *WebSocketServer) handleMessage(ctx context.Context, email domain.Email, session *sessionState, msg ClientMessage) error {
	ctx, span := tracing.TraceGatewayMessage(ctx, msg.Type, string(email))
	defer span.End()

	if err := s.dispatchMessage(ctx, email, session, msg); err != nil {
		tracing.RecordError(ctx, err)
		return err
	}
	return nil
}

func (s *WebSocketServer) dispatchMessage(ctx context.Context, email domain.Email, session *sessionState, msg ClientMessage) error {
	switch msg.Type {
	case "heartbeat":
		return s.presence.Heartbeat(ctx, email)
	case "away":
		return s.presence.Away(ctx, email)
	case "active":
		return s.presence.Connect(ctx, email)
	case "chat_join":
		return s.handleChatJoin(ctx, email, session, msg)
	case "chat_send":
		return s.handleChatSend(ctx, email, session, msg)
	case "chat_leave":
		session.leaveChat()
		return nil
	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func (s *WebSocketServer) handleChatJoin(ctx context.Context, email domain.Email, session *sessionState, msg ClientMessage) error {
	var payload chatJoinPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid chat_join payload: %w", err)
	}
	if payload.Channel == "" {
		return fmt.Errorf("channel is required")
	}

	// One chat room per session; joining another leaves the current one.
	session.leaveChat()

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to resolve sender profile: %w", err)
	}
	session.username = profile.Username

	chatCh, cancel, err := s.chat.Join(ctx, payload.Channel)
	if err != nil {
		return fmt.Errorf("failed to join chat channel: %w", err)
	}

	done := make(chan struct{})
	session.chatCancel = cancel
	session.chatDone = done

	go func() {
		defer close(done)
		for cm := range chatCh {
			select {
			case session.chatOut <- cm:
			default:
				// Chat is lossy when the session cannot keep up.
			}
		}
	}()

	return nil
}

func (s *WebSocketServer) handleChatSend(ctx context.Context, email domain.Email, session *sessionState, msg ClientMessage) error {
	var payload chatSendPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid chat_send payload: %w", err)
	}
	if payload.Channel == "" || payload.Text == "" {
		return fmt.Errorf("channel and text are required")
	}

	from := session.username
	if from == "" {
		profile, err := s.profiles.GetByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to resolve sender profile: %w", err)
		}
		from = profile.Username
	}

	// Strip control characters and cap the length before the message is
	// broadcast to every subscriber.
	text := utils.TruncateString(utils.SanitizeString(payload.Text), maxChatTextLen)
	if text == "" {
		return fmt.Errorf("text is empty after sanitization")
	}

	return s.chat.Send(ctx, &domain.ChatMessage{
		Channel: payload.Channel,
		From:    from,
		Text:    text,
		SentAt:  time.Now(),
	})
}

func (s *WebSocketServer) sendError(conn *websocket.Conn, message string) {
	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if err := conn.WriteJSON(ServerMessage{Type: "error", Error: message}); err != nil {
		s.logger.Infow("failed to send error message", "error", err)
	}
}

func (s *WebSocketServer) dropConnection(email domain.Email, conn *websocket.Conn) {
	s.mu.Lock()
	if s.connections[email] == conn {
		delete(s.connections, email)
	}
	s.mu.Unlock()
}

// ConnectedSessions reports how many sessions are currently attached, for
// health reporting.
func (s *WebSocketServer) ConnectedSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}
