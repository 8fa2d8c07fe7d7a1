package gateway

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/render"
	"github.com/soyeahso/bakebot/internal/widget"
)

// Client is an authenticated WebSocket connection and the page view it
// drives. It implements widget.UI and render.Renderer by pushing events.
type Client struct {
	ConnID      string
	Info        ClientInfo
	Socket      *websocket.Conn
	AuthResult  AuthResult
	ConnectedAt time.Time

	// Page mirrors everything pushed to the socket so /pages can serve it.
	Page   *render.Page
	Widget *widget.Widget

	seq    atomic.Int64
	mu     sync.Mutex
	closed bool
	log    *logging.Logger
}

// NewClient creates a Client for a newly authenticated WebSocket connection.
func NewClient(conn *websocket.Conn, info ClientInfo, authResult AuthResult, botName string, log *logging.Logger) *Client {
	connID := uuid.New().String()
	return &Client{
		ConnID:      connID,
		Info:        info,
		Socket:      conn,
		AuthResult:  authResult,
		ConnectedAt: time.Now(),
		Page:        render.NewPage(botName),
		log:         log.With("connId", connID),
	}
}

// Send sends a frame to the client. Thread-safe.
func (c *Client) Send(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	return c.Socket.WriteJSON(frame)
}

// SendEvent sends a named event with the next sequence number.
func (c *Client) SendEvent(event string, payload any) error {
	f, err := NewEvent(event, payload, c.seq.Add(1))
	if err != nil {
		return err
	}
	return c.Send(f)
}

// Respond sends a success response for the given request ID.
func (c *Client) Respond(reqID string, payload any) error {
	f, err := NewResponse(reqID, payload)
	if err != nil {
		return err
	}
	return c.Send(f)
}

// RespondError sends an error response for the given request ID.
func (c *Client) RespondError(reqID string, errShape ErrorShape) error {
	return c.Send(NewErrorResponse(reqID, errShape))
}

// ReadFrame reads the next frame from the WebSocket.
func (c *Client) ReadFrame() (Frame, error) {
	_, msg, err := c.Socket.ReadMessage()
	if err != nil {
		return Frame{}, err
	}
	var f Frame
	if err := json.Unmarshal(msg, &f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Close closes the WebSocket connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.Socket.Close()
}

func (c *Client) push(event string, payload any) {
	if err := c.SendEvent(event, payload); err != nil && !errors.Is(err, ErrClientClosed) {
		c.log.Warn().Err(err).Str("event", event).Msg("failed to push event")
	}
}

// widget.UI

func (c *Client) SetState(s widget.State) {
	c.push(EventUIState, stateEvent{State: string(s)})
}

func (c *Client) SetSendEnabled(enabled bool) {
	c.push(EventUISend, sendEvent{Enabled: enabled})
}

func (c *Client) Notify(kind widget.NoticeKind, message string) {
	c.push(EventUINotify, notifyEvent{Kind: string(kind), Message: message})
}

// render.Renderer

func (c *Client) AppendMessage(text string, sender render.Sender) {
	markup := render.PlainHTML(text)
	if sender != render.SenderUser {
		markup = render.Markup(text)
	}
	c.push(EventTranscriptAppend, transcriptEvent{Sender: string(sender), Text: text, HTML: markup})
}

func (c *Client) ReplaceRecipePanel(html string) {
	c.push(EventRecipeReplace, htmlEvent{HTML: html})
}

func (c *Client) AppendSupplementaryOutput(html string) {
	c.push(EventSupplementaryAppend, htmlEvent{HTML: html})
}

// ClientRegistry manages connected clients.
type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client // connID → Client
	log     *logging.Logger
}

// NewClientRegistry creates an empty client registry.
func NewClientRegistry(log *logging.Logger) *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Add registers a connected client.
func (r *ClientRegistry) Add(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.ConnID] = c
	r.log.Info().Str("connId", c.ConnID).Str("client", c.Info.ID).Msg("client connected")
}

// Remove unregisters a client by connection ID.
func (r *ClientRegistry) Remove(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, connID)
	r.log.Info().Str("connId", connID).Msg("client disconnected")
}

// Get returns a client by connection ID.
func (r *ClientRegistry) Get(connID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[connID]
	return c, ok
}

// Count returns the number of connected clients.
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// CloseAll closes all connected clients.
func (r *ClientRegistry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.clients {
		c.Close()
		delete(r.clients, id)
	}
}
