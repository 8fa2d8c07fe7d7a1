package gateway

import "encoding/json"

// Frame types for the WebSocket protocol.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
	FrameTypeEvent    = "event"
)

// Protocol version supported by this server.
const ProtocolVersion = 1

// RPC methods served on an authenticated connection.
const (
	MethodConnect        = "connect"
	MethodHealth         = "health"
	MethodChatSend       = "chat.send"
	MethodChatAck        = "chat.ack"
	MethodChatInit       = "chat.init"
	MethodRecipeGet      = "recipe.get"
	MethodRecipeCreate   = "recipe.create"
	MethodRecipeSubmit   = "recipe.submit"
	MethodRecipeUpload   = "recipe.upload"
	MethodRecipeSave     = "recipe.save"
	MethodRecipeSearch   = "recipe.search"
	MethodSessionGet     = "session.get"
	MethodSessionClear   = "session.clear"
	MethodSessionList    = "session.list"
	MethodConfigGet      = "config.get"
	MethodChannelsStatus = "channels.status"
	MethodPluginsList    = "plugins.list"
)

// Events pushed to a connected page.
const (
	EventChallenge           = "connect.challenge"
	EventUIState             = "ui.state"
	EventUISend              = "ui.send"
	EventUINotify            = "ui.notify"
	EventTranscriptAppend    = "transcript.append"
	EventRecipeReplace       = "recipe.replace"
	EventSupplementaryAppend = "supplementary.append"
)

// pageEvents lists the events advertised in hello-ok.
var pageEvents = []string{
	EventChallenge,
	EventUIState,
	EventUISend,
	EventUINotify,
	EventTranscriptAppend,
	EventRecipeReplace,
	EventSupplementaryAppend,
}

// Frame is the base envelope for all WebSocket messages.
// The Type field discriminates between request, response, and event frames.
type Frame struct {
	Type string `json:"type"`

	// Request fields
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`

	// Response fields
	OK      *bool           `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// Event fields
	Event string `json:"event,omitempty"`
	Seq   int64  `json:"seq,omitempty"`

	// Error (response only)
	Error *ErrorShape `json:"error,omitempty"`
}

// ErrorShape is the standard error format in response frames.
type ErrorShape struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// ConnectParams are sent by the page in the initial "connect" request.
type ConnectParams struct {
	MinProtocol int          `json:"minProtocol"`
	MaxProtocol int          `json:"maxProtocol"`
	Client      ClientInfo   `json:"client"`
	Auth        *ConnectAuth `json:"auth,omitempty"`
	Page        string       `json:"page,omitempty"`      // resume a saved page view
	ChefStyle   string       `json:"chefStyle,omitempty"` // dropdown label or backend value
}

// ClientInfo identifies the connecting page. ID scopes local storage, the
// way a browser origin does.
type ClientInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version"`
	Platform    string `json:"platform"`
}

// ConnectAuth carries credentials in the connect request.
type ConnectAuth struct {
	Token    string `json:"token,omitempty"`
	Password string `json:"password,omitempty"`
}

// HelloOK is the server's response payload after successful authentication.
type HelloOK struct {
	Protocol int          `json:"protocol"`
	Server   ServerInfo   `json:"server"`
	Page     PageInfo     `json:"page"`
	Features Features     `json:"features"`
	Policy   ServerPolicy `json:"policy"`
}

// ServerInfo identifies the gateway server.
type ServerInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	ConnID  string `json:"connId"`
}

// PageInfo names the page view the connection drives. The widget opens
// right after hello-ok, so its greeting and state events follow it.
type PageInfo struct {
	Page      string `json:"page"`
	ChefStyle string `json:"chefStyle"`
}

// Features advertises available RPC methods and events.
type Features struct {
	Methods []string `json:"methods"`
	Events  []string `json:"events"`
}

// ServerPolicy communicates protocol limits to the client.
type ServerPolicy struct {
	MaxPayload     int `json:"maxPayload"`
	TimeoutMs      int `json:"timeoutMs"`
	ErrorResetMs   int `json:"errorResetMs,omitempty"`
	TickIntervalMs int `json:"tickIntervalMs"`
}

// Event payloads.

type stateEvent struct {
	State string `json:"state"`
}

type sendEvent struct {
	Enabled bool `json:"enabled"`
}

type notifyEvent struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type transcriptEvent struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
	HTML   string `json:"html"`
}

type htmlEvent struct {
	HTML string `json:"html"`
}

// NewRequest creates a request frame.
func NewRequest(id, method string, params any) (Frame, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:   FrameTypeRequest,
		ID:     id,
		Method: method,
		Params: raw,
	}, nil
}

// NewResponse creates a success response frame.
func NewResponse(id string, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	ok := true
	return Frame{
		Type:    FrameTypeResponse,
		ID:      id,
		OK:      &ok,
		Payload: raw,
	}, nil
}

// NewErrorResponse creates an error response frame.
func NewErrorResponse(id string, errShape ErrorShape) Frame {
	ok := false
	return Frame{
		Type:  FrameTypeResponse,
		ID:    id,
		OK:    &ok,
		Error: &errShape,
	}
}

// NewEvent creates an event frame.
func NewEvent(event string, payload any, seq int64) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:    FrameTypeEvent,
		Event:   event,
		Payload: raw,
		Seq:     seq,
	}, nil
}
