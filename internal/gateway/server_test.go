package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/bakebot/internal/config"
	"github.com/soyeahso/bakebot/internal/domain"
	"github.com/soyeahso/bakebot/internal/hooks"
	"github.com/soyeahso/bakebot/internal/logging"
	"github.com/soyeahso/bakebot/internal/plugin"
	"github.com/soyeahso/bakebot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token-123"

// recipeBackend is a stand-in for the recipe backend.
type recipeBackend struct {
	*httptest.Server

	chatHits atomic.Int32
	fail     atomic.Bool

	mu      sync.Mutex
	gate    chan struct{} // when set, chat calls block until closed
	entered chan struct{}
	cleared string
}

func newRecipeBackend(t *testing.T) *recipeBackend {
	t.Helper()
	b := &recipeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /get-chef-response", func(w http.ResponseWriter, r *http.Request) {
		b.chatHits.Add(1)
		b.mu.Lock()
		gate, entered := b.gate, b.entered
		b.mu.Unlock()
		if gate != nil {
			close(entered)
			<-gate
		}
		if b.fail.Load() {
			http.Error(w, "kitchen on fire", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"message":"Try **brown butter**.","session_id":"s-1","thread_id":"t-1","tool_return_values":[]}`))
	})
	mux.HandleFunc("POST /format-recipe", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Focaccia","ingredients":["flour","water","salt"],"directions":["mix","proof","bake"]}`))
	})
	mux.HandleFunc("POST /create_thread_run", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Brioche","ingredients":["flour","eggs","butter"],"directions":["mix","proof","bake"]}`))
	})
	mux.HandleFunc("POST /initialize-general-chat", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chat_history":[],"session_id":"s-init"}`))
	})
	mux.HandleFunc("GET /status_call", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"session_id":%q,"chat_history":[]}`, r.Header.Get("session_id"))
	})
	mux.HandleFunc("DELETE /clear_chat_history", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.cleared = r.Header.Get("session_id")
		b.mu.Unlock()
		w.Write([]byte(`{"detail":"Chat history cleared"}`))
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *recipeBackend) hold() (release func(), entered <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = make(chan struct{})
	b.entered = make(chan struct{})
	gate := b.gate
	return func() { close(gate) }, b.entered
}

func testServer(t *testing.T) (*Server, *httptest.Server, *recipeBackend) {
	t.Helper()
	backend := newRecipeBackend(t)

	cfg := config.Defaults()
	cfg.Backend.BaseURL = backend.URL
	cfg.Widget.ErrorResetSeconds = 0
	cfg.Gateway.Auth.Mode = "token"
	cfg.Gateway.Auth.Token = testToken

	log := logging.New(nil, "silent")
	db, err := store.Open(store.MemoryPath, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	raw := map[string]any{
		"widget":  map[string]any{"botName": "bakebot"},
		"backend": map[string]any{"apiKey": "secret"},
	}
	hm := hooks.NewManager(log)
	plugins := plugin.NewRegistry(hm, log)
	require.NoError(t, plugins.Register(plugin.NewTurnStats()))
	require.NoError(t, plugins.InitAll(context.Background()))
	t.Cleanup(plugins.CloseAll)

	srv := New(cfg, log, WithStore(db), WithConfigRaw(raw), WithHooks(hm), WithPlugins(plugins))
	t.Cleanup(srv.Close)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts, backend
}

// pageConn is an authenticated test connection that keeps the events it
// has seen.
type pageConn struct {
	t      *testing.T
	conn   *websocket.Conn
	hello  HelloOK
	events []Frame
}

func dialPage(t *testing.T, ts *httptest.Server, page string) *pageConn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var challenge Frame
	require.NoError(t, conn.ReadJSON(&challenge))
	require.Equal(t, EventChallenge, challenge.Event)

	req, err := NewRequest("hello", MethodConnect, ConnectParams{
		MinProtocol: 1,
		MaxProtocol: 1,
		Client:      ClientInfo{ID: "test-origin", Version: "1.0.0", Platform: "linux"},
		Auth:        &ConnectAuth{Token: testToken},
		Page:        page,
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(req))

	pc := &pageConn{t: t, conn: conn}
	resp := pc.await("hello")
	require.True(t, *resp.OK, "connect failed: %+v", resp.Error)
	require.NoError(t, json.Unmarshal(resp.Payload, &pc.hello))
	return pc
}

// await reads frames until the response to id arrives.
func (pc *pageConn) await(id string) Frame {
	pc.t.Helper()
	pc.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var f Frame
		require.NoError(pc.t, pc.conn.ReadJSON(&f))
		if f.Type == FrameTypeEvent {
			pc.events = append(pc.events, f)
			continue
		}
		if f.Type == FrameTypeResponse && f.ID == id {
			return f
		}
	}
}

func (pc *pageConn) send(id, method string, params any) {
	pc.t.Helper()
	req, err := NewRequest(id, method, params)
	require.NoError(pc.t, err)
	require.NoError(pc.t, pc.conn.WriteJSON(req))
}

func (pc *pageConn) call(method string, params any) Frame {
	pc.t.Helper()
	id := fmt.Sprintf("%s-%d", method, time.Now().UnixNano())
	pc.send(id, method, params)
	return pc.await(id)
}

// waitEvent reads until an event with the given name and payload fragment
// arrives.
func (pc *pageConn) waitEvent(name, fragment string) Frame {
	pc.t.Helper()
	for _, f := range pc.events {
		if f.Event == name && strings.Contains(string(f.Payload), fragment) {
			return f
		}
	}
	pc.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var f Frame
		require.NoError(pc.t, pc.conn.ReadJSON(&f))
		if f.Type != FrameTypeEvent {
			continue
		}
		pc.events = append(pc.events, f)
		if f.Event == name && strings.Contains(string(f.Payload), fragment) {
			return f
		}
	}
}

// eventNames lists received event names, optionally filtered.
func (pc *pageConn) eventNames(only ...string) []string {
	var names []string
	for _, f := range pc.events {
		if len(only) == 0 || slices.Contains(only, f.Event) {
			names = append(names, f.Event+":"+string(f.Payload))
		}
	}
	return names
}

func decode[T any](t *testing.T, f Frame) T {
	t.Helper()
	require.NotNil(t, f.OK)
	require.True(t, *f.OK, "unexpected error: %+v", f.Error)
	var out T
	require.NoError(t, json.Unmarshal(f.Payload, &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	_, ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Empty(t, health.Version)
}

func TestNotFoundEndpoint(t *testing.T) {
	_, ts, _ := testServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandshake_OpensPage(t *testing.T) {
	_, ts, _ := testServer(t)
	pc := dialPage(t, ts, "")

	assert.Equal(t, ProtocolVersion, pc.hello.Protocol)
	assert.NotEmpty(t, pc.hello.Server.ConnID)
	assert.Len(t, pc.hello.Page.Page, 36)
	assert.Equal(t, "Sweet Home Chef", pc.hello.Page.ChefStyle)
	assert.Contains(t, pc.hello.Features.Methods, MethodChatSend)
	assert.Contains(t, pc.hello.Features.Events, EventTranscriptAppend)
	assert.Equal(t, 30000, pc.hello.Policy.TimeoutMs)

	// the widget opens after hello-ok: idle, send enabled, greeting
	pc.waitEvent(EventTranscriptAppend, "bakebot")
	assert.Equal(t, []string{
		`ui.state:{"state":"idle"}`,
		`ui.send:{"enabled":true}`,
	}, pc.eventNames(EventUIState, EventUISend))
}

func TestHandshake_WrongToken(t *testing.T) {
	_, ts, _ := testServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var challenge Frame
	require.NoError(t, conn.ReadJSON(&challenge))

	req, _ := NewRequest("req-1", MethodConnect, ConnectParams{
		MinProtocol: 1,
		MaxProtocol: 1,
		Client:      ClientInfo{ID: "test-origin", Version: "1.0.0", Platform: "linux"},
		Auth:        &ConnectAuth{Token: "wrong"},
	})
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.OK)
	assert.False(t, *resp.OK)
	assert.Equal(t, "unauthorized", resp.Error.Code)
	assert.Equal(t, "token_mismatch", resp.Error.Message)
}

func TestHandshake_ProtocolMismatch(t *testing.T) {
	_, ts, _ := testServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var challenge Frame
	require.NoError(t, conn.ReadJSON(&challenge))

	req, _ := NewRequest("req-1", MethodConnect, ConnectParams{
		MinProtocol: 2,
		MaxProtocol: 3,
		Auth:        &ConnectAuth{Token: testToken},
	})
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "protocol_mismatch", resp.Error.Code)
}

func TestChatSend_RendersTurn(t *testing.T) {
	_, ts, backend := testServer(t)
	pc := dialPage(t, ts, "tab-1")

	resp := pc.call(MethodChatSend, chatSendParams{Mode: "ask", Text: "how do I make cookies chewy?"})
	reply := decode[map[string]any](t, resp)
	assert.Equal(t, "Try **brown butter**.", reply["message"])
	assert.Equal(t, "s-1", reply["sessionId"])
	assert.EqualValues(t, 1, backend.chatHits.Load())

	// send disabled once before the call, enabled once after
	assert.Equal(t, []string{
		`ui.state:{"state":"idle"}`,
		`ui.send:{"enabled":true}`,
		`ui.send:{"enabled":false}`,
		`ui.state:{"state":"awaiting_response"}`,
		`ui.state:{"state":"idle"}`,
		`ui.send:{"enabled":true}`,
	}, pc.eventNames(EventUIState, EventUISend))

	user := pc.waitEvent(EventTranscriptAppend, `"sender":"user"`)
	assert.Contains(t, string(user.Payload), "chewy")
	bot := pc.waitEvent(EventTranscriptAppend, "brown butter")
	var entry transcriptEvent
	require.NoError(t, json.Unmarshal(bot.Payload, &entry))
	assert.Equal(t, "bot", entry.Sender)
	assert.Contains(t, entry.HTML, "<strong>brown butter</strong>")

	session := decode[map[string]any](t, pc.call(MethodSessionGet, nil))
	assert.Equal(t, "tab-1", session["page"])
	assert.Equal(t, "s-1", session["session"].(map[string]any)["sessionId"])
}

func TestChatSend_EmptyTextIssuesNoRequest(t *testing.T) {
	_, ts, backend := testServer(t)
	pc := dialPage(t, ts, "")

	resp := pc.call(MethodChatSend, chatSendParams{Text: "   "})
	require.False(t, *resp.OK)
	assert.Equal(t, "invalid_params", resp.Error.Code)
	assert.Zero(t, backend.chatHits.Load())

	pc.waitEvent(EventUINotify, `"kind":"warn"`)
	// the send control was never touched
	assert.Equal(t, []string{`ui.send:{"enabled":true}`}, pc.eventNames(EventUISend))
}

func TestChatSend_UnknownMode(t *testing.T) {
	_, ts, _ := testServer(t)
	pc := dialPage(t, ts, "")

	resp := pc.call(MethodChatSend, chatSendParams{Mode: "braise", Text: "hi"})
	require.False(t, *resp.OK)
	assert.Equal(t, "invalid_params", resp.Error.Code)
}

func TestChatSend_BusyWhileAwaiting(t *testing.T) {
	_, ts, backend := testServer(t)
	pc := dialPage(t, ts, "")

	release, entered := backend.hold()
	pc.send("first", MethodChatSend, chatSendParams{Text: "first question"})
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("backend never received the first turn")
	}

	second := pc.call(MethodChatSend, chatSendParams{Text: "second question"})
	require.False(t, *second.OK)
	assert.Equal(t, "busy", second.Error.Code)
	assert.True(t, second.Error.Retryable)

	release()
	first := pc.await("first")
	assert.True(t, *first.OK)
	assert.EqualValues(t, 1, backend.chatHits.Load())
}

func TestChatSend_ServerErrorThenAck(t *testing.T) {
	_, ts, backend := testServer(t)
	pc := dialPage(t, ts, "")
	backend.fail.Store(true)

	resp := pc.call(MethodChatSend, chatSendParams{Text: "anything"})
	require.False(t, *resp.OK)
	assert.Equal(t, "backend_server", resp.Error.Code)
	assert.False(t, resp.Error.Retryable)
	pc.waitEvent(EventUIState, "error")
	pc.waitEvent(EventUINotify, `"kind":"error"`)

	ack := decode[map[string]any](t, pc.call(MethodChatAck, nil))
	assert.Equal(t, "idle", ack["state"])

	// the session survives and the next turn goes through
	backend.fail.Store(false)
	next := pc.call(MethodChatSend, chatSendParams{Text: "again"})
	assert.True(t, *next.OK)
}

func TestRecipeUploadSaveAndSearch(t *testing.T) {
	_, ts, _ := testServer(t)
	pc := dialPage(t, ts, "")

	empty := decode[map[string]any](t, pc.call(MethodRecipeGet, nil))
	assert.Nil(t, empty["recipe"])

	uploaded := decode[map[string]map[string]any](t, pc.call(MethodRecipeUpload, recipeUploadParams{Text: "focaccia: flour water salt"}))
	assert.Equal(t, "Focaccia", uploaded["recipe"]["name"])
	pc.waitEvent(EventRecipeReplace, "Focaccia")

	got := decode[map[string]map[string]any](t, pc.call(MethodRecipeGet, nil))
	assert.Equal(t, "Focaccia", got["recipe"]["name"])

	saved := decode[map[string]int64](t, pc.call(MethodRecipeSave, nil))
	assert.Positive(t, saved["id"])

	found := decode[map[string][]store.SavedRecipe](t, pc.call(MethodRecipeSearch, recipeSearchParams{Query: "flour"}))
	require.Len(t, found["recipes"], 1)
	assert.Equal(t, "Focaccia", found["recipes"][0].Recipe.Name)

	none := decode[map[string][]store.SavedRecipe](t, pc.call(MethodRecipeSearch, recipeSearchParams{Query: "saffron"}))
	assert.Empty(t, none["recipes"])
}

func TestRecipeSubmit_WithoutRecipe(t *testing.T) {
	_, ts, backend := testServer(t)
	pc := dialPage(t, ts, "")

	resp := pc.call(MethodRecipeSubmit, recipeSubmitParams{})
	require.False(t, *resp.OK)
	assert.Equal(t, "no_recipe", resp.Error.Code)
	assert.Zero(t, backend.chatHits.Load())
}

func TestSessionClear(t *testing.T) {
	_, ts, backend := testServer(t)
	pc := dialPage(t, ts, "")

	pc.call(MethodChatSend, chatSendParams{Text: "hello"})
	status := decode[map[string]any](t, pc.call(MethodSessionGet, sessionGetParams{Remote: true}))
	assert.Equal(t, "s-1", status["backend"].(map[string]any)["session_id"])

	cleared := decode[map[string]map[string]any](t, pc.call(MethodSessionClear, nil))
	assert.Empty(t, cleared["session"]["sessionId"])

	backend.mu.Lock()
	assert.Equal(t, "s-1", backend.cleared)
	backend.mu.Unlock()
}

func TestSessionList(t *testing.T) {
	_, ts, _ := testServer(t)
	pc := dialPage(t, ts, "tab-7")
	pc.call(MethodChatSend, chatSendParams{Text: "hello"})

	list := decode[map[string][]store.SessionRecord](t, pc.call(MethodSessionList, sessionListParams{}))
	require.Len(t, list["sessions"], 1)
	assert.Equal(t, "tab-7", list["sessions"][0].Page)
	assert.Equal(t, "s-1", list["sessions"][0].Session.SessionID)
}

func TestConfigGet(t *testing.T) {
	_, ts, _ := testServer(t)
	pc := dialPage(t, ts, "")

	got := decode[map[string]any](t, pc.call(MethodConfigGet, configGetParams{Key: "widget.botName"}))
	assert.Equal(t, "bakebot", got["value"])

	tests := []struct {
		key  string
		code string
	}{
		{"backend.apiKey", "forbidden"},
		{"", "invalid_params"},
		{"widget.greeting", "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			resp := pc.call(MethodConfigGet, configGetParams{Key: tt.key})
			require.False(t, *resp.OK)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestHealthAndChannelsRPC(t *testing.T) {
	_, ts, _ := testServer(t)
	pc := dialPage(t, ts, "")

	health := decode[HealthResponse](t, pc.call(MethodHealth, nil))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 1, health.Clients)
	assert.Equal(t, 1, health.Plugins)

	channels := decode[map[string][]any](t, pc.call(MethodChannelsStatus, nil))
	assert.Empty(t, channels["channels"])
}

func TestPluginsListRPC(t *testing.T) {
	_, ts, _ := testServer(t)
	pc := dialPage(t, ts, "")
	pc.call(MethodChatSend, chatSendParams{Text: "hello"})

	var body struct {
		Plugins []struct {
			ID     string                 `json:"id"`
			Report plugin.TurnStatsReport `json:"report"`
		} `json:"plugins"`
	}
	resp := pc.call(MethodPluginsList, nil)
	require.True(t, *resp.OK)
	require.NoError(t, json.Unmarshal(resp.Payload, &body))
	require.Len(t, body.Plugins, 1)
	assert.Equal(t, plugin.TurnStatsID, body.Plugins[0].ID)
	assert.Equal(t, 1, body.Plugins[0].Report.OpenPages)
	assert.Equal(t, 1, body.Plugins[0].Report.TurnsCompleted)
}

func TestRecipeCreateAndChatInitRPC(t *testing.T) {
	_, ts, _ := testServer(t)
	pc := dialPage(t, ts, "")

	resp := pc.call(MethodRecipeCreate, recipeCreateParams{Text: "  "})
	require.False(t, *resp.OK)
	assert.Equal(t, "invalid_params", resp.Error.Code)

	created := decode[map[string]map[string]any](t, pc.call(MethodRecipeCreate, recipeCreateParams{Text: "brioche", Servings: 2, ChefStyle: "Classic Pro Chef"}))
	assert.Equal(t, "Brioche", created["recipe"]["name"])
	pc.waitEvent(EventRecipeReplace, "Brioche")

	got := decode[map[string]map[string]any](t, pc.call(MethodRecipeGet, nil))
	assert.Equal(t, "Brioche", got["recipe"]["name"])

	opened := decode[map[string]domain.Session](t, pc.call(MethodChatInit, chatInitParams{Context: "Brioche page", Metadata: map[string]any{"recipe": "brioche"}}))
	assert.Equal(t, "s-init", opened["session"].SessionID)
	assert.Equal(t, "brioche", opened["session"].Metadata["recipe"])
}

func TestUnknownMethod(t *testing.T) {
	_, ts, _ := testServer(t)
	pc := dialPage(t, ts, "")

	resp := pc.call("recipe.bake", nil)
	require.False(t, *resp.OK)
	assert.Equal(t, "method_not_found", resp.Error.Code)
}

func TestPagesEndpoint(t *testing.T) {
	_, ts, _ := testServer(t)
	pc := dialPage(t, ts, "")
	pc.call(MethodChatSend, chatSendParams{Text: "hello"})
	connID := pc.hello.Server.ConnID

	get := func(path, token string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
		require.NoError(t, err)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusUnauthorized, get("/pages/"+connID+"/", "").StatusCode)
	assert.Equal(t, http.StatusNotFound, get("/pages/nope/", testToken).StatusCode)

	page := get("/pages/"+connID+"/", testToken)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, page.Header.Get("Content-Type"), "text/html")

	transcript := get("/pages/"+connID+"/transcript", testToken)
	require.Equal(t, http.StatusOK, transcript.StatusCode)
	var body struct {
		Messages []struct {
			Sender string `json:"sender"`
			Text   string `json:"text"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(transcript.Body).Decode(&body))
	require.Len(t, body.Messages, 3) // greeting, user, bot
	assert.Equal(t, "user", body.Messages[1].Sender)
	assert.Equal(t, "hello", body.Messages[1].Text)

	stored := get("/pages/"+connID+"/transcript?source=store", testToken)
	require.Equal(t, http.StatusOK, stored.StatusCode)
	var recorded struct {
		Entries []store.TranscriptEntry `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(stored.Body).Decode(&recorded))
	assert.Len(t, recorded.Entries, 3)
}

func TestServerStart(t *testing.T) {
	cfg := config.Defaults()
	cfg.Gateway.Port = 0
	cfg.Gateway.Auth.Mode = "none"
	srv := New(cfg, logging.New(nil, "silent"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "127.0.0.1:0", srv.Addr())
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
