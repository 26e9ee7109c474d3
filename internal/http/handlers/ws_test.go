package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"chat-ai-be/internal/chat"
	"chat-ai-be/internal/http/middleware"
	"chat-ai-be/internal/models"
	"chat-ai-be/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type testEnv struct {
	srv       *httptest.Server
	db        *gorm.DB
	store     *chat.Store
	jwtSecret string
}

type nopUploader struct{}

func (nopUploader) Upload(ctx context.Context, payload string) (string, error) {
	return "https://img.example.com/" + fmt.Sprintf("%d.png", time.Now().UnixNano()), nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "app.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Message{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	const secret = "test-secret"
	store := chat.NewStore(db)
	hub := ws.NewHub(ws.NewPresence())
	sender := chat.NewSender(store, nopUploader{}, hub)

	r := gin.New()
	wsH := &WSHandler{Hub: hub, JWTSecret: secret, WSInsecureSkipVerify: true}
	r.GET("/ws", wsH.Handle)

	authed := r.Group("/api/v1")
	authed.Use(middleware.AuthMiddleware(secret))
	msgH := &MessageHandler{Store: store, Sender: sender}
	authed.GET("/messages/users", msgH.ListPartners)
	authed.GET("/messages/:id", msgH.ListMessages)
	authed.POST("/messages/send/:id", msgH.SendMessage)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, db: db, store: store, jwtSecret: secret}
}

func (e *testEnv) createUser(t *testing.T, name string) models.User {
	t.Helper()
	u := models.User{FullName: name, Email: name + "@example.com", PasswordHash: "x"}
	if err := e.db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) token(t *testing.T, userID uint) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(e.jwtSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func (e *testEnv) dialWS(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

type rawEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) rawEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var ev rawEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func readOnlineList(t *testing.T, conn *websocket.Conn) []uint {
	t.Helper()
	ev := readEvent(t, conn)
	if ev.Type != ws.EventOnlineUsers {
		t.Fatalf("expected %s event, got %s", ws.EventOnlineUsers, ev.Type)
	}
	var ids []uint
	if err := json.Unmarshal(ev.Data, &ids); err != nil {
		t.Fatalf("decode online list: %v", err)
	}
	return ids
}

func expectNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	var ev rawEvent
	if err := wsjson.Read(ctx, conn, &ev); err == nil {
		t.Fatalf("expected no event, got %s", ev.Type)
	}
}

func (e *testEnv) postJSON(t *testing.T, token, path string, body interface{}) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) getHistory(t *testing.T, token string, partnerID uint) []models.Message {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/v1/messages/%d", e.srv.URL, partnerID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get history: status %d", resp.StatusCode)
	}
	var out struct {
		Data []models.Message `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	return out.Data
}

func equalIDs(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOnlineListBroadcasts(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")

	c1 := env.dialWS(t, env.token(t, u1.ID))
	if got := readOnlineList(t, c1); !equalIDs(got, []uint{u1.ID}) {
		t.Fatalf("after first connect: got %v", got)
	}

	c2 := env.dialWS(t, env.token(t, u2.ID))
	want := []uint{u1.ID, u2.ID}
	if got := readOnlineList(t, c1); !equalIDs(got, want) {
		t.Fatalf("existing client snapshot: got %v, want %v", got, want)
	}
	if got := readOnlineList(t, c2); !equalIDs(got, want) {
		t.Fatalf("new client snapshot: got %v, want %v", got, want)
	}

	_ = c2.Close(websocket.StatusNormalClosure, "leaving")
	if got := readOnlineList(t, c1); !equalIDs(got, []uint{u1.ID}) {
		t.Fatalf("after disconnect: got %v", got)
	}
}

func TestMessagePushedToOnlineReceiver(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")
	t1, t2 := env.token(t, u1.ID), env.token(t, u2.ID)

	c1 := env.dialWS(t, t1)
	readOnlineList(t, c1)
	c2 := env.dialWS(t, t2)
	readOnlineList(t, c1)
	readOnlineList(t, c2)

	resp := env.postJSON(t, t1, fmt.Sprintf("/api/v1/messages/send/%d", u2.ID), map[string]string{"text": "hi"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send: status %d", resp.StatusCode)
	}

	ev := readEvent(t, c2)
	if ev.Type != ws.EventNewMessage {
		t.Fatalf("expected %s, got %s", ws.EventNewMessage, ev.Type)
	}
	var pushed models.Message
	if err := json.Unmarshal(ev.Data, &pushed); err != nil {
		t.Fatalf("decode pushed message: %v", err)
	}
	if pushed.Text != "hi" || pushed.SenderID != u1.ID || pushed.ReceiverID != u2.ID {
		t.Fatalf("unexpected pushed message: %+v", pushed)
	}

	// the sender's connection gets no copy
	expectNoEvent(t, c1)

	// and the persisted record is immediately readable
	history := env.getHistory(t, t1, u2.ID)
	if len(history) != 1 || history[0].Text != "hi" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestOfflineReceiverGetsMessageFromHistoryOnly(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")
	t1, t2 := env.token(t, u1.ID), env.token(t, u2.ID)

	c1 := env.dialWS(t, t1)
	readOnlineList(t, c1)
	c2 := env.dialWS(t, t2)
	readOnlineList(t, c1)
	readOnlineList(t, c2)

	resp := env.postJSON(t, t1, fmt.Sprintf("/api/v1/messages/send/%d", u2.ID), map[string]string{"text": "hi"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send hi: status %d", resp.StatusCode)
	}
	readEvent(t, c2) // the push while online

	_ = c2.Close(websocket.StatusNormalClosure, "leaving")
	readOnlineList(t, c1) // shrunken snapshot

	resp = env.postJSON(t, t1, fmt.Sprintf("/api/v1/messages/send/%d", u2.ID), map[string]string{"text": "bye"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send bye: status %d", resp.StatusCode)
	}

	// both messages in order when the receiver comes back to pull history
	history := env.getHistory(t, t2, u1.ID)
	if len(history) != 2 || history[0].Text != "hi" || history[1].Text != "bye" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestSendWithoutContentRejected(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")
	t1 := env.token(t, u1.ID)

	resp := env.postJSON(t, t1, fmt.Sprintf("/api/v1/messages/send/%d", u2.ID), map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	if history := env.getHistory(t, t1, u2.ID); len(history) != 0 {
		t.Fatalf("nothing should be persisted, got %+v", history)
	}
}

func TestAnonymousConnectionNeverListedOnline(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.createUser(t, "alice")

	anon := env.dialWS(t, "")
	if got := readOnlineList(t, anon); len(got) != 0 {
		t.Fatalf("anonymous connect should broadcast an empty list, got %v", got)
	}

	env.dialWS(t, env.token(t, u1.ID))
	if got := readOnlineList(t, anon); !equalIDs(got, []uint{u1.ID}) {
		t.Fatalf("anonymous client should still see snapshots, got %v", got)
	}
}

func TestInvalidTokenRejectedBeforeUpgrade(t *testing.T) {
	env := newTestEnv(t)

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws?token=not-a-jwt"
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err == nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		t.Fatal("dial with a bad token should fail")
	}
}

func TestReconnectReplacesDeliverability(t *testing.T) {
	env := newTestEnv(t)
	u1 := env.createUser(t, "alice")
	u2 := env.createUser(t, "bob")
	t1, t2 := env.token(t, u1.ID), env.token(t, u2.ID)

	c1 := env.dialWS(t, t1)
	readOnlineList(t, c1)

	// two tabs for the same user; the newer one wins
	old := env.dialWS(t, t2)
	readOnlineList(t, c1)
	readOnlineList(t, old)
	fresh := env.dialWS(t, t2)
	readOnlineList(t, c1)
	readOnlineList(t, old)
	readOnlineList(t, fresh)

	resp := env.postJSON(t, t1, fmt.Sprintf("/api/v1/messages/send/%d", u2.ID), map[string]string{"text": "ping"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send: status %d", resp.StatusCode)
	}

	ev := readEvent(t, fresh)
	if ev.Type != ws.EventNewMessage {
		t.Fatalf("fresh connection should get the push, got %s", ev.Type)
	}
	expectNoEvent(t, old)

	// the superseded tab closing must not take the user offline
	_ = old.Close(websocket.StatusNormalClosure, "old tab closed")
	if got := readOnlineList(t, c1); !equalIDs(got, []uint{u1.ID, u2.ID}) {
		t.Fatalf("user should still be online, got %v", got)
	}
}
