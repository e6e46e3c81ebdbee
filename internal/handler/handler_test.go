package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"signalroom/internal/app/signaling"
	"signalroom/internal/app/storage"
	"signalroom/internal/configs"
	"signalroom/internal/pkg/errs"
	"signalroom/internal/pkg/limiter"
	"signalroom/internal/pkg/resp"
)

type stubStore struct{}

func (stubStore) PresignUpload(_ context.Context, key, _ string, _ int64, _ time.Duration) (string, error) {
	return "https://upload.test/" + key, nil
}

func (stubStore) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.test/" + key, nil
}

func newTestDeps(t *testing.T, upgradeRate rate.Limit, upgradeBurst int) *AppDeps {
	t.Helper()

	upgradeLimiter := limiter.NewIPRateLimiter(upgradeRate, upgradeBurst)
	t.Cleanup(upgradeLimiter.Close)

	return &AppDeps{
		Manager: signaling.NewManager(),
		Config: &configs.AppConfig{
			Environment:    "development",
			MaxMessageSize: 64 << 10,
			MessageRate:    100,
			MessageBurst:   100,
		},
		UpgradeLimiter: upgradeLimiter,
	}
}

func newTestServer(t *testing.T, deps *AppDeps) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(Router(deps))
	t.Cleanup(func() {
		deps.Manager.Shutdown()
		srv.Close()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(url, header)
}

func mustDial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	conn, _, err := dial(t, srv, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func write(t *testing.T, conn *websocket.Conn, mt signaling.MessageType, data any) {
	t.Helper()

	frame, err := signaling.Encode(mt, data)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write %s: %v", mt, err)
	}
}

func read(t *testing.T, conn *websocket.Conn, want signaling.MessageType, dst any) {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var env signaling.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read %s: %v", want, err)
	}
	if env.Type != want {
		t.Fatalf("got %s %s, want %s", env.Type, env.Data, want)
	}
	if dst != nil {
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatal(err)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func decodeResponse(t *testing.T, res *http.Response) resp.JSONResponse {
	t.Helper()
	defer res.Body.Close()

	var body resp.JSONResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body
}

func TestSignalingOverWebSocket(t *testing.T) {
	deps := newTestDeps(t, 100, 100)
	srv := newTestServer(t, deps)

	host := mustDial(t, srv)
	guest := mustDial(t, srv)

	write(t, host, signaling.TypeCreate, signaling.CreatePayload{RoomID: "R1", RoomName: "lobby", Cover: "https://c/1.png"})
	waitFor(t, func() bool { return len(deps.Manager.Rooms()) == 1 })

	write(t, guest, signaling.TypeJoin, signaling.JoinPayload{RoomID: "R1", UserID: "u1", Username: "bob"})

	var joined signaling.JoinedPayload
	read(t, host, signaling.TypeJoined, &joined)
	if joined.UserID != "u1" || joined.Username != "bob" {
		t.Fatalf("joined = %+v", joined)
	}
	read(t, guest, signaling.TypeSuccess, nil)

	write(t, host, signaling.TypeOffer, signaling.OfferPayload{Offer: json.RawMessage(`{"sdp":"v=0"}`), UserID: "u1", RoomID: "R1"})

	var offer signaling.OfferPayload
	read(t, guest, signaling.TypeOffer, &offer)
	if string(offer.Offer) != `{"sdp":"v=0"}` || offer.RoomID != "R1" {
		t.Fatalf("offer = %+v", offer)
	}

	write(t, host, signaling.TypeJoin, signaling.JoinPayload{RoomID: "RX", UserID: "h", Username: "h"})
	var errPayload signaling.ErrorPayload
	read(t, host, signaling.TypeError, &errPayload)
	if errPayload.Code != errs.ErrRoomNotFound {
		t.Fatalf("error = %+v", errPayload)
	}

	_ = guest.Close()

	var leave signaling.LeavePayload
	read(t, host, signaling.TypeLeave, &leave)
	if leave.UserID != "u1" {
		t.Fatalf("leave = %+v", leave)
	}
}

func TestMalformedFrameIsAnswered(t *testing.T) {
	srv := newTestServer(t, newTestDeps(t, 100, 100))
	conn := mustDial(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}

	var p signaling.ErrorPayload
	read(t, conn, signaling.TypeError, &p)
	if p.Code != errs.ErrInvalidMessage {
		t.Fatalf("code = %d, want %d", p.Code, errs.ErrInvalidMessage)
	}

	// the connection stays usable
	write(t, conn, signaling.TypeCreate, signaling.CreatePayload{})
	read(t, conn, signaling.TypeError, &p)
	if p.Code != errs.ErrInvalidParams {
		t.Fatalf("code = %d, want %d", p.Code, errs.ErrInvalidParams)
	}
}

func TestShutdownClosesSockets(t *testing.T) {
	deps := newTestDeps(t, 100, 100)
	srv := newTestServer(t, deps)
	conn := mustDial(t, srv)

	waitFor(t, func() bool { return deps.Manager.Stats().Connections == 1 })
	deps.Manager.Shutdown()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("read err = %v, want normal close", err)
	}
	waitFor(t, func() bool { return deps.Manager.Stats().Connections == 0 })
}

func TestUpgradeRateLimit(t *testing.T) {
	srv := newTestServer(t, newTestDeps(t, rate.Limit(0.001), 1))

	if _, _, err := dial(t, srv, nil); err != nil {
		t.Fatalf("first dial: %v", err)
	}

	_, res, err := dial(t, srv, nil)
	if err == nil {
		t.Fatal("second dial should be rejected")
	}
	if res == nil || res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("response = %v, want 429", res)
	}
	if body := decodeResponse(t, res); body.Code != errs.ErrRateLimitExceeded {
		t.Fatalf("code = %d", body.Code)
	}
}

func TestOriginCheckInProduction(t *testing.T) {
	deps := newTestDeps(t, 100, 100)
	deps.Config.Environment = "production"
	deps.Config.AllowedOrigins = []string{"https://ok.test"}
	srv := newTestServer(t, deps)

	_, res, err := dial(t, srv, http.Header{"Origin": {"https://evil.test"}})
	if err == nil || res == nil || res.StatusCode != http.StatusForbidden {
		t.Fatalf("evil origin: err = %v res = %v", err, res)
	}

	conn, _, err := dial(t, srv, http.Header{"Origin": {"https://ok.test"}})
	if err != nil {
		t.Fatalf("allowed origin: %v", err)
	}
	_ = conn.Close()
}

func TestHealth(t *testing.T) {
	deps := newTestDeps(t, 100, 100)
	srv := newTestServer(t, deps)
	mustDial(t, srv)
	waitFor(t, func() bool { return deps.Manager.Stats().Connections == 1 })

	res, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}

	body := decodeResponse(t, res)
	data, _ := body.Data.(map[string]any)
	if body.Code != 0 || data["status"] != "ok" || data["rooms"] != float64(0) || data["connections"] != float64(1) {
		t.Fatalf("body = %+v", body)
	}
}

func TestListRooms(t *testing.T) {
	deps := newTestDeps(t, 100, 100)
	srv := newTestServer(t, deps)

	get := func() string {
		t.Helper()
		res, err := http.Get(srv.URL + "/api/rooms")
		if err != nil {
			t.Fatal(err)
		}
		defer res.Body.Close()

		var raw json.RawMessage
		if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
			t.Fatal(err)
		}
		return string(raw)
	}

	if got := get(); got != "[]" {
		t.Fatalf("empty listing = %s", got)
	}

	host := mustDial(t, srv)
	write(t, host, signaling.TypeCreate, signaling.CreatePayload{RoomID: "R1", RoomName: "n", Cover: "c"})
	waitFor(t, func() bool { return len(deps.Manager.Rooms()) == 1 })

	if got, want := get(), `[{"id":"R1","name":"n","cover":"c"}]`; got != want {
		t.Fatalf("listing = %s, want %s", got, want)
	}
}

func postPresign(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()

	res, err := http.Post(srv.URL+"/api/covers/presign", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestPresignCoverDisabled(t *testing.T) {
	srv := newTestServer(t, newTestDeps(t, 100, 100))

	res := postPresign(t, srv, `{"fileName":"a.png","mimeType":"image/png","fileSize":10}`)
	if res.StatusCode != http.StatusNotImplemented {
		t.Fatalf("status = %d", res.StatusCode)
	}
	if body := decodeResponse(t, res); body.Code != errs.ErrStorageDisabled {
		t.Fatalf("code = %d", body.Code)
	}
}

func TestPresignCover(t *testing.T) {
	deps := newTestDeps(t, 100, 100)
	deps.Covers = storage.NewCoverService(stubStore{}, "https://cdn.test", time.Hour)
	srv := newTestServer(t, deps)

	res := postPresign(t, srv, `{"fileName":"a.png","mimeType":"image/png","fileSize":10}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", res.StatusCode)
	}

	body := decodeResponse(t, res)
	data, _ := body.Data.(map[string]any)
	key, _ := data["key"].(string)
	if key == "" || data["coverUrl"] != "https://cdn.test/"+key || data["uploadUrl"] != "https://upload.test/"+key {
		t.Fatalf("data = %+v", data)
	}
}

func TestPresignCoverRejectsBadInput(t *testing.T) {
	deps := newTestDeps(t, 100, 100)
	deps.Covers = storage.NewCoverService(stubStore{}, "", time.Hour)
	srv := newTestServer(t, deps)

	cases := []struct {
		body   string
		status int
		code   int
	}{
		{`{"fileName":"a.png","mimeType":"image/png","fileSize":99999999}`, http.StatusRequestEntityTooLarge, errs.ErrFileSizeTooLarge},
		{`{"fileName":"a.exe","mimeType":"application/octet-stream","fileSize":10}`, http.StatusBadRequest, errs.ErrFileTypeInvalid},
		{`{"fileName":"a.png","extra":true}`, http.StatusBadRequest, errs.ErrInvalidJSONFormat},
	}

	for _, tc := range cases {
		res := postPresign(t, srv, tc.body)
		if res.StatusCode != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.body, res.StatusCode, tc.status)
		}
		if body := decodeResponse(t, res); body.Code != tc.code {
			t.Fatalf("%s: code = %d, want %d", tc.body, body.Code, tc.code)
		}
	}
}
