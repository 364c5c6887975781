package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"energyexchange/internal/batch"
	"energyexchange/internal/clock"
	"energyexchange/internal/identity"
	"energyexchange/internal/ledger"
	"energyexchange/internal/legacy"
	"energyexchange/internal/orderbook"
	"energyexchange/internal/stream"
	"energyexchange/internal/wire"
)

func newTestServer(t *testing.T, now time.Time) *Server {
	t.Helper()
	c := clock.Fixed{T: now}
	led := ledger.New(c)
	idSvc := identity.New()
	hub := stream.NewHub(zap.NewNop())
	go hub.Run()
	liveSink := stream.LiveSink{Ledger: led, Hub: hub}
	engine := orderbook.New(c, idSvc, led, liveSink)
	executor := batch.New(c, idSvc, engine, led, hub)
	sellList := legacy.New(c, led)

	return NewServer(Deps{
		Clock:      c,
		Identity:   idSvc,
		Engine:     engine,
		Ledger:     led,
		SellList:   sellList,
		Executor:   executor,
		Hub:        hub,
		AdminToken: "admin-secret",
		Logger:     zap.NewNop(),
	})
}

func openKey(now time.Time) (start, end int64) {
	s := now.Add(2 * time.Hour).Truncate(time.Hour).UnixMilli()
	return s, s + 3_600_000
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, time.Now())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func bodyReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func encodeBody(t *testing.T, obj wire.Object) []byte {
	t.Helper()
	buf, err := wire.Encode(obj, wire.Version2)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf
}

func decodeBody(t *testing.T, body []byte) wire.Object {
	t.Helper()
	obj, _, err := wire.Decode(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return obj
}

func TestRegisterLoginAndCreateOrder(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := newTestServer(t, now)
	h := s.Handler()

	regReq := httptest.NewRequest(http.MethodPost, "/register", bodyReader(encodeBody(t, wire.Object{
		{Name: "username", Value: wire.Str("alice")},
		{Name: "password", Value: wire.Str("hunter2")},
	})))
	regRec := httptest.NewRecorder()
	h.ServeHTTP(regRec, regReq)
	if regRec.Code != http.StatusNoContent {
		t.Fatalf("register: got %d", regRec.Code)
	}

	loginReq := httptest.NewRequest(http.MethodPost, "/login", bodyReader(encodeBody(t, wire.Object{
		{Name: "username", Value: wire.Str("alice")},
		{Name: "password", Value: wire.Str("hunter2")},
	})))
	loginRec := httptest.NewRecorder()
	h.ServeHTTP(loginRec, loginReq)
	if loginRec.Code != http.StatusOK {
		t.Fatalf("login: got %d", loginRec.Code)
	}
	token, ok := decodeBody(t, loginRec.Body.Bytes()).Str("token")
	if !ok || token == "" {
		t.Fatalf("expected a token in login response")
	}

	start, end := openKey(now)
	orderReq := httptest.NewRequest(http.MethodPost, "/v2/orders", bodyReader(encodeBody(t, wire.Object{
		{Name: "side", Value: wire.Str("SELL")},
		{Name: "price", Value: wire.Int(150)},
		{Name: "quantity", Value: wire.Int(100)},
		{Name: "delivery_start", Value: wire.Int(start)},
		{Name: "delivery_end", Value: wire.Int(end)},
	})))
	orderReq.Header.Set("Authorization", "Bearer "+token)
	orderRec := httptest.NewRecorder()
	h.ServeHTTP(orderRec, orderReq)
	if orderRec.Code != http.StatusOK {
		t.Fatalf("create order: got %d body=%s", orderRec.Code, orderRec.Body.String())
	}
	resp := decodeBody(t, orderRec.Body.Bytes())
	status, _ := resp.Str("status")
	if status != "ACTIVE" {
		t.Fatalf("want ACTIVE (nothing matched), got %q", status)
	}
}

func TestCreateOrderWithoutAuthIsUnauthorized(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := newTestServer(t, now)
	start, end := openKey(now)

	req := httptest.NewRequest(http.MethodPost, "/v2/orders", bodyReader(encodeBody(t, wire.Object{
		{Name: "side", Value: wire.Str("SELL")},
		{Name: "price", Value: wire.Int(150)},
		{Name: "quantity", Value: wire.Int(100)},
		{Name: "delivery_start", Value: wire.Int(start)},
		{Name: "delivery_end", Value: wire.Int(end)},
	})))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401, got %d", rec.Code)
	}
}

func register(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/register", bodyReader(encodeBody(t, wire.Object{
		{Name: "username", Value: wire.Str(username)},
		{Name: "password", Value: wire.Str("hunter2")},
	}))))
	loginRec := httptest.NewRecorder()
	h.ServeHTTP(loginRec, httptest.NewRequest(http.MethodPost, "/login", bodyReader(encodeBody(t, wire.Object{
		{Name: "username", Value: wire.Str(username)},
		{Name: "password", Value: wire.Str("hunter2")},
	}))))
	token, _ := decodeBody(t, loginRec.Body.Bytes()).Str("token")
	return token
}

func submitOrder(t *testing.T, h http.Handler, token, side string, price, qty, start, end int64) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v2/orders", bodyReader(encodeBody(t, wire.Object{
		{Name: "side", Value: wire.Str(side)},
		{Name: "price", Value: wire.Int(price)},
		{Name: "quantity", Value: wire.Int(qty)},
		{Name: "delivery_start", Value: wire.Int(start)},
		{Name: "delivery_end", Value: wire.Int(end)},
	})))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit order: got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestTradesWindowFilter(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	s := newTestServer(t, now)
	h := s.Handler()

	alice := register(t, h, "alice")
	bob := register(t, h, "bob")

	start1, end1 := openKey(now)
	start2, end2 := end1, end1+3_600_000

	submitOrder(t, h, alice, "SELL", 150, 100, start1, end1)
	submitOrder(t, h, bob, "BUY", 150, 100, start1, end1)
	submitOrder(t, h, alice, "SELL", 160, 50, start2, end2)
	submitOrder(t, h, bob, "BUY", 160, 50, start2, end2)

	allRec := httptest.NewRecorder()
	h.ServeHTTP(allRec, httptest.NewRequest(http.MethodGet, "/v2/trades", nil))
	allTrades, _ := decodeBody(t, allRec.Body.Bytes()).List("trades")
	if len(allTrades.Items) != 2 {
		t.Fatalf("want 2 trades unfiltered, got %d", len(allTrades.Items))
	}

	windowed := httptest.NewRequest(http.MethodGet, "/v2/trades", nil)
	q := windowed.URL.Query()
	q.Set("delivery_start", itoa(start1))
	q.Set("delivery_end", itoa(end1))
	windowed.URL.RawQuery = q.Encode()
	winRec := httptest.NewRecorder()
	h.ServeHTTP(winRec, windowed)
	winTrades, _ := decodeBody(t, winRec.Body.Bytes()).List("trades")
	if len(winTrades.Items) != 1 {
		t.Fatalf("want 1 trade scoped to the first contract, got %d", len(winTrades.Items))
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func TestSetCollateralRequiresAdminToken(t *testing.T) {
	s := newTestServer(t, time.Now())
	req := httptest.NewRequest(http.MethodPut, "/collateral/alice", bodyReader(encodeBody(t, wire.Object{
		{Name: "limit", Value: wire.Int(1000)},
	})))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 without admin token, got %d", rec.Code)
	}
}
