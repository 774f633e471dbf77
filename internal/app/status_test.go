package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relabs-tech/thruster_manager/internal/health"
	"github.com/relabs-tech/thruster_manager/internal/metrics"
)

func okStatus() health.Status {
	return health.Status{
		Name:       health.StatusName,
		HardwareID: health.StatusName,
		Level:      health.OK,
		Message:    "OK",
		Values: []health.KeyValue{
			{Key: "Thruster R Alive", Value: "true"},
			{Key: "Thruster R Voltage", Value: "16.000000"},
		},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestStatusAPI(t *testing.T) {
	store := newStatusStore()
	router := newWebRouter(store, t.TempDir())

	if rec := get(t, router, "/api/status"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("before data: code %d, want 503", rec.Code)
	}

	store.Set(okStatus())
	rec := get(t, router, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}
	var st health.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Name != health.StatusName || st.Level != health.OK || len(st.Values) != 2 {
		t.Fatalf("served %+v", st)
	}
}

func TestHealthz(t *testing.T) {
	store := newStatusStore()
	router := newWebRouter(store, t.TempDir())

	if rec := get(t, router, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("before data: code %d", rec.Code)
	}
	store.Set(okStatus())
	if rec := get(t, router, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("ok status: code %d", rec.Code)
	}

	bad := okStatus()
	bad.Level = health.Error
	bad.Message = "Thruster R overcurrent"
	store.Set(bad)
	rec := get(t, router, "/healthz")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "overcurrent") {
		t.Fatalf("error status: code %d body %q", rec.Code, rec.Body.String())
	}
}

func TestWebsocketPushesUpdates(t *testing.T) {
	store := newStatusStore()
	store.Set(okStatus())
	srv := httptest.NewServer(newWebRouter(store, t.TempDir()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first health.Status
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial status: %v", err)
	}
	if first.Level != health.OK {
		t.Fatalf("initial status %+v", first)
	}

	bad := okStatus()
	bad.Level = health.Error
	bad.Message = "Thruster R not alive"
	store.Set(bad)

	var next health.Status
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read pushed status: %v", err)
	}
	if next.Level != health.Error || next.Message != bad.Message {
		t.Fatalf("pushed status %+v", next)
	}
}

type failingSink struct{ n int }

func (f *failingSink) PublishDiagnostics(health.Status) error {
	f.n++
	return errors.New("broker down")
}

func TestRecordingSinkStoresAndForwards(t *testing.T) {
	next := &failingSink{}
	store := newStatusStore()
	sink := &recordingSink{store: store, next: next}

	if err := sink.PublishDiagnostics(okStatus()); err == nil {
		t.Fatalf("expected forwarded error")
	}
	if next.n != 1 {
		t.Fatalf("forwarded %d times", next.n)
	}
	if _, ok := store.Get(); !ok {
		t.Fatalf("status not stored when forwarding failed")
	}

	standalone := &recordingSink{store: newStatusStore()}
	if err := standalone.PublishDiagnostics(okStatus()); err != nil {
		t.Fatalf("sink without next: %v", err)
	}
}

func TestManagerRouterServesMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.ObserveStatus(okStatus())
	router := newManagerRouter(newStatusStore(), m)

	rec := get(t, router, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("code %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "thruster_health_level 0") {
		t.Fatalf("metrics body missing health level:\n%s", rec.Body.String())
	}
}

func TestSetDoesNotWaitForSlowClient(t *testing.T) {
	store := newStatusStore()
	stalled := &wsClient{conn: new(websocket.Conn), send: make(chan health.Status, 1)}
	store.clients[stalled.conn] = stalled

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			st := okStatus()
			st.Message = fmt.Sprintf("tick %d", i)
			store.Set(st)
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Set blocked on a client that is not reading")
	}

	select {
	case st := <-stalled.send:
		if st.Message != "tick 499" {
			t.Fatalf("pending status %q, want the latest", st.Message)
		}
	default:
		t.Fatalf("no status pending for the client")
	}
}
