package devtools

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/selectctx/pkg/selectctx"
)

func TestHandleCellsListsRegisteredCells(t *testing.T) {
	insp := NewInspector()

	beta := selectctx.NewCell(0, selectctx.WithName("beta"))
	alpha := selectctx.NewCell("x", selectctx.WithName("alpha"))
	unsub := alpha.Subscribe(func(selectctx.Notification[string]) {})
	defer unsub()

	insp.Register(beta)
	insp.Register(alpha)

	req := httptest.NewRequest("GET", "/cells", nil)
	rec := httptest.NewRecorder()
	insp.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var statuses []CellStatus
	if err := json.NewDecoder(rec.Body).Decode(&statuses); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(statuses))
	}
	if statuses[0].Name != "alpha" || statuses[1].Name != "beta" {
		t.Errorf("expected sorted listing, got %q then %q", statuses[0].Name, statuses[1].Name)
	}
	if statuses[0].Subscribers != 1 {
		t.Errorf("alpha expected 1 subscriber, got %d", statuses[0].Subscribers)
	}
	if statuses[0].Version != selectctx.VersionInitial {
		t.Errorf("alpha expected sentinel version, got %d", statuses[0].Version)
	}
}

func TestUnregisterRemovesCell(t *testing.T) {
	insp := NewInspector()
	insp.Register(selectctx.NewCell(0, selectctx.WithName("gone")))
	insp.Unregister("gone")

	req := httptest.NewRequest("GET", "/cells", nil)
	rec := httptest.NewRecorder()
	insp.Handler().ServeHTTP(rec, req)

	var statuses []CellStatus
	if err := json.NewDecoder(rec.Body).Decode(&statuses); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(statuses) != 0 {
		t.Errorf("expected empty listing, got %d cells", len(statuses))
	}
}

func TestEventStreamBroadcastsProtocol(t *testing.T) {
	insp := NewInspector()
	defer insp.Close()

	cell := selectctx.NewCell(0,
		selectctx.WithName("counter"),
		selectctx.WithObserver(insp.Observer()),
	)
	insp.Register(cell)

	srv := httptest.NewServer(insp.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	// Wait for the server side to register the client.
	deadline := time.Now().Add(2 * time.Second)
	for insp.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cell.Set(1)

	// One update produces update, 2 broadcasts, and commit, in order.
	wantKinds := []string{"update", "broadcast", "broadcast", "commit"}
	for _, want := range wantKinds {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read error waiting for %q: %v", want, err)
		}
		var ev ProtocolEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("unmarshal error: %v", err)
		}
		if ev.Kind != want {
			t.Fatalf("expected event %q, got %q", want, ev.Kind)
		}
		if ev.Cell != "counter" {
			t.Errorf("expected cell %q, got %q", "counter", ev.Cell)
		}
	}
}

func TestMetricsEndpointMounted(t *testing.T) {
	insp := NewInspector(WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("metrics ok"))
	})))

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	insp.Handler().ServeHTTP(rec, req)

	if rec.Body.String() != "metrics ok" {
		t.Errorf("expected injected metrics handler output, got %q", rec.Body.String())
	}
}
