package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/signboard/internal/adapter/metrics"
	"github.com/pscheid92/signboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConnPair(t *testing.T) (server *ws.Conn, client *ws.Conn) {
	t.Helper()
	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	ready := make(chan *ws.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		ready <- conn
	}))
	t.Cleanup(func() { srv.Close() })

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-ready
	t.Cleanup(func() { serverConn.Close() })

	return serverConn, clientConn
}

func readNotification(t *testing.T, conn *ws.Conn) domain.Notification {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var n domain.Notification
	require.NoError(t, json.Unmarshal(frame, &n))
	return n
}

func TestSession_NotifyWritesFrame(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWebSocketMetrics(reg)
	server, client := newTestConnPair(t)

	s := newSession(server, domain.ClientIdentity(3), clockwork.NewRealClock(), m)
	t.Cleanup(s.stop)

	updates := []domain.EmployeeStatusUpdate{{EmployeeID: 5, Status: domain.StatusAway, Comment: "lunch"}}
	require.NoError(t, s.Notify(domain.ClientDataUpdate(updates)))

	n := readNotification(t, client)
	assert.Equal(t, domain.MethodClientDataUpdate, n.Method)
	require.Len(t, n.Arguments, 1)

	raw, err := json.Marshal(n.Arguments[0])
	require.NoError(t, err)
	var got []domain.EmployeeStatusUpdate
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, updates, got)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.NotificationsSent) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSession_FramesKeepOrder(t *testing.T) {
	server, client := newTestConnPair(t)
	s := newSession(server, domain.ClientIdentity(1), clockwork.NewRealClock(), nil)
	t.Cleanup(s.stop)

	require.NoError(t, s.Notify(domain.ClientConnected()))
	require.NoError(t, s.Notify(domain.Shutdown()))

	assert.Equal(t, domain.MethodClientConnected, readNotification(t, client).Method)
	assert.Equal(t, domain.MethodShutdown, readNotification(t, client).Method)
}

func TestSession_NotifyAfterStop(t *testing.T) {
	server, _ := newTestConnPair(t)
	s := newSession(server, domain.ClientIdentity(1), clockwork.NewRealClock(), nil)

	s.stop()

	assert.ErrorIs(t, s.Notify(domain.Shutdown()), domain.ErrSessionClosed)
}

func TestSession_BufferFull(t *testing.T) {
	s := &Session{
		sendChannel: make(chan []byte, 1),
		doneChannel: make(chan struct{}),
	}

	require.NoError(t, s.enqueue([]byte("first")))
	assert.ErrorIs(t, s.enqueue([]byte("second")), domain.ErrSessionBufferFull)
}

func TestSession_StopGracefulSendsCloseFrame(t *testing.T) {
	server, client := newTestConnPair(t)
	s := newSession(server, domain.ControllerIdentity(), clockwork.NewRealClock(), nil)

	s.stopGraceful("server shutting down")

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()
	var closeErr *ws.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, ws.CloseNormalClosure, closeErr.Code)
	assert.Equal(t, "server shutting down", closeErr.Text)
}

func TestSession_StopGracefulWithStalledPeer(t *testing.T) {
	server, _ := newTestConnPair(t) // the client never reads
	s := newSession(server, domain.ClientIdentity(4), clockwork.NewRealClock(), nil)

	frame := make([]byte, 1<<20)
	for {
		if err := s.enqueue(frame); err != nil {
			require.ErrorIs(t, err, domain.ErrSessionBufferFull)
			break
		}
	}

	stopped := make(chan struct{})
	go func() {
		s.stopGraceful("server shutting down")
		s.stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(writeDeadline + 5*time.Second):
		t.Fatal("stopGraceful did not return while the writer was blocked on a stalled peer")
	}
	assert.ErrorIs(t, s.Notify(domain.Shutdown()), domain.ErrSessionClosed)
}

func TestSession_StopGracefulAfterTerminate(t *testing.T) {
	server, _ := newTestConnPair(t)
	s := newSession(server, domain.ClientIdentity(4), clockwork.NewRealClock(), nil)

	s.terminate()

	done := make(chan struct{})
	go func() {
		s.stopGraceful("server shutting down")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stopGraceful blocked on an already terminated session")
	}
}

func TestSession_IDsAreUnique(t *testing.T) {
	serverA, _ := newTestConnPair(t)
	serverB, _ := newTestConnPair(t)
	a := newSession(serverA, domain.ClientIdentity(1), clockwork.NewRealClock(), nil)
	b := newSession(serverB, domain.ClientIdentity(1), clockwork.NewRealClock(), nil)
	t.Cleanup(a.stop)
	t.Cleanup(b.stop)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, domain.ClientIdentity(1), a.Identity())
}
