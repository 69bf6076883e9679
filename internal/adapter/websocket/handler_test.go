package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/signboard/internal/adapter/metrics"
	"github.com/pscheid92/signboard/internal/dataset"
	"github.com/pscheid92/signboard/internal/domain"
	"github.com/pscheid92/signboard/internal/domain/domaintest"
	apperrors "github.com/pscheid92/signboard/internal/errors"
	"github.com/pscheid92/signboard/internal/hub"
	"github.com/pscheid92/signboard/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	url     string
	handler *Handler
	state   *hub.State
	gateway *domaintest.Gateway
	wsm     *metrics.WebSocketMetrics
}

func newTestServer(t *testing.T, maxConnections int64) *testServer {
	t.Helper()

	gw := &domaintest.Gateway{
		LoadAllFn: func(context.Context) ([]domain.Employee, error) {
			return []domain.Employee{{ID: 1, FirstName: "Grace", LastName: "Hopper", Status: domain.StatusIn}}, nil
		},
	}
	clock := clockwork.NewRealClock()
	state := hub.NewState(registry.New(), dataset.NewCache(gw, clock, nil))
	h := hub.New(state, gw)

	wsm := metrics.NewWebSocketMetrics(prometheus.NewRegistry())
	handler := NewHandler(h, func(*http.Request) bool { return true }, NewConnectionLimiter(maxConnections), clock, wsm)

	e := echo.New()
	e.Use(apperrors.Middleware(nil))
	e.GET("/hub", handler.HandleOpen)
	e.GET("/hub/reconnect", handler.HandleResume)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { handler.Shutdown("test done") })

	return &testServer{
		url:     "ws" + strings.TrimPrefix(srv.URL, "http"),
		handler: handler,
		state:   state,
		gateway: gw,
		wsm:     wsm,
	}
}

func (s *testServer) dial(t *testing.T, path string) *ws.Conn {
	t.Helper()
	conn, _, err := ws.DefaultDialer.Dial(s.url+path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *ws.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(frame, &m))
	return m
}

func methodOf(t *testing.T, frame map[string]json.RawMessage) string {
	t.Helper()
	var method string
	require.NoError(t, json.Unmarshal(frame["method"], &method))
	return method
}

func TestHandler_OpenAcknowledgesAndRegisters(t *testing.T) {
	s := newTestServer(t, 0)
	conn := s.dial(t, "/hub?id=7")

	assert.Equal(t, domain.MethodClientConnected, methodOf(t, readFrame(t, conn)))
	require.Eventually(t, func() bool {
		_, ok := s.state.Registry.Lookup(7)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.wsm.SessionEvents.WithLabelValues("open")))
}

func TestHandler_ResumeAcknowledgesReconnect(t *testing.T) {
	s := newTestServer(t, 0)
	conn := s.dial(t, "/hub/reconnect?id=7")

	assert.Equal(t, domain.MethodClientReconnected, methodOf(t, readFrame(t, conn)))
}

func TestHandler_CloseUnregisters(t *testing.T) {
	s := newTestServer(t, 0)
	conn := s.dial(t, "/hub?id=3")
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, "bye")))
	conn.Close()

	assert.Eventually(t, func() bool {
		return s.state.Registry.Len() == 0 && s.handler.ActiveSessions() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_InvocationRoundTrip(t *testing.T) {
	s := newTestServer(t, 0)
	conn := s.dial(t, "/hub?id=1")
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte(`{"invocationId":"a1","method":"GetEmployeeData","arguments":[]}`)))
	reply := readFrame(t, conn)

	assert.JSONEq(t, `"a1"`, string(reply["invocationId"]))
	var employees []domain.Employee
	require.NoError(t, json.Unmarshal(reply["result"], &employees))
	require.Len(t, employees, 1)
	assert.Equal(t, "Hopper", employees[0].LastName)
}

func TestHandler_UpdateFansOutToAllSessionsIncludingSender(t *testing.T) {
	s := newTestServer(t, 0)
	sender := s.dial(t, "/hub?id=1")
	other := s.dial(t, "/hub?id=2")
	readFrame(t, sender)
	readFrame(t, other)

	require.NoError(t, sender.WriteMessage(ws.TextMessage,
		[]byte(`{"method":"DataUpdateFromClient","arguments":[[{"employeeId":1,"status":"out","locationId":0,"comment":""}]]}`)))

	for _, conn := range []*ws.Conn{sender, other} {
		frame := readFrame(t, conn)
		assert.Equal(t, domain.MethodClientDataUpdate, methodOf(t, frame))
		assert.JSONEq(t, `[[{"employeeId":1,"status":"out","locationId":0,"comment":""}]]`, string(frame["arguments"]))
	}
	assert.Equal(t, 1, s.gateway.ApplyUpdatesCalls())
}

func TestHandler_ControllerDisconnectBroadcastsShutdown(t *testing.T) {
	s := newTestServer(t, 0)
	client := s.dial(t, "/hub?id=4")
	readFrame(t, client)

	controller := s.dial(t, "/hub")
	require.Eventually(t, func() bool { return s.handler.ActiveSessions() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, s.state.Registry.Len())

	controller.Close()

	assert.Equal(t, domain.MethodShutdown, methodOf(t, readFrame(t, client)))
}

func TestHandler_InvalidIdentity(t *testing.T) {
	s := newTestServer(t, 0)

	_, resp, err := ws.DefaultDialer.Dial(s.url+"/hub?id=seven", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.wsm.RejectedConnections.WithLabelValues("invalid_id")))
}

func TestHandler_CapacityReached(t *testing.T) {
	s := newTestServer(t, 1)
	first := s.dial(t, "/hub?id=1")
	readFrame(t, first)

	_, resp, err := ws.DefaultDialer.Dial(s.url+"/hub?id=2", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandler_ShutdownClosesSessions(t *testing.T) {
	s := newTestServer(t, 0)
	conn := s.dial(t, "/hub?id=1")
	readFrame(t, conn)

	s.handler.Shutdown("server shutting down")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var closeErr *ws.CloseError
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			require.ErrorAs(t, err, &closeErr)
			break
		}
	}
	assert.Equal(t, "server shutting down", closeErr.Text)

	late := s.dial(t, "/hub?id=2")
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := late.ReadMessage()
	require.ErrorAs(t, err, &closeErr)
	assert.Eventually(t, func() bool { return s.state.Registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
