package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agroedge/internal/app/fanout"
	"agroedge/internal/domain/record"
	"agroedge/internal/domain/session"
	"agroedge/internal/utils/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens map[string]*session.Claims

func (t staticTokens) Validate(token string) (*session.Claims, error) {
	c, ok := t[token]
	if !ok {
		return nil, session.ErrInvalidToken
	}
	return c, nil
}

type emptyStore struct{}

func (emptyStore) LatestReadings(context.Context, string, string, int) ([]record.Record, error) {
	return nil, nil
}

func (emptyStore) Alerts(context.Context, string, int) ([]record.Record, error) { return nil, nil }

func (emptyStore) Farm(context.Context, string) (record.Record, error) {
	return record.Record{}, record.ErrNotFound
}

type recordingRelay struct {
	cmds chan fanout.IssuedCommand
}

func (r *recordingRelay) RelayCommand(_ context.Context, cmd fanout.IssuedCommand) error {
	r.cmds <- cmd
	return nil
}

type frame struct {
	Type string          `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*fanout.Hub, *recordingRelay, string) {
	t.Helper()
	relay := &recordingRelay{cmds: make(chan fanout.IssuedCommand, 1)}
	hub := fanout.NewHub(staticTokens{
		"alice": {UserID: "alice", Farms: []string{"farm_a"}, Permissions: []string{fanout.PermDeviceControl}},
	}, emptyStore{}, relay, logger.Discard())

	srv := httptest.NewServer(NewHandler(hub, logger.Discard()))
	t.Cleanup(srv.Close)
	return hub, relay, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, typ, id string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, c.WriteJSON(frame{Type: typ, ID: id, Data: raw}))
}

func read(t *testing.T, c *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, c.ReadJSON(&f))
	return f
}

func TestHandler_Session(t *testing.T) {
	hub, relay, url := setup(t)
	c := dial(t, url)

	send(t, c, fanout.FrameAuth, "1", authData{Token: "alice"})
	f := read(t, c)
	require.Equal(t, fanout.FrameAuthResult, f.Type)
	var auth fanout.AuthResult
	require.NoError(t, json.Unmarshal(f.Data, &auth))
	assert.True(t, auth.OK)
	assert.Equal(t, []string{"farm_a"}, auth.FarmIDs)

	send(t, c, fanout.FrameSubscribeFarms, "2", subscribeData{FarmIDs: []string{"farm_a"}})
	f = read(t, c)
	assert.Equal(t, fanout.FrameSubscribed, f.Type)
	assert.Equal(t, "2", f.ID)

	send(t, c, fanout.FrameSubscribeFarms, "3", subscribeData{FarmIDs: []string{"farm_b"}})
	f = read(t, c)
	assert.Equal(t, fanout.FrameError, f.Type)
	assert.Contains(t, string(f.Data), "access denied")

	require.Eventually(t, func() bool {
		return hub.Publish(fanout.Update{Type: fanout.UpdateAlert, FarmID: "farm_a", Data: "frost"}) == 1
	}, time.Second, 10*time.Millisecond)
	f = read(t, c)
	assert.Equal(t, fanout.FrameUpdate, f.Type)
	assert.Contains(t, string(f.Data), `"farmId":"farm_a"`)

	send(t, c, fanout.FrameQuery, "4", queryData{Kind: fanout.QueryAlerts, Params: map[string]string{"farmId": "farm_a"}})
	f = read(t, c)
	assert.Equal(t, fanout.FrameQueryResult, f.Type)
	assert.JSONEq(t, `{"data":[]}`, string(f.Data))

	send(t, c, fanout.FrameDeviceCommand, "5", fanout.Command{FarmID: "farm_a", DeviceID: "valve_1", Action: "open"})
	f = read(t, c)
	assert.Equal(t, fanout.FrameCommandResult, f.Type)
	var res commandResult
	require.NoError(t, json.Unmarshal(f.Data, &res))
	assert.True(t, res.OK)
	assert.Equal(t, "valve_1", (<-relay.cmds).DeviceID)

	send(t, c, "dance", "6", nil)
	f = read(t, c)
	assert.Equal(t, fanout.FrameError, f.Type)
	assert.Equal(t, "6", f.ID)
}

func TestHandler_RejectsBeforeAuth(t *testing.T) {
	_, _, url := setup(t)
	c := dial(t, url)

	send(t, c, fanout.FrameQuery, "1", queryData{Kind: fanout.QueryAlerts, Params: map[string]string{"farmId": "farm_a"}})
	f := read(t, c)
	assert.Equal(t, fanout.FrameQueryResult, f.Type)
	assert.Contains(t, string(f.Data), "not authenticated")
}

func TestHandler_FailedAuthCloses(t *testing.T) {
	hub, _, url := setup(t)
	c := dial(t, url)

	send(t, c, fanout.FrameAuth, "1", authData{Token: "forged"})
	f := read(t, c)
	require.Equal(t, fanout.FrameAuthResult, f.Type)
	assert.Contains(t, string(f.Data), `"ok":false`)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := c.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHandler_AuthTimeout(t *testing.T) {
	hub := fanout.NewHub(staticTokens{}, emptyStore{}, &recordingRelay{}, logger.Discard())
	h := NewHandler(hub, logger.Discard())
	h.authTimeout = 20 * time.Millisecond
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))

	f := read(t, c)
	assert.Equal(t, fanout.FrameAuthResult, f.Type)
	_, _, err := c.ReadMessage()
	assert.Error(t, err)
}
