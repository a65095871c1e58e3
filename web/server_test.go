// ABOUTME: Tests for the JSON API and websocket feed
// ABOUTME: Runs the handler under httptest against a temp store and in-memory mirror
package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/advisor-crm/charm"
	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/logging"
	"github.com/harperreed/advisor-crm/mirror"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/store"
)

func setupTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	st, err := store.Open(charm.NewTestBackend(t), store.WithLogger(logging.Discard()))
	require.NoError(t, err)
	svc := crm.New(st, mirror.New(mirror.NewMemoryRemote(), logging.Discard()), crm.WithLogger(logging.Discard()))
	t.Cleanup(svc.Wait)
	sess, err := st.SessionFor("poradce")
	require.NoError(t, err)

	srv := NewServer(svc, sess, logging.Discard())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func doJSON(t *testing.T, method, url string, body any, headers ...string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createClient(t *testing.T, ts *httptest.Server, first, last string) models.Client {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/clients", map[string]string{"firstName": first, "lastName": last})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[models.Client](t, resp)
}

func TestCreateAndGetClient(t *testing.T) {
	_, ts := setupTestServer(t)

	c := createClient(t, ts, "Eva", "Černá")
	assert.Equal(t, models.StageNavolani, c.WorkflowStage)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/clients/"+itoa(c.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[models.Client](t, resp)
	assert.Equal(t, "Eva", got.FirstName)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/clients?q=čern", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody[[]models.Client](t, resp), 1)
}

func TestCreateClientValidation(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/clients", map[string]string{"firstName": "Eva"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/clients/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/clients/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAssistantCannotSeeClient(t *testing.T) {
	_, ts := setupTestServer(t)
	c := createClient(t, ts, "Eva", "Černá")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/clients/"+itoa(c.ID), nil, UserHeader, "asistent")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/clients", nil, UserHeader, "nikdo")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateAndDeleteClient(t *testing.T) {
	_, ts := setupTestServer(t)
	c := createClient(t, ts, "Eva", "Černá")

	resp := doJSON(t, http.MethodPatch, ts.URL+"/api/clients/"+itoa(c.ID), map[string]string{"city": "Brno"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Brno", decodeBody[models.Client](t, resp).City)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/clients/"+itoa(c.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/clients/"+itoa(c.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMoveClientAndBoard(t *testing.T) {
	_, ts := setupTestServer(t)
	c := createClient(t, ts, "Eva", "Černá")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/clients/"+itoa(c.ID)+"/stage", map[string]string{"stage": "analyza_potreb"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[struct {
		Client  models.Client `json:"client"`
		Changed bool          `json:"changed"`
	}](t, resp)
	assert.True(t, out.Changed)
	assert.Equal(t, models.StageAnalyzaPotreb, out.Client.WorkflowStage)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/clients/"+itoa(c.ID)+"/stage", map[string]string{"stage": "HOTOVO"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/board", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var board []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&board))
	assert.Len(t, board, len(models.Stages))
}

func TestEditPotential(t *testing.T) {
	_, ts := setupTestServer(t)
	c := createClient(t, ts, "Eva", "Černá")

	resp := doJSON(t, http.MethodPatch, ts.URL+"/api/clients/"+itoa(c.ID)+"/potential", []map[string]any{
		{"category": "mortgage", "interested": true, "expectedCommission": 40000},
		{"category": "auto", "interested": true, "expectedCommission": 15000},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decodeBody[models.ClientPotential](t, resp)
	assert.InDelta(t, 55000, p.TotalExpectedCommission, 0.001)
	assert.Equal(t, models.PotentialHigh, p.Priority)

	resp = doJSON(t, http.MethodPatch, ts.URL+"/api/clients/"+itoa(c.ID)+"/potential", []map[string]any{
		{"category": "yacht", "interested": true},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/clients/"+itoa(c.ID)+"/potential", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.InDelta(t, 55000, decodeBody[models.ClientPotential](t, resp).TotalExpectedCommission, 0.001)
}

func TestUpdateAnalysisSection(t *testing.T) {
	_, ts := setupTestServer(t)
	c := createClient(t, ts, "Eva", "Černá")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/clients/"+itoa(c.ID)+"/analysis", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/clients/"+itoa(c.ID)+"/analysis/goals", map[string]any{"savings": map[string]any{}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, ts.URL+"/api/clients/"+itoa(c.ID)+"/analysis/bogus", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/clients/"+itoa(c.ID)+"/analysis", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[map[string]any](t, resp)
	assert.EqualValues(t, 17, out["completionPercentage"])
}

func TestTasksAndMeetings(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/tasks", map[string]string{"title": "Zavolat", "priority": "high"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	task := decodeBody[models.Task](t, resp)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/tasks/"+itoa(task.ID)+"/complete", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeBody[models.Task](t, resp).Completed)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/tasks?filter=completed", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody[[]models.Task](t, resp), 1)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/tasks?filter=weird", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	start := time.Date(2030, 5, 6, 9, 0, 0, 0, time.UTC)
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/meetings", map[string]any{
		"title": "Schůzka", "startTime": start, "endTime": start.Add(-time.Hour),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/meetings", map[string]any{
		"title": "Schůzka", "startTime": start, "endTime": start.Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/meetings?date=2030-05-06", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody[[]models.Meeting](t, resp), 1)
}

func TestDashboardIsPlainText(t *testing.T) {
	_, ts := setupTestServer(t)
	createClient(t, ts, "Eva", "Černá")

	resp := doJSON(t, http.MethodGet, ts.URL+"/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ADVISOR CRM DASHBOARD")
}

func TestWebsocketReceivesStageChange(t *testing.T) {
	srv, ts := setupTestServer(t)
	c := createClient(t, ts, "Eva", "Černá")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return srv.Hub().Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/clients/"+itoa(c.ID)+"/stage", map[string]string{"stage": "PODPIS"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, string(crm.EventStageChanged), msg.Action)
	assert.Equal(t, c.ID, msg.Event.ClientID)
	assert.Equal(t, models.StageNavolani, msg.Event.From)
	assert.Equal(t, models.StagePodpis, msg.Event.To)
}

func TestSlowWebsocketDoesNotBlockBroadcast(t *testing.T) {
	srv, ts := setupTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.Eventually(t, func() bool { return srv.Hub().Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	// The peer never reads, so socket buffers fill and the writer stalls.
	big := &models.Client{Notes: strings.Repeat("x", 256*1024)}
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			srv.Hub().Broadcast(Message{Action: "bulk", Event: crm.Event{Client: big}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("broadcast blocked on a stalled socket")
	}
	require.Eventually(t, func() bool { return srv.Hub().Len() == 0 }, 10*time.Second, 20*time.Millisecond)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
