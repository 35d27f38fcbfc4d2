package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppriyankuu/knowledgebase/internal/knowledge"
)

func newTestRouter() (*gin.Engine, *API) {
	gin.SetMode(gin.TestMode)
	ctx := knowledge.NewContext()
	a := New(ctx, nil, nil, "test-node")
	r := gin.New()
	a.SetupRoutes(r)
	return r, a
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// TestGetKeyMissingReturns404 verifies an absent variable is reported
// as not found rather than as a zero-valued record.
func TestGetKeyMissingReturns404(t *testing.T) {
	r, _ := newTestRouter()
	rec := doJSON(r, http.MethodGet, "/kv/absent", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestPutThenGetRoundTrip verifies a PUT is immediately visible to a
// subsequent GET.
func TestPutThenGetRoundTrip(t *testing.T) {
	r, _ := newTestRouter()
	putRec := doJSON(r, http.MethodPut, "/kv/counter", PutRequest{Type: "integer", Int: 5})
	require.Equal(t, http.StatusOK, putRec.Code)

	getRec := doJSON(r, http.MethodGet, "/kv/counter", nil)
	require.Equal(t, http.StatusOK, getRec.Code)

	var view recordView
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &view))
	assert.Equal(t, float64(5), view.Value)
}

// TestPutRejectsNonJPEGPayloadForJPEGType verifies content sniffing
// guards the jpeg type against arbitrary binary payloads.
func TestPutRejectsNonJPEGPayloadForJPEGType(t *testing.T) {
	r, _ := newTestRouter()
	rec := doJSON(r, http.MethodPut, "/kv/pic", PutRequest{Type: "jpeg", Bin: []byte("not a jpeg")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestIncOnAbsentKeyThenGet verifies IncKey materializes a fresh
// counter starting from zero.
func TestIncOnAbsentKeyThenGet(t *testing.T) {
	r, _ := newTestRouter()
	rec := doJSON(r, http.MethodPost, "/kv/hits/inc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	getRec := doJSON(r, http.MethodGet, "/kv/hits", nil)
	var view recordView
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &view))
	assert.Equal(t, float64(1), view.Value)
}

// TestSignalUnblocksWait verifies a concurrent Signal call releases a
// pending Wait request rather than requiring the timeout to fire.
func TestSignalUnblocksWait(t *testing.T) {
	r, _ := newTestRouter()
	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- doJSON(r, http.MethodPost, "/control/wait?timeout_ms=5000", nil)
	}()

	time.Sleep(20 * time.Millisecond) // let the waiter reach cond.Wait before signalling
	signalRec := doJSON(r, http.MethodPost, "/control/signal", nil)
	require.Equal(t, http.StatusOK, signalRec.Code)

	rec := <-done
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestReplicateWithoutReplicatorConfiguredReturns503 verifies the
// internal replication endpoint refuses traffic on a single-node
// deployment rather than silently discarding it.
func TestReplicateWithoutReplicatorConfiguredReturns503(t *testing.T) {
	r, _ := newTestRouter()
	rec := doJSON(r, http.MethodPost, "/internal/replicate", map[string]any{})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// TestHealthzReportsNodeID verifies the liveness probe echoes back the
// configured node identifier.
func TestHealthzReportsNodeID(t *testing.T) {
	r, _ := newTestRouter()
	rec := doJSON(r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "test-node", body["node_id"])
}
