package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/ppriyankuu/knowledgebase/internal/knowledge"
	"github.com/ppriyankuu/knowledgebase/internal/transport"
)

// PutRequest is the body accepted by PUT /kv/:name. Type selects which
// of the value fields is read; unused fields are ignored.
type PutRequest struct {
	Type    string    `json:"type" binding:"required"`
	Int     int64     `json:"int,omitempty"`
	Dbl     float64   `json:"dbl,omitempty"`
	IntArr  []int64   `json:"int_arr,omitempty"`
	DblArr  []float64 `json:"dbl_arr,omitempty"`
	Str     string    `json:"str,omitempty"`
	Bin     []byte    `json:"bin,omitempty"`
	Quality *uint32   `json:"quality,omitempty"`
}

// recordView is the read-side JSON shape for a single record.
type recordView struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Clock   uint64 `json:"clock"`
	Quality uint32 `json:"quality"`
	Value   any    `json:"value"`
}

func toView(name string, r knowledge.KnowledgeRecord) recordView {
	var value any
	switch r.Type() {
	case knowledge.Integer:
		value = r.ToInteger()
	case knowledge.Double:
		value = r.ToDouble()
	default:
		value = r.ToString()
	}
	return recordView{Name: name, Type: r.Type().String(), Clock: r.Clock(), Quality: r.Quality(), Value: value}
}

// GetKey reads a single variable.
func (a *API) GetKey(c *gin.Context) {
	name := c.Param("name")
	if !a.ctx.Exists(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, toView(name, a.ctx.Get(name)))
}

// PutKey writes a single variable, dispatching on the request's type
// field to the matching typed setter.
func (a *API) PutKey(c *gin.Context) {
	name := c.Param("name")
	var req PutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := knowledge.DefaultUpdateSettings()

	var code int
	switch req.Type {
	case "integer":
		code = a.ctx.SetInteger(name, req.Int, settings)
	case "double":
		code = a.ctx.SetDouble(name, req.Dbl, settings)
	case "integer_array":
		code = a.ctx.SetIntegerArray(name, req.IntArr, settings)
	case "double_array":
		code = a.ctx.SetDoubleArray(name, req.DblArr, settings)
	case "string":
		code = a.ctx.SetString(name, req.Str, settings)
	case "text":
		code = a.ctx.SetText(name, req.Str, settings)
	case "xml":
		code = a.ctx.SetXML(name, req.Str, settings)
	case "jpeg":
		if !mimetype.Detect(req.Bin).Is("image/jpeg") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payload is not a JPEG"})
			return
		}
		code = a.ctx.SetJPEG(name, req.Bin, settings)
	case "unknown_file":
		code = a.ctx.SetUnknownFile(name, req.Bin, settings)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown type " + req.Type})
		return
	}

	if code != 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty name"})
		return
	}
	if req.Quality != nil {
		a.ctx.SetQuality(name, *req.Quality)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DeleteKey removes a variable.
func (a *API) DeleteKey(c *gin.Context) {
	name := c.Param("name")
	a.ctx.DeleteVariable(name)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// GetIndex reads a single array element.
func (a *API) GetIndex(c *gin.Context) {
	name := c.Param("name")
	i, err := strconv.Atoi(c.Param("i"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad index"})
		return
	}
	c.JSON(http.StatusOK, toView(name, a.ctx.RetrieveIndex(name, i)))
}

// PutIndex writes a single array element. ?kind=double selects the
// double-array setter; integer is the default.
func (a *API) PutIndex(c *gin.Context) {
	name := c.Param("name")
	i, err := strconv.Atoi(c.Param("i"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad index"})
		return
	}
	var req struct {
		Value float64 `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := knowledge.DefaultUpdateSettings()
	if c.Query("kind") == "double" {
		a.ctx.SetIndexDouble(name, i, req.Value, settings)
	} else {
		a.ctx.SetIndex(name, i, int64(req.Value), settings)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// IncKey increments a numeric variable by one.
func (a *API) IncKey(c *gin.Context) {
	a.ctx.Inc(c.Param("name"), knowledge.DefaultUpdateSettings())
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DecKey decrements a numeric variable by one.
func (a *API) DecKey(c *gin.Context) {
	a.ctx.Dec(c.Param("name"), knowledge.DefaultUpdateSettings())
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ScanPrefix returns every live variable whose name starts with prefix.
func (a *API) ScanPrefix(c *gin.Context) {
	prefix := c.Param("prefix")
	records := a.ctx.ToMapRange(prefix)
	out := make([]recordView, 0, len(records))
	for name, r := range records {
		out = append(out, toView(name, r))
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

// ExpandStatement expands the ?s= query parameter's {name} references.
func (a *API) ExpandStatement(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"result": a.ctx.ExpandStatement(c.Query("s"))})
}

// GetClock returns the context's Lamport clock.
func (a *API) GetClock(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clock": a.ctx.GetClock()})
}

// SetClock sets the context's Lamport clock.
func (a *API) SetClock(c *gin.Context) {
	var req struct {
		Clock uint64 `json:"clock" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clock": a.ctx.SetClock(req.Clock)})
}

// Wait blocks until a change is signalled or ?timeout_ms elapses. There
// is no native timeout primitive on wait_for_change (§9), so a deadline
// is implemented by scheduling a goroutine to call SetChanged.
func (a *API) Wait(c *gin.Context) {
	timeoutMs, _ := strconv.Atoi(c.Query("timeout_ms"))
	if timeoutMs <= 0 {
		timeoutMs = 30000
	}
	timer := time.AfterFunc(time.Duration(timeoutMs)*time.Millisecond, a.ctx.SetChanged)
	defer timer.Stop()

	a.ctx.WaitForChange(false)
	c.JSON(http.StatusOK, gin.H{"status": "changed"})
}

// Signal wakes any goroutine blocked in Wait.
func (a *API) Signal(c *gin.Context) {
	a.ctx.SetChanged()
	c.JSON(http.StatusOK, gin.H{"status": "signalled"})
}

// GetModifieds reports the current global modified-set.
func (a *API) GetModifieds(c *gin.Context) {
	modified := a.ctx.GetModifieds()
	out := make([]recordView, 0, len(modified))
	for name, r := range modified {
		out = append(out, toView(name, r))
	}
	c.JSON(http.StatusOK, gin.H{"modified": out})
}

// SaveCheckpoint writes only the current modified-set to ?path.
func (a *API) SaveCheckpoint(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing path"})
		return
	}
	n := a.ctx.SaveCheckpoint(path, a.nodeID)
	if n < 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "checkpoint failed", "code": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bytes": n})
}

// SaveContext writes a full checkpoint to ?path.
func (a *API) SaveContext(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing path"})
		return
	}
	n := a.ctx.SaveContext(path, a.nodeID)
	if n < 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed", "code": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bytes": n})
}

// Replicate is the internal endpoint peers use to push a modified
// variable; it goes through the same external-update merge rule as any
// other external write.
func (a *API) Replicate(c *gin.Context) {
	if a.replicator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "replication not configured"})
		return
	}
	var req transport.ReplicateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": a.replicator.ApplyInbound(req)})
}

// JoinCluster adds a node to the replication membership.
func (a *API) JoinCluster(c *gin.Context) {
	if a.membership == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "clustering not configured"})
		return
	}
	var req transport.Node
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.membership.Join(req); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

// LeaveCluster removes a node from the replication membership.
func (a *API) LeaveCluster(c *gin.Context) {
	if a.membership == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "clustering not configured"})
		return
	}
	var req struct {
		NodeID string `json:"node_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := a.membership.Leave(req.NodeID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// ClusterNodes lists known replication peers.
func (a *API) ClusterNodes(c *gin.Context) {
	if a.membership == nil {
		c.JSON(http.StatusOK, gin.H{"nodes": []transport.Node{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": a.membership.All()})
}

// Healthz is a liveness probe.
func (a *API) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "node_id": a.nodeID})
}
