// Package api exposes the knowledge context and its replication
// transport over HTTP using Gin, mirroring the shape of a typical
// distributed-store REST surface: a public /kv API for callers, an
// /internal API for inter-node replication, and /cluster and /control
// surfaces for operational control.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppriyankuu/knowledgebase/internal/knowledge"
	"github.com/ppriyankuu/knowledgebase/internal/transport"
)

// API bundles the knowledge context and the replicator that drains it.
type API struct {
	ctx        *knowledge.Context
	membership *transport.Membership
	replicator *transport.Replicator
	nodeID     string
}

// New builds an API. replicator may be nil for a single-node deployment.
func New(ctx *knowledge.Context, membership *transport.Membership, replicator *transport.Replicator, nodeID string) *API {
	return &API{ctx: ctx, membership: membership, replicator: replicator, nodeID: nodeID}
}

// SetupRoutes registers every route group on r.
func (a *API) SetupRoutes(r *gin.Engine) {
	r.Use(Logger(), Recovery())

	kv := r.Group("/kv")
	{
		kv.GET("/:name", a.GetKey)
		kv.PUT("/:name", a.PutKey)
		kv.DELETE("/:name", a.DeleteKey)
		kv.GET("/:name/index/:i", a.GetIndex)
		kv.PUT("/:name/index/:i", a.PutIndex)
		kv.POST("/:name/inc", a.IncKey)
		kv.POST("/:name/dec", a.DecKey)
	}

	scan := r.Group("/scan")
	{
		scan.GET("/prefix/:prefix", a.ScanPrefix)
		scan.GET("/expand", a.ExpandStatement)
	}

	ctrl := r.Group("/control")
	{
		ctrl.GET("/clock", a.GetClock)
		ctrl.POST("/clock", a.SetClock)
		ctrl.POST("/wait", a.Wait)
		ctrl.POST("/signal", a.Signal)
		ctrl.GET("/modifieds", a.GetModifieds)
		ctrl.POST("/checkpoint", a.SaveCheckpoint)
		ctrl.POST("/snapshot", a.SaveContext)
	}

	internal := r.Group("/internal")
	{
		internal.POST("/replicate", a.Replicate)
	}

	cluster := r.Group("/cluster")
	{
		cluster.POST("/join", a.JoinCluster)
		cluster.POST("/leave", a.LeaveCluster)
		cluster.GET("/nodes", a.ClusterNodes)
	}

	r.GET("/healthz", a.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
