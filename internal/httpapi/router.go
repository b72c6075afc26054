// Package httpapi assembles the gin-gonic HTTP surface every syncdbd
// process exposes: health, Prometheus metrics, and the collaborative
// editor's WebSocket upgrade.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Polqt/syncdb/collab"
)

// Deps bundles everything the router needs to construct its routes.
type Deps struct {
	CollabHub       *collab.Hub
	MetricsGatherer prometheus.Gatherer
}

// New builds the gin engine. It uses gin.New (not gin.Default) and
// wires only gin's recovery middleware; no access-log middleware is
// installed.
func New(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.MetricsGatherer != nil {
		handler := promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{})
		r.GET("/metrics", gin.WrapH(handler))
	}

	if deps.CollabHub != nil {
		wsHandler := collab.NewWSHandler(deps.CollabHub, nil)
		r.GET("/ws/:docID", func(c *gin.Context) {
			wsHandler.ServeHTTP(c.Writer, c.Request)
		})
		r.GET("/admin/documents", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"documents": deps.CollabHub.DocumentCount()})
		})
	}

	return r
}
