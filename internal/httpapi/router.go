// Package httpapi exposes the room over HTTP: snapshots for a rendering
// layer and, when this process hosts the authority, the owner's map
// navigation controls.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mauro7x/maze-runner/internal/config"
	"github.com/mauro7x/maze-runner/internal/game"
	"github.com/mauro7x/maze-runner/internal/geometry"
)

type geometryView struct {
	NRows int              `json:"nRows"`
	NCols int              `json:"nCols"`
	Walls []geometry.Range `json:"walls"`
	Start []geometry.Range `json:"start"`
	Goal  []geometry.Range `json:"goal"`
}

// SetupRouter builds the control API. auth is nil unless this process is
// the room owner; map navigation is exposed only to the owner.
func SetupRouter(cfg *config.Config, peer *game.Client, auth *game.Authority) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	api := r.Group("/api")

	api.GET("/room", func(c *gin.Context) {
		c.JSON(http.StatusOK, peer.Snapshot())
	})

	api.GET("/scoreboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, peer.Scoreboard())
	})

	api.GET("/geometry", func(c *gin.Context) {
		geo := peer.Geometry()
		if geo == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "not joined yet"})
			return
		}
		c.JSON(http.StatusOK, geometryView{
			NRows: geo.NRows(),
			NCols: geo.NCols(),
			Walls: geo.Walls(),
			Start: geo.StartZone(),
			Goal:  geo.GoalZone(),
		})
	})

	if auth != nil {
		api.GET("/authority", func(c *gin.Context) {
			c.JSON(http.StatusOK, auth.Snapshot())
		})
		api.POST("/map/next", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"currentMapIndex": auth.NextMap()})
		})
		api.POST("/map/prev", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"currentMapIndex": auth.PreviousMap()})
		})
	}

	return r
}
