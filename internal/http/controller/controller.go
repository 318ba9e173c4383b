package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Controller handles general HTTP requests.
type Controller struct {
	db Pinger
}

// New creates a new Controller that checks db on health requests.
func New(db Pinger) *Controller {
	return &Controller{db: db}
}

// Ping handles the HTTP GET request for health check endpoint.
func (con *Controller) Ping(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := con.db.PingContext(ctx); err != nil {
		slog.Error("Health check failed", slog.Any("err", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "database unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}
