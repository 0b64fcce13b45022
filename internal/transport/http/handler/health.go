package handler

import (
	"context"
	"errors"
	"net/http"
	"os/exec"
	"time"

	"github.com/gin-gonic/gin"

	"childhood-friend/internal/bootstrap"
)

var errNotConnected = errors.New("not connected")

type HealthHandler struct {
	app    *bootstrap.App
	checks []healthCheck
}

type dependencyStatus struct {
	OK       bool   `json:"ok"`
	Required bool   `json:"required"`
	Message  string `json:"message,omitempty"`
}

// healthCheck failures only turn the response into 503 when required is set.
// ffmpeg is optional: without it video frames are skipped, nothing else breaks.
type healthCheck struct {
	name     string
	required bool
	run      func(ctx context.Context) (string, error)
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	h := &HealthHandler{app: app}
	h.checks = []healthCheck{
		{name: "database", required: true, run: h.pingDatabase},
		{name: "redis", required: app.Config.Redis.Enabled, run: h.pingRedis},
		{name: "rabbitmq", required: app.Config.RabbitMQ.Enabled, run: h.pingRabbitMQ},
		{name: "storage", required: app.Objects != nil, run: h.pingStorage},
		{name: "ffmpeg", run: h.lookupFFmpeg},
	}
	return h
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	statusCode := http.StatusOK
	deps := make(gin.H, len(h.checks))
	for _, check := range h.checks {
		st := dependencyStatus{OK: true, Required: check.required}
		msg, err := check.run(ctx)
		if err != nil {
			st.OK = false
			st.Message = err.Error()
			if check.required {
				statusCode = http.StatusServiceUnavailable
			}
		} else {
			st.Message = msg
		}
		deps[check.name] = st
	}

	c.JSON(statusCode, gin.H{
		"app":          h.app.Config.App.Name,
		"env":          h.app.Config.App.Env,
		"uptime_sec":   int(time.Since(h.app.StartedAt).Seconds()),
		"dependencies": deps,
	})
}

func (h *HealthHandler) pingDatabase(ctx context.Context) (string, error) {
	if h.app.DB == nil {
		return "", errNotConnected
	}
	sqlDB, err := h.app.DB.DB()
	if err != nil {
		return "", err
	}
	return h.app.Config.Database.Driver, sqlDB.PingContext(ctx)
}

func (h *HealthHandler) pingRedis(ctx context.Context) (string, error) {
	if !h.app.Config.Redis.Enabled {
		return "disabled", nil
	}
	if h.app.Redis == nil {
		return "", errNotConnected
	}
	return "", h.app.Redis.Ping(ctx).Err()
}

func (h *HealthHandler) pingRabbitMQ(context.Context) (string, error) {
	if !h.app.Config.RabbitMQ.Enabled {
		return "disabled", nil
	}
	if h.app.MQConn == nil || h.app.MQConn.IsClosed() {
		return "", errNotConnected
	}
	return "", nil
}

func (h *HealthHandler) pingStorage(ctx context.Context) (string, error) {
	if h.app.Objects == nil {
		return "not configured", nil
	}
	return h.app.Config.Storage.Bucket, h.app.Objects.Ping(ctx)
}

func (h *HealthHandler) lookupFFmpeg(context.Context) (string, error) {
	return exec.LookPath(h.app.Config.Media.FFmpegPath)
}
