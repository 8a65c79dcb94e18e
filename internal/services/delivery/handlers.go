package delivery

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/NordCoder/Studiobell/internal/domain"
	"github.com/NordCoder/Studiobell/internal/domain/notification"
	"github.com/NordCoder/Studiobell/internal/httpx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const FramePing = "ping"

type SettingsReader interface {
	Get(ctx context.Context, recipientID int64) (*notification.Settings, error)
}

type Handlers struct {
	Log       *zap.Logger
	Hub       *Hub
	Settings  SettingsReader
	Heartbeat time.Duration
}

func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/v1/stream", h.stream)
	r.POST("/v1/stream/:session/state", h.state)
	r.POST("/v1/stream/:session/click", h.click)
	r.POST("/v1/stream/:session/read/:id", h.read)
	r.POST("/v1/stream/:session/read-all", h.readAll)
}

// initialState seeds the session from the query string and the stored sound
// preference. Sounds default to on when no settings row exists.
func (h *Handlers) initialState(c *gin.Context, recipientID int64) ClientState {
	st := ClientState{
		Focused:    c.Query("focused") == "true",
		Permission: Permission(c.DefaultQuery("permission", string(PermissionDefault))),
		Sounds:     true,
	}
	if h.Settings == nil {
		return st
	}
	s, err := h.Settings.Get(c.Request.Context(), recipientID)
	switch {
	case err == nil:
		st.Sounds = s.SoundsEnabled
	case !errors.Is(err, domain.ErrNotFound):
		h.Log.Warn("load sound preference", zap.Int64("recipient_id", recipientID), zap.Error(err))
	}
	return st
}

func (h *Handlers) stream(c *gin.Context) {
	recipientID := httpx.RecipientID(c)
	ctx := c.Request.Context()

	s := h.Hub.Subscribe(recipientID, h.initialState(c, recipientID))
	defer h.Hub.Unsubscribe(s)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent(FrameSession, gin.H{"session_id": s.ID})
	c.Writer.Flush()

	go func() {
		if err := s.Sync(ctx); err != nil && ctx.Err() == nil {
			h.Log.Warn("initial sync", zap.String("session", s.ID), zap.Error(err))
		}
	}()

	hb := h.Heartbeat
	if hb <= 0 {
		hb = 25 * time.Second
	}
	ticker := time.NewTicker(hb)
	defer ticker.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-s.Done():
			return false
		case f := <-s.Frames():
			mFrames.WithLabelValues(f.Event).Inc()
			c.SSEvent(f.Event, f.Data)
			return true
		case t := <-ticker.C:
			c.SSEvent(FramePing, t.Unix())
			return true
		}
	})
}

func (h *Handlers) session(c *gin.Context) (*Session, bool) {
	s, ok := h.Hub.Session(httpx.RecipientID(c), c.Param("session"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown session"})
	}
	return s, ok
}

func (h *Handlers) state(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var st ClientState
	if err := c.ShouldBindJSON(&st); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch st.Permission {
	case PermissionDefault, PermissionGranted, PermissionDenied:
	case "":
		st.Permission = PermissionDefault
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad permission"})
		return
	}
	s.SetState(st)
	c.JSON(http.StatusOK, st)
}

type clickReq struct {
	NotificationID int64 `json:"notification_id" binding:"required"`
}

func (h *Handlers) click(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req clickReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.Click(req.NotificationID)
	c.Status(http.StatusNoContent)
}

func (h *Handlers) read(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	id, ok := httpx.ParamInt64(c, "id")
	if !ok {
		return
	}
	if err := s.Inbox().MarkRead(c.Request.Context(), id); err != nil {
		httpx.Fail(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, s.Inbox().View())
}

func (h *Handlers) readAll(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.Inbox().MarkAllRead(c.Request.Context()); err != nil {
		httpx.Fail(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, s.Inbox().View())
}
