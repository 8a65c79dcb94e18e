package api

import (
	"net/http"
	"strconv"

	"github.com/NordCoder/Studiobell/internal/domain/entity"
	"github.com/NordCoder/Studiobell/internal/httpx"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	log *zap.Logger
	uc  *Usecase
}

func NewServer(log *zap.Logger, uc *Usecase) *Server {
	return &Server{log: log.With(zap.String("component", "api")), uc: uc}
}

func (s *Server) Register(r gin.IRoutes) {
	r.GET("/v1/alerts", s.alerts)
	r.GET("/v1/entities/:kind/:id/badges", s.badges)
	r.GET("/v1/notifications/unread", s.unread)
	r.GET("/v1/notifications/unread/count", s.unreadCount)
	r.POST("/v1/notifications/:id/read", s.markRead)
	r.POST("/v1/notifications/read-all", s.markAllRead)
	r.GET("/v1/settings/notifications", s.getSettings)
	r.PUT("/v1/settings/notifications", s.putSettings)
}

func (s *Server) alerts(c *gin.Context) {
	out, err := s.uc.Alerts(c.Request.Context(), httpx.RecipientID(c))
	if err != nil {
		httpx.Fail(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": out})
}

func (s *Server) badges(c *gin.Context) {
	kind, ok := entity.ParseKind(c.Param("kind"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad kind"})
		return
	}
	id, ok := httpx.ParamInt64(c, "id")
	if !ok {
		return
	}
	out, err := s.uc.Badges(c.Request.Context(), httpx.RecipientID(c), kind, id)
	if err != nil {
		httpx.Fail(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"badges": out})
}

func (s *Server) unread(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad limit"})
			return
		}
		limit = n
	}
	out, err := s.uc.Store.ListUnread(c.Request.Context(), httpx.RecipientID(c), limit)
	if err != nil {
		httpx.Fail(c, s.log, err)
		return
	}
	if out == nil {
		c.JSON(http.StatusOK, gin.H{"notifications": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": out})
}

func (s *Server) unreadCount(c *gin.Context) {
	n, err := s.uc.Store.CountUnread(c.Request.Context(), httpx.RecipientID(c))
	if err != nil {
		httpx.Fail(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (s *Server) markRead(c *gin.Context) {
	id, ok := httpx.ParamInt64(c, "id")
	if !ok {
		return
	}
	if err := s.uc.Store.MarkRead(c.Request.Context(), httpx.RecipientID(c), id); err != nil {
		httpx.Fail(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) markAllRead(c *gin.Context) {
	n, err := s.uc.Store.MarkAllRead(c.Request.Context(), httpx.RecipientID(c))
	if err != nil {
		httpx.Fail(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (s *Server) getSettings(c *gin.Context) {
	out, err := s.uc.NotificationSettings(c.Request.Context(), httpx.RecipientID(c))
	if err != nil {
		httpx.Fail(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) putSettings(c *gin.Context) {
	var in SettingsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := s.uc.PutNotificationSettings(c.Request.Context(), httpx.RecipientID(c), in)
	if err != nil {
		httpx.Fail(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
