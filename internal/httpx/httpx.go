// Package httpx holds the gin plumbing shared by the HTTP services.
package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/NordCoder/Studiobell/internal/auth"
	"github.com/NordCoder/Studiobell/internal/domain"
	"github.com/NordCoder/Studiobell/internal/obs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const recipientKey = "recipient_id"

type ServerCfg struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
}

// NewEngine returns a gin engine with recovery and request logging through zap.
func NewEngine(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(log))
	return r
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		obs.WithTrace(c.Request.Context(), log).Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// NewServer wraps the engine with otelhttp instrumentation.
func NewServer(cfg ServerCfg, h http.Handler, operation string) *http.Server {
	return &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     obs.HTTPHandler(h, operation),
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout stays zero for long-lived streams.
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// Auth verifies the bearer token and stores the recipient id for handlers.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := auth.BearerToken(c.Request)
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := auth.ParseAndValidate(tok, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		id, _ := claims.RecipientID()
		c.Set(recipientKey, id)
		c.Next()
	}
}

func RecipientID(c *gin.Context) int64 {
	return c.GetInt64(recipientKey)
}

// WithRecipient is a test hook that authenticates every request as id.
func WithRecipient(id int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(recipientKey, id)
		c.Next()
	}
}

func ParamInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad " + name})
		return 0, false
	}
	return v, true
}

// Fail maps domain errors to a status code and logs anything unexpected.
func Fail(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrInvalid):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConflict):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "conflict"})
	default:
		obs.WithTrace(c.Request.Context(), log).Error("request failed",
			zap.String("route", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
