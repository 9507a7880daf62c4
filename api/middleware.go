package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ridematch/pkg/apperr"
	"ridematch/pkg/logger"
	"ridematch/pkg/metrics"
	"ridematch/pkg/models"
)

const (
	requestIDHeader = "X-Request-ID"

	ctxRequestID = "request_id"
	ctxAccount   = "account"
)

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func observe(log logger.ILogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		elapsed := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(elapsed.Seconds())

		log.Debug("http request",
			logger.String("request_id", c.GetString(ctxRequestID)),
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("elapsed", elapsed),
		)
	}
}

// authenticate resolves the bearer token to a fresh account read.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.abort(c, apperr.New(apperr.ErrUnauthorized, "missing bearer token"))
			return
		}

		id, err := s.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			s.abort(c, apperr.New(apperr.ErrUnauthorized, "invalid or expired token"))
			return
		}

		acc, err := s.svc.User().GetAccount(c.Request.Context(), id)
		if err != nil {
			if apperr.KindOf(err) == apperr.ErrNotFound {
				err = apperr.New(apperr.ErrUnauthorized, "account no longer exists")
			}
			s.abort(c, err)
			return
		}
		c.Set(ctxAccount, acc)
		c.Next()
	}
}

func caller(c *gin.Context) *models.Account {
	acc, _ := c.Get(ctxAccount)
	account, _ := acc.(*models.Account)
	return account
}
