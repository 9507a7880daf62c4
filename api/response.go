package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"ridematch/pkg/apperr"
	"ridematch/pkg/logger"
)

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= 500 {
		s.log.Error("request failed",
			logger.String("request_id", c.GetString(ctxRequestID)),
			logger.String("path", c.FullPath()),
			logger.Error(err),
		)
	}
	c.JSON(status, errorBody{Error: apperr.PublicMessage(err)})
}

func (s *Server) abort(c *gin.Context, err error) {
	s.fail(c, err)
	c.Abort()
}

func bind(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.InvalidInput("malformed body: %v", err)
	}
	return nil
}

func pathID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

func requireField(ok bool, name string) error {
	if !ok {
		return apperr.InvalidInput("%s is required", name)
	}
	return nil
}
