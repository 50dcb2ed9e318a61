package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paperqa/internal/domain"
)

// errorBody matches the {"detail": ...} shape clients already parse.
type errorBody struct {
	Detail string `json:"detail"`
}

func abort(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, errorBody{Detail: detail})
}

// writeError maps domain errors to status codes. Only NotIndexed carries
// request details back to the client; everything else is logged.
func (s *Server) writeError(c *gin.Context, docID string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotIndexed):
		abort(c, http.StatusNotFound, fmt.Sprintf("Paper %s not indexed", docID))
	case errors.Is(err, domain.ErrMalformedSource):
		abort(c, http.StatusUnprocessableEntity, "Malformed PDF—could not parse")
	case errors.Is(err, domain.ErrServiceUnavailable):
		s.logger.Warn("upstream unavailable", zap.String("doc_id", docID), zap.Error(err))
		abort(c, http.StatusServiceUnavailable, "Model service temporarily unavailable")
	case errors.Is(err, domain.ErrInvariantViolation):
		s.logger.Error("index invariant violated", zap.String("doc_id", docID), zap.Error(err))
		abort(c, http.StatusInternalServerError, "Internal index error")
	default:
		s.logger.Error("request failed", zap.String("doc_id", docID), zap.Error(err))
		abort(c, http.StatusInternalServerError, "Internal server error")
	}
}
