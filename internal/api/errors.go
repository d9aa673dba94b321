package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adaptbtc/adaptbtc-server/internal/exchange"
	"github.com/adaptbtc/adaptbtc-server/internal/portal"
	"github.com/adaptbtc/adaptbtc-server/internal/upstream"
)

func abortJSON(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

// upstreamFailure 上游失败返回 502，其余错误返回 500
func upstreamFailure(c *gin.Context, prefix string, err error) {
	var uerr *upstream.Error
	var aerr *exchange.AggregationError
	if errors.As(err, &uerr) || errors.As(err, &aerr) {
		_ = c.Error(err)
		abortJSON(c, http.StatusBadGateway, prefix+": "+err.Error())
		return
	}
	internalError(c, err)
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	abortJSON(c, http.StatusInternalServerError, "internal server error")
}

// portalFailure 门户错误映射
func portalFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, portal.ErrCourseNotFound),
		errors.Is(err, portal.ErrLessonNotFound),
		errors.Is(err, portal.ErrCertificateNotFound):
		abortJSON(c, http.StatusNotFound, capitalize(err.Error())+".")
	case errors.Is(err, portal.ErrNotPassed):
		abortJSON(c, http.StatusForbidden, "Pass the course quiz before requesting a certificate.")
	default:
		internalError(c, err)
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
