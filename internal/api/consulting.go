package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adaptbtc/adaptbtc-server/internal/consulting"
)

func (s *Server) consultingRequest(c *gin.Context) {
	// 解析失败按空表单处理，交给校验返回提示
	var req consulting.Request
	_ = c.ShouldBindJSON(&req)

	_, err := s.deps.Consulting.Submit(c.Request.Context(), req)
	if err != nil {
		var verr *consulting.ValidationError
		var derr *consulting.DeliveryError
		switch {
		case errors.As(err, &verr):
			abortJSON(c, http.StatusBadRequest, verr.Message)
		case errors.As(err, &derr):
			_ = c.Error(err)
			abortJSON(c, http.StatusInternalServerError, derr.Error())
		default:
			_ = c.Error(err)
			abortJSON(c, http.StatusInternalServerError, "Unable to send request: "+err.Error())
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
