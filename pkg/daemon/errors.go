package daemon

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tandempv/xystage/pkg/types"
)

var kindStatus = map[string]int{
	types.KindBadRequest:     http.StatusBadRequest,
	types.KindOutOfBounds:    http.StatusBadRequest,
	types.KindNoPoints:       http.StatusBadRequest,
	types.KindPrecondition:   http.StatusConflict,
	types.KindScanInProgress: http.StatusConflict,
	types.KindScanNotRunning: http.StatusConflict,
	types.KindNoSchedule:     http.StatusConflict,
	types.KindNotFound:       http.StatusServiceUnavailable,
	types.KindTransport:      http.StatusBadGateway,
	types.KindTimeout:        http.StatusGatewayTimeout,
}

func statusFor(err error) int {
	if s, ok := kindStatus[types.KindOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// abortWithError writes err as a types.Error with the status its kind maps
// to, and records it for ginLogger.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	c.IndentedJSON(status, types.Error{Error: err.Error(), Kind: types.KindOf(err)})
	_ = c.AbortWithError(status, err)
}
