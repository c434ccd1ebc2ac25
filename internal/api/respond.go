// Package api implements the HTTP surface: job submission/status,
// lexicon-term administration, and feedback review. Every handler
// translates a service-layer apierr.Error into the status code and
// envelope this package defines centrally, so no handler hand-rolls its
// own error JSON.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"transcribeapi/internal/apierr"

	"github.com/gin-gonic/gin"
)

// defaultPageLimit and maxPageLimit bound the offset/limit query
// parameters every listing endpoint accepts.
const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// pageParams reads offset/limit query parameters, applying defaults and
// clamping limit to maxPageLimit.
func pageParams(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return offset, limit
}

// parseUintParam reads a gin path parameter as a uint, used by every
// handler addressing a row by its numeric primary key.
func parseUintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// kindStatus maps an apierr.Kind to its HTTP status.
var kindStatus = map[apierr.Kind]int{
	apierr.KindClient:            http.StatusBadRequest,
	apierr.KindCapacity:          http.StatusRequestEntityTooLarge,
	apierr.KindNotFound:          http.StatusNotFound,
	apierr.KindValidation:        http.StatusUnprocessableEntity,
	apierr.KindTransientExternal: http.StatusBadGateway,
	apierr.KindFatalExternal:     http.StatusBadGateway,
	apierr.KindState:             http.StatusConflict,
	apierr.KindStorage:           http.StatusInternalServerError,
	apierr.KindInternal:          http.StatusInternalServerError,
}

// respondError writes the typed error envelope for err, defaulting to a
// bare 500 for anything that isn't an *apierr.Error (a component leaked a
// raw error, which is itself a bug worth surfacing as internal).
func respondError(c *gin.Context, err error) {
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{
			"kind":    apierr.KindInternal,
			"message": err.Error(),
		}})
		return
	}

	status, ok := kindStatus[ae.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := gin.H{"kind": ae.Kind, "message": ae.Message}
	if len(ae.Details) > 0 {
		body["details"] = ae.Details
	}
	c.JSON(status, gin.H{"error": body})
}
