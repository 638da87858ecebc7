package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"tagframe/geometry"
	"tagframe/store"
	"tagframe/utils"
)

var (
	errNotMember = errors.New("you are not a member of this project")
	errReadOnly  = errors.New("your role in this project is read-only")
	errOwnerOnly = errors.New("only the project owner can do this")
)

// statusFor maps an error onto the HTTP status it should produce.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrForbidden),
		errors.Is(err, errNotMember),
		errors.Is(err, errReadOnly),
		errors.Is(err, errOwnerOnly):
		return http.StatusForbidden
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, utils.ErrWeakPassword),
		errors.Is(err, geometry.ErrMalformedCoordinates),
		errors.Is(err, geometry.ErrTooFewPoints),
		errors.Is(err, geometry.ErrMissingField),
		errors.Is(err, geometry.ErrUnknownShape):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrInvalidToken):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// abortWithError Write the error envelope with the matching status. Server
// errors are logged and hidden from the caller.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.WithField("path", c.Request.URL.Path).Error(err)
		message = "internal server error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// parseID Parse a numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, fmt.Errorf("invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return uint(id), true
}

// pageOptions Parse the optional limit and offset query parameters
func pageOptions(c *gin.Context) ([]store.Options, bool) {
	var opts []store.Options
	for _, param := range []string{"limit", "offset"} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, fmt.Errorf("invalid %s %q", param, raw))
			return nil, false
		}
		if param == "limit" {
			opts = append(opts, store.WithLimit(n))
		} else {
			opts = append(opts, store.WithOffset(n))
		}
	}
	return opts, true
}
