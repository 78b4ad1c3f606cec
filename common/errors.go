package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies a domain failure so the transport layer can pick a
// status code without the domain code ever touching HTTP.
type Kind int

const (
	KindNotFound Kind = iota
	KindBadRequest
	KindValidation
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func BadRequest(message string) error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}

func IsBadRequest(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindBadRequest
}

// AbortWithError maps a domain error to its HTTP response. Anything that is
// not a typed domain error counts as an internal failure.
func AbortWithError(c *gin.Context, err error) {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindNotFound:
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": e.Message})
		case KindBadRequest:
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": e.Message})
		case KindValidation:
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": e.Message})
		}
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
