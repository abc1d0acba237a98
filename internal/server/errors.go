package server

import (
	"github.com/gin-gonic/gin"
)

// ErrorMessage is the human-readable part of an error response
type ErrorMessage struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// HTTPError is the error document every endpoint answers with
type HTTPError struct {
	Info ErrorMessage `json:"message"`
	Code int          `json:"code"`
}

// respondError writes an HTTPError and aborts the chain
func respondError(c *gin.Context, code int, title, detail string) {
	c.AbortWithStatusJSON(code, HTTPError{
		Info: ErrorMessage{Title: title, Detail: detail},
		Code: code,
	})
}

func respondInternalError(c *gin.Context) {
	respondError(c, 500, "Internal server error", "")
}
