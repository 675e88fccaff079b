package ginmw

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reoring/jsonskema"
	"github.com/reoring/jsonskema/middleware"
)

// ValidateJSON validates the incoming JSON with v (decoding with opt, or
// DefaultDecodeOpt when zero), stores the instance in the context, and on
// failure aborts with 400 and the Issues payload.
func ValidateJSON(v middleware.Evaluator, opt jsonskema.DecodeOpt) gin.HandlerFunc {
	return func(c *gin.Context) {
		inst, err := middleware.Decode(c.Request.Body, v, opt)
		if err != nil {
			if iss, ok := jsonskema.AsIssues(err); ok {
				c.AbortWithStatusJSON(http.StatusBadRequest, middleware.ErrorPayload(iss))
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Request = c.Request.WithContext(middleware.ContextWithInstance(c.Request.Context(), inst))
		c.Next()
	}
}

// GetInstance fetches the validated instance from gin.Context.
func GetInstance(c *gin.Context) (any, bool) {
	return middleware.InstanceFromContext(c.Request.Context())
}
