package ginmw

import (
	"net/http"

	"github.com/gin-gonic/gin"
	dynaskema "github.com/reoring/dynaskema"
	"github.com/reoring/dynaskema/middleware"
)

// ValidateJSON parses the incoming JSON using schema s with opt (or DefaultParseOpt when zero value),
// stores the Record in the context, and on validation failure returns 400 with Issues payload.
func ValidateJSON(s dynaskema.Schema[*dynaskema.Record], opt dynaskema.ParseOpt) gin.HandlerFunc {
	if middleware.IsZeroOpt(opt) {
		opt = middleware.DefaultParseOpt()
	}
	return func(c *gin.Context) {
		rec, err := dynaskema.ParseJSONReader(c.Request.Context(), s, c.Request.Body, opt)
		if err != nil {
			if iss, ok := dynaskema.AsIssues(err); ok {
				c.AbortWithStatusJSON(http.StatusBadRequest, middleware.ErrorPayload(iss))
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Request = c.Request.WithContext(middleware.ContextWithRecord(c.Request.Context(), rec))
		c.Next()
	}
}

// GetRecord fetches the validated Record from gin.Context.
func GetRecord(c *gin.Context) (*dynaskema.Record, bool) {
	return middleware.RecordFromContext(c.Request.Context())
}
