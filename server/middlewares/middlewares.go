package middlewares

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hoshi-social/feedstream/model"
)

const callerContextKey = "feedstream/caller"

// Identify resolves the caller's user record from the "sub" header set by
// the authenticating proxy in front of this service. Authentication itself
// happens upstream; an absent or unknown sub simply yields an anonymous
// caller, the visibility rules take it from there.
func Identify(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub := c.GetHeader("sub")
		if sub != "" {
			var user model.User
			if err := db.Where("id = ?", sub).First(&user).Error; err == nil {
				c.Set(callerContextKey, &user)
			}
		}
		c.Next()
	}
}

// CallerFromContext returns the identified caller, or nil for anonymous
// requests.
func CallerFromContext(c *gin.Context) *model.User {
	value, ok := c.Get(callerContextKey)
	if !ok {
		return nil
	}
	user, ok := value.(*model.User)
	if !ok {
		return nil
	}
	return user
}
