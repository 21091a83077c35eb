package config

import (
	"net/http"
	"os"
	"strings"
	"time"

	"shopsphere/middleware"
	"shopsphere/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func InitMiddleware(app *gin.Engine) {
	// CORS: the storefront frontend sends credentialed requests
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(os.Getenv("ALLOW_ORIGINS"), ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	app.Use(gin.Logger())
	app.Use(gin.Recovery())

	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.Timeout(10 * time.Second))
	app.Use(middleware.ErrorResponder())
}

// AuthMiddleware accepts the access token either as a Bearer header or as
// the accessToken cookie set at login.
func AuthMiddleware(jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := ""
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
		} else if cookie, err := c.Cookie("accessToken"); err == nil {
			tokenStr = cookie
		}
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "missing access token"})
			c.Abort()
			return
		}

		userID, role, err := jwtManager.VerifyToken(tokenStr)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid or expired access token"})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Set("role", role)
		c.Next()
	}
}
