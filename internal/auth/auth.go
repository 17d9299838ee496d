package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	apperrors "paperflow_go_backend/internal/errors"
	"paperflow_go_backend/internal/models"
	"paperflow_go_backend/internal/services"
	"paperflow_go_backend/internal/workflow"
)

const (
	userKey  = "user"
	actorKey = "actor"
)

func SetupRoutes(r *gin.Engine, userService services.UserService, secret []byte) {
	auth := r.Group("/auth")
	{
		auth.GET("/user", AuthMiddleware(userService, secret), RequireActive(), getUser)
	}
}

// AuthMiddleware resolves the bearer token to a stored user and puts the
// user and its Actor on the gin context. Deactivated users still pass so
// the workflow gates can refuse them with a proper Forbidden error.
func AuthMiddleware(userService services.UserService, secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := zerolog.Ctx(c.Request.Context())

		var token string
		if websocket.IsWebSocketUpgrade(c.Request) {
			// Browsers cannot set headers on websocket upgrades.
			token = c.Query("token")
		} else {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				abortUnauthorized(c, "Authorization header is required")
				return
			}
			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 || !strings.EqualFold(bearerToken[0], "Bearer") {
				abortUnauthorized(c, "Invalid authorization header")
				return
			}
			token = bearerToken[1]
		}

		userID, err := verifyToken(token, secret)
		if err != nil {
			log.Debug().Err(err).Msg("Rejected bearer token")
			abortUnauthorized(c, "Invalid token")
			return
		}

		user, err := userService.GetUser(c.Request.Context(), userID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
				abortUnauthorized(c, "Unknown user")
				return
			}
			apperrors.HandleError(c, err)
			return
		}

		c.Set(userKey, user)
		c.Set(actorKey, workflow.ActorFromUser(user))
		c.Next()
	}
}

// RequireRole short-circuits requests whose actor lacks every listed role.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		if !ok {
			abortUnauthorized(c, "User not found in context")
			return
		}
		if err := workflow.Authorize(actor, roles...); err != nil {
			apperrors.HandleError(c, err)
			return
		}
		c.Next()
	}
}

// RequireActive admits any role but refuses deactivated accounts.
func RequireActive() gin.HandlerFunc {
	return RequireRole(models.RoleAuthor, models.RoleReviewer, models.RoleAdmin)
}

func CurrentActor(c *gin.Context) (workflow.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return workflow.Actor{}, false
	}
	actor, ok := v.(workflow.Actor)
	return actor, ok
}

func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// IssueToken signs an HS256 token whose subject is the user id.
func IssueToken(secret []byte, userID uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.StandardClaims{
		Subject:   userID.String(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func getUser(c *gin.Context) {
	user, exists := CurrentUser(c)
	if !exists {
		abortUnauthorized(c, "User not found in context")
		return
	}
	c.JSON(http.StatusOK, user)
}

func abortUnauthorized(c *gin.Context, message string) {
	err := apperrors.New401Error()
	err.Message = message
	apperrors.HandleError(c, err)
}

func verifyToken(tokenString string, secret []byte) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, errors.New("empty token")
	}
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	if !token.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject: %w", err)
	}
	return userID, nil
}
