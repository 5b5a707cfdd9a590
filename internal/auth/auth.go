// internal/auth/auth.go
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// Config holds authentication configuration
type Config struct {
	JWTSecret   string
	TokenExpiry time.Duration
	APIKeys     []string
	Users       []User
}

type User struct {
	Username     string
	PasswordHash string
	Role         string
}

// Manager handles authentication and authorization
type Manager struct {
	config Config
}

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.StandardClaims
}

type contextKey string

const (
	usernameKey contextKey = "username"
	roleKey     contextKey = "role"
)

// NewManager creates a new authentication manager
func NewManager(config Config) *Manager {
	if config.TokenExpiry == 0 {
		config.TokenExpiry = 24 * time.Hour
	}
	return &Manager{config: config}
}

// GenerateJWT creates a new JWT token for a user
func (m *Manager) GenerateJWT(username, role string) (string, error) {
	expirationTime := time.Now().Add(m.config.TokenExpiry)

	claims := &Claims{
		Username: username,
		Role:     role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expirationTime.Unix(),
			IssuedAt:  time.Now().Unix(),
			Issuer:    "halo-dashboard",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.JWTSecret))
}

// ValidateJWT validates the JWT token
func (m *Manager) ValidateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.config.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// ValidateAPIKey checks if the provided API key is valid
func (m *Manager) ValidateAPIKey(apiKey string) bool {
	for _, validKey := range m.config.APIKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
			return true
		}
	}
	return false
}

// AuthenticateUser validates username and password
func (m *Manager) AuthenticateUser(username, password string) (bool, string, error) {
	for _, user := range m.config.Users {
		if user.Username == username {
			err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
			if err == nil {
				return true, user.Role, nil
			}
			return false, "", errors.New("invalid password")
		}
	}
	return false, "", errors.New("user not found")
}

// HashPassword creates a bcrypt hash from a password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

// Username returns the authenticated username from a request context.
func Username(ctx context.Context) string {
	s, _ := ctx.Value(usernameKey).(string)
	return s
}

// Role returns the authenticated role from a request context.
func Role(ctx context.Context) string {
	s, _ := ctx.Value(roleKey).(string)
	return s
}

// Middleware authenticates requests by bearer token, API key, or (for
// websocket upgrades, which cannot set headers from the browser) a token
// query parameter.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			if !m.ValidateAPIKey(apiKey) {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		tokenString := ""
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
				http.Error(w, "Invalid authorization format", http.StatusUnauthorized)
				return
			}
			tokenString = bearerToken[1]
		} else if t := r.URL.Query().Get("token"); t != "" {
			tokenString = t
		}

		if tokenString == "" {
			http.Error(w, "Authorization required", http.StatusUnauthorized)
			return
		}

		claims, err := m.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, usernameKey, claims.Username)
		ctx = context.WithValue(ctx, roleKey, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
