// Package auth provides password-based account registration and login,
// HS256 bearer token issuing and verification, and the HTTP middleware that
// puts the authenticated user's ID into the request context.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/partyplanner/internal/logger"
	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/user"
)

var (
	// ErrInvalidInput is returned when the username or the password is empty.
	ErrInvalidInput = errors.New("username and password are required")

	// ErrInvalidCredentials is returned for an unknown username and for a wrong
	// password alike, so callers cannot tell which accounts exist.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUnauthenticated is returned for a missing, malformed, expired or forged token.
	ErrUnauthenticated = errors.New("authentication required")
)

type userKeeper interface {
	CreateUser(ctx context.Context, usr *user.User) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
}

// Auth registers and authenticates users and manages their bearer tokens.
type Auth struct {
	// db is the interface to the user data storage.
	db userKeeper

	// signingKey is the key used to sign JWTs.
	signingKey []byte

	// tokenTTL is how long an issued token stays valid.
	tokenTTL time.Duration

	// hashCost is the bcrypt cost for new password hashes.
	hashCost int

	// dummyHash is compared against when the username is unknown, so a
	// failed login costs one bcrypt comparison either way.
	dummyHash []byte

	compareHash func(hash, password []byte) error

	now func() time.Time
}

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds the account identifier.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"userId"`
}

// Session is the outcome of a successful signup or login.
type Session struct {
	User  *user.User
	Token string
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// New creates an Auth backed by the given user storage.
func New(
	db userKeeper,
	signingKey string,
	tokenTTL time.Duration,
	hashCost int,
) *Auth {
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), hashCost)
	if err != nil {
		logger.Log.Warnw("falling back to the default bcrypt cost for the dummy hash", zap.Error(err))
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	}

	return &Auth{
		db:          db,
		signingKey:  []byte(signingKey),
		tokenTTL:    tokenTTL,
		hashCost:    hashCost,
		dummyHash:   dummyHash,
		compareHash: bcrypt.CompareHashAndPassword,
		now:         time.Now,
	}
}

// Register creates an account and issues its first token.
// A taken username yields models.ErrUserAlreadyExists.
func (a *Auth) Register(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.hashCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrInvalidInput
		}
		return nil, fmt.Errorf("in internal/auth/auth.go/Register(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}

	usr, err := a.db.CreateUser(ctx, &user.User{Username: username, PasswordHash: string(hash)})
	if err != nil {
		if errors.Is(err, models.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("in internal/auth/auth.go/Register(): error while `a.db.CreateUser()` calling: %w", err)
	}

	return a.newSession(usr)
}

// Authenticate checks the credentials and issues a fresh token.
func (a *Auth) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	usr, err := a.db.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			_ = a.compareHash(a.dummyHash, []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("in internal/auth/auth.go/Authenticate(): error while `a.db.GetUserByUsername()` calling: %w", err)
	}

	if err := a.compareHash([]byte(usr.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return a.newSession(usr)
}

func (a *Auth) newSession(usr *user.User) (*Session, error) {
	token, err := a.buildJWTString(usr.ID)
	if err != nil {
		return nil, err
	}

	return &Session{User: usr, Token: token}, nil
}

func (a *Auth) buildJWTString(userID int64) (string, error) {
	issuedAt := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(a.tokenTTL)),
		},
		UserID: userID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/buildJWTString(): error while `token.SignedString()` calling: %w", err)
	}

	return tokenString, nil
}

// Verify returns the user ID carried by a valid token.
func (a *Auth) Verify(tokenString string) (int64, error) {
	if tokenString == "" {
		return 0, ErrUnauthenticated
	}

	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingKey, nil
		},
	)
	if err != nil || !token.Valid || claims.UserID == 0 {
		return 0, ErrUnauthenticated
	}

	return claims.UserID, nil
}

func bearerToken(request *http.Request) string {
	header := request.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// RequireBearer is an HTTP middleware that rejects requests without a valid
// "Authorization: Bearer <token>" header with 401 and otherwise stores the
// user ID in the request context under UserIDKey.
func (a *Auth) RequireBearer(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		userID, err := a.Verify(bearerToken(request))
		if err != nil {
			logger.Log.Debugln("Error calling the `a.Verify()`: ", zap.Error(err))
			response.Header().Set("Content-Type", "application/json")
			response.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(response).Encode(models.ErrorResponse{Error: "Authentication required"})
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserIDFromContext returns the ID stored by RequireBearer.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)

	return userID, ok && userID != 0
}
