package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"me_result_portal/backend/internal/shared"
)

// Service implements authentication backed by the users and sessions
// collections. Tokens are signed JWTs; the sessions collection allows
// server-side revocation.
type Service struct {
	config      *shared.PortalConfig
	usersCol    *mongo.Collection
	sessionsCol *mongo.Collection
}

// CustomClaims for JWT
type CustomClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// NewService creates a new auth Service instance
func NewService(db *mongo.Database, config *shared.PortalConfig) *Service {
	return &Service{
		config:      config,
		usersCol:    db.Collection(shared.CollectionUsers),
		sessionsCol: db.Collection(shared.CollectionSessions),
	}
}

// Login authenticates a user by email or student id and returns a JWT plus
// the user record
func (s *Service) Login(ctx context.Context, identifier, password string) (string, *shared.User, error) {
	if identifier == "" || password == "" {
		return "", nil, shared.NewValidationError("identifier", "password")
	}

	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// 1. Find User (by Email OR Student ID; student ids are stored upper-case)
	var user shared.User
	filter := bson.M{
		"$or": []bson.M{
			{"email": identifier},
			{"student_id": identifier},
			{"student_id": strings.ToUpper(strings.TrimSpace(identifier))},
		},
	}

	err := s.usersCol.FindOne(queryCtx, filter).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", nil, fmt.Errorf("%w: invalid credentials", shared.ErrUnauthorized)
		}
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}

	// 2. Check Password (BCrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, fmt.Errorf("%w: invalid credentials", shared.ErrUnauthorized)
	}

	if !user.IsActive {
		return "", nil, fmt.Errorf("%w: account is inactive", shared.ErrForbidden)
	}

	// 3. Generate JWT
	tokenString, expiresAt, err := s.generateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// 4. Create Session in DB (allows for server-side logout/revocation)
	session := shared.Session{
		ID:        shared.GenerateID("sess"),
		UserID:    user.ID,
		Token:     tokenString,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	if _, err := s.sessionsCol.InsertOne(queryCtx, session); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	return tokenString, &user, nil
}

// Logout removes the token's sessions. Removing an unknown token still
// succeeds (idempotent operation).
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// DeleteMany covers duplicate tokens from rapid logins
	if _, err := s.sessionsCol.DeleteMany(queryCtx, bson.M{"token": token}); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// Validate checks token signature, session revocation, and account status,
// and returns the authenticated user
func (s *Service) Validate(ctx context.Context, token string) (*shared.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: token missing", shared.ErrUnauthorized)
	}

	// 1. Parse and Verify Signature locally
	parsed, claims, err := s.parseToken(token)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token signature", shared.ErrUnauthorized)
	}

	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// 2. Check Database for Active Session (Revocation Check)
	var session shared.Session
	if err := shared.FindOneWithTimeout(ctx, s.sessionsCol, bson.M{"token": token}, &session, 5*time.Second); err != nil {
		return nil, fmt.Errorf("%w: session expired or revoked", shared.ErrUnauthorized)
	}
	if session.IsExpired() {
		s.sessionsCol.DeleteMany(queryCtx, bson.M{"token": token})
		return nil, fmt.Errorf("%w: session expired or revoked", shared.ErrUnauthorized)
	}

	// 3. Fetch User Details
	var user shared.User
	err = s.usersCol.FindOne(queryCtx, bson.M{"_id": claims.UserID}).Decode(&user)
	if err != nil {
		return nil, fmt.Errorf("%w: user not found", shared.ErrUnauthorized)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%w: account inactive", shared.ErrForbidden)
	}

	return &user, nil
}

// ============================================================================
// Internal Helpers
// ============================================================================

// generateToken creates a signed JWT using the portal config
func (s *Service) generateToken(userID, role string) (string, time.Time, error) {
	expirationTime := time.Now().Add(time.Duration(s.config.Security.JWTExpirationHours) * time.Hour)

	claims := CustomClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique ID (jti) keeps tokens distinct even when issued at the
			// exact same timestamp
			ID:        shared.GenerateID("jti"),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "me-result-portal",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))

	return tokenString, expirationTime, err
}

// parseToken validates the JWT signature and extracts claims
func (s *Service) parseToken(tokenString string) (*jwt.Token, *CustomClaims, error) {
	claims := &CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Security.JWTSecret), nil
	})

	return token, claims, err
}
