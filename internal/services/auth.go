package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/aradabingo/bingomaster/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBlocked        = errors.New("user blocked")
	ErrSessionNotFound    = errors.New("session not found")
)

type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string) (string, models.Actor, error)
	Validate(ctx context.Context, token string) (models.Actor, error)
	Logout(ctx context.Context, token string) error
}

// AuthService verifies staff credentials against postgres and keeps opaque
// session tokens in redis so they expire without a cleanup job.
type AuthService struct {
	db    DB
	redis RedisClient
	ttl   time.Duration
}

func NewAuthService(db DB, redisClient RedisClient, ttl time.Duration) *AuthService {
	return &AuthService{db: db, redis: redisClient, ttl: ttl}
}

// Login checks the password and mints a session token for the user.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, models.Actor, error) {
	var user models.User
	err := s.db.QueryRow(ctx,
		`SELECT id, username, password_hash, role, name, shop_id, is_blocked
		 FROM users
		 WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Name, &user.ShopID, &user.IsBlocked)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", models.Actor{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", models.Actor{}, fmt.Errorf("load user %q: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", models.Actor{}, ErrInvalidCredentials
	}
	if user.IsBlocked {
		return "", models.Actor{}, ErrUserBlocked
	}

	actor := models.Actor{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}
	if user.ShopID != nil {
		actor.ShopID = *user.ShopID
	}
	payload, err := json.Marshal(actor)
	if err != nil {
		return "", models.Actor{}, fmt.Errorf("encode session: %w", err)
	}

	token := uuid.NewString()
	if err := s.redis.Set(ctx, sessionKey(token), payload, s.ttl); err != nil {
		return "", models.Actor{}, fmt.Errorf("store session: %w", err)
	}
	return token, actor, nil
}

// Validate resolves a session token back to its actor.
func (s *AuthService) Validate(ctx context.Context, token string) (models.Actor, error) {
	raw, err := s.redis.Get(ctx, sessionKey(token))
	if errors.Is(err, redis.Nil) {
		return models.Actor{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Actor{}, fmt.Errorf("load session: %w", err)
	}

	var actor models.Actor
	if err := json.Unmarshal([]byte(raw), &actor); err != nil {
		return models.Actor{}, fmt.Errorf("decode session: %w", err)
	}
	return actor, nil
}

// Logout discards the session token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.redis.Del(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func sessionKey(token string) string {
	return "session:" + token
}
