// Package magiclink issues and verifies the signed single-use tokens that
// let a customer confirm, cancel or reschedule a booking without a session.
package magiclink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"booking-service/internal/storage/kv"
)

type Action string

const (
	ActionConfirm    Action = "confirm"
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
)

var (
	ErrInvalidToken = errors.New("magic link token is invalid or expired")
	ErrTokenUsed    = errors.New("magic link token was already used")
)

type Claims struct {
	BookingID     string `json:"booking_id"`
	CustomerEmail string `json:"customer_email"`
	Action        Action `json:"action"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	used   kv.Store
}

func New(secret string, ttl time.Duration, used kv.Store) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, used: used}
}

func (m *Manager) Issue(bookingID, customerEmail string, action Action) (string, error) {
	const op = "magiclink.Manager.Issue"

	now := time.Now()
	claims := Claims{
		BookingID:     bookingID,
		CustomerEmail: customerEmail,
		Action:        action,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// Verify checks signature and expiry and consumes the token's jti so a link
// works exactly once. Email matching against the live booking happens at the
// caller, which has the booking loaded.
func (m *Manager) Verify(ctx context.Context, token string) (*Claims, error) {
	const op = "magiclink.Manager.Verify"

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if claims.BookingID == "" || claims.CustomerEmail == "" || claims.ID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	switch claims.Action {
	case ActionConfirm, ActionCancel, ActionReschedule:
	default:
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	fresh, err := m.used.SetOnce(ctx, "magiclink:used:"+claims.ID, remaining)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !fresh {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenUsed)
	}

	return &claims, nil
}
