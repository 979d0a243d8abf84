package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StateService issues and verifies the OAuth state parameter as a signed,
// short-lived JWT bound to the browser that started the flow. The binding
// id travels in a cookie, so a callback forged from another browser fails
// verification even with a valid signature.
type StateService struct {
	secretKey []byte
	expiry    time.Duration
	logger    *logrus.Logger
}

func NewStateService(secretKey string, logger *logrus.Logger) (*StateService, error) {
	key := []byte(secretKey)
	if len(key) < 32 {
		return nil, fmt.Errorf("secret key must be at least 32 bytes")
	}

	return &StateService{
		secretKey: key,
		expiry:    10 * time.Minute,
		logger:    logger,
	}, nil
}

type StateClaims struct {
	FlowID string `json:"fid"`
	jwt.RegisteredClaims
}

// Issue creates a state token for a flow id.
func (s *StateService) Issue(flowID string) (string, error) {
	now := time.Now()
	claims := &StateClaims{
		FlowID: flowID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign state token")
		return "", fmt.Errorf("failed to sign state token: %w", err)
	}

	return signed, nil
}

// Verify checks signature, expiry and flow binding of a state token.
func (s *StateService) Verify(state, flowID string) error {
	token, err := jwt.ParseWithClaims(state, &StateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return fmt.Errorf("failed to parse state token: %w", err)
	}

	claims, ok := token.Claims.(*StateClaims)
	if !ok || !token.Valid {
		return fmt.Errorf("invalid state token")
	}

	if claims.FlowID != flowID {
		return fmt.Errorf("state token does not match this browser")
	}

	return nil
}
