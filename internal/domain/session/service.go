package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("token secret is empty")
)

// Claims - содержимое токена клиента панели мониторинга.
// Пустые Farms и Permissions не ограничивают запрошенные клиентом наборы.
type Claims struct {
	UserID      string
	Farms       []string
	Permissions []string
	ExpiresAt   time.Time
	SessionID   string
}

type tokenClaims struct {
	Farms       []string `json:"farms,omitempty"`
	Permissions []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

type Servicer interface {
	Issue(userID string, farms, permissions []string, ttl time.Duration) (string, error)
	Validate(token string) (*Claims, error)
}

// Service выпускает и проверяет токены HS256
type Service struct {
	secret []byte
	issuer string
	log    *slog.Logger
	now    func() time.Time
}

func NewService(secret, issuer string, log *slog.Logger) (*Service, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Service{
		secret: []byte(secret),
		issuer: issuer,
		log:    log,
		now:    time.Now,
	}, nil
}

// Issue выпускает токен для пользователя
func (s *Service) Issue(userID string, farms, permissions []string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user id is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive")
	}

	now := s.now()
	claims := tokenClaims{
		Farms:       farms,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate проверяет подпись и срок действия токена
func (s *Service) Validate(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		s.log.Debug("token rejected", "error", err)
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	out := &Claims{
		UserID:      claims.Subject,
		Farms:       claims.Farms,
		Permissions: claims.Permissions,
		SessionID:   claims.ID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
