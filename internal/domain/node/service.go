package node

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

// secretLen - длина секретной части ключа в байтах. bcrypt принимает не больше 72 байт.
const secretLen = 16

type Servicer interface {
	Register(ctx context.Context, id string) (string, error)
	Authenticate(ctx context.Context, apiKey string) (Node, error)
}

// Service выдает и проверяет ключи узлов. Ключ имеет вид <nodeID>.<secret>,
// в хранилище лежит только bcrypt-хэш секретной части. Если задан общий хэш, любой ключ,
// совпавший с ним, принимается как узел SharedNodeID.
type Service struct {
	repo       Repository
	sharedHash []byte
	log        *slog.Logger
}

func NewService(repo Repository, sharedHash string, log *slog.Logger) *Service {
	s := &Service{
		repo: repo,
		log:  log,
	}
	if sharedHash != "" {
		s.sharedHash = []byte(sharedHash)
	}
	return s
}

// Register создает узел и возвращает его ключ. Ключ больше нигде не хранится.
func (s *Service) Register(ctx context.Context, id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	buf := make([]byte, secretLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	secret := hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash key: %w", err)
	}

	if err := s.repo.Create(ctx, id, string(hash)); err != nil {
		return "", err
	}
	s.log.Info("node registered", "node_id", id)
	return id + "." + secret, nil
}

func (s *Service) Authenticate(ctx context.Context, apiKey string) (Node, error) {
	if apiKey == "" {
		return Node{}, ErrInvalidAuth
	}

	if s.sharedHash != nil && bcrypt.CompareHashAndPassword(s.sharedHash, []byte(apiKey)) == nil {
		return Node{ID: SharedNodeID}, nil
	}

	id, secret, ok := strings.Cut(apiKey, ".")
	if !ok || secret == "" || ValidateID(id) != nil {
		return Node{}, ErrInvalidAuth
	}

	n, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Node{}, ErrInvalidAuth
	}
	if err != nil {
		return Node{}, fmt.Errorf("find node: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(n.KeyHash), []byte(secret)); err != nil {
		return Node{}, ErrInvalidAuth
	}
	return n, nil
}
