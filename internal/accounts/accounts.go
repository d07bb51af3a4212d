// Package accounts registers users and signs them in. Registration also
// creates the user's root directory.
package accounts

import (
	"context"
	"errors"
	"filezone/internal/auth"
	"filezone/internal/models"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("email or password not valid")
	ErrMissingFields      = errors.New("email, fullname and password are required")
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail returns nil, nil when no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// TreeCreator is the part of tree.Service that accounts depend on.
type TreeCreator interface {
	CreateRoot(ctx context.Context, ownerID, displayName string) (*models.Node, error)
	Root(ctx context.Context, ownerID string) (*models.Node, error)
	GetSubtree(ctx context.Context, nodeID string) (*models.TreeView, error)
}

type Service struct {
	users     UserRepository
	tree      TreeCreator
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewService(users UserRepository, tree TreeCreator, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		users:     users,
		tree:      tree,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger.With(zap.String("component", "accounts")),
	}
}

type SignUpParams struct {
	Email    string
	Fullname string
	Password string
}

// SignUp stores the user and creates a root directory named after the
// user's full name. If the root cannot be created the user is removed again.
func (s *Service) SignUp(ctx context.Context, arg SignUpParams) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(arg.Email))
	fullname := strings.TrimSpace(arg.Fullname)
	if email == "" || fullname == "" || arg.Password == "" {
		return nil, ErrMissingFields
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(arg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Fullname:     fullname,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	if _, err := s.tree.CreateRoot(ctx, user.ID, fullname); err != nil {
		if delErr := s.users.DeleteUser(context.WithoutCancel(ctx), user.ID); delErr != nil {
			s.logger.Error("Failed to remove user after root creation failed",
				zap.String("user_id", user.ID),
				zap.Error(delErr))
		}
		return nil, err
	}

	s.logger.Info("User signed up", zap.String("user_id", user.ID))
	return user, nil
}

type LoginResult struct {
	User  *models.User     `json:"user"`
	Token string           `json:"token"`
	Root  *models.TreeView `json:"root"`
}

// Login checks the credentials and returns a token together with the
// user's whole tree.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateJWT(user, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	root, err := s.tree.Root(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	view, err := s.tree.GetSubtree(ctx, root.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: user, Token: token, Root: view}, nil
}
