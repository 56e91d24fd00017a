package service

import (
	"errors"
	"time"

	"reelview/internal/config"
	"reelview/internal/model"
	"reelview/internal/repository"
	"reelview/internal/util"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService interface {
	Register(email, password, fullName string) (*model.User, string, error)
	Login(email, password string) (*model.User, string, error)
	GetProfile(userID string) (*model.User, error)
}

type authService struct {
	userRepo repository.UserRepository
	cfg      *config.Config
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) AuthService {
	return &authService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// Register creates a new user account and returns a signed token
func (s *authService) Register(email, password, fullName string) (*model.User, string, error) {
	// Check if email already taken
	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, "", errors.New("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", errors.New("failed to check email")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", errors.New("failed to hash password")
	}

	user := &model.User{
		Email:    email,
		Password: string(hashed),
		FullName: fullName,
		Role:     model.RoleUser,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, "", errors.New("failed to create user")
	}

	token, err := util.GenerateToken(user.ID, user.Role, s.cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		return nil, "", errors.New("failed to generate token")
	}

	return user, token, nil
}

// Login verifies credentials and returns a signed token
func (s *authService) Login(email, password string) (*model.User, string, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return nil, "", errors.New("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", errors.New("invalid email or password")
	}

	token, err := util.GenerateToken(user.ID, user.Role, s.cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		return nil, "", errors.New("failed to generate token")
	}

	return user, token, nil
}

// GetProfile returns the user for an authenticated request
func (s *authService) GetProfile(userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}
