package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"bookchain-backend/internal/domains/user/model"
	"bookchain-backend/internal/domains/user/repository"
	"bookchain-backend/internal/shared"
	"bookchain-backend/pkg/jwt"
	"bookchain-backend/pkg/logger"
)

const bcryptCost = 12

type userService struct {
	userRepo   repository.UserRepoInterface
	jwtManager *jwt.Manager
}

func NewUserService(userRepo repository.UserRepoInterface, jwtManager *jwt.Manager) UserService {
	return &userService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
	}
}

func (s *userService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         shared.Role(req.Role),
		LedgerAddr:   req.LedgerAddr,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, model.NewEmailTakenError(req.Email)
		}
		if errors.Is(err, model.ErrAddressTaken) {
			return nil, model.NewAddressTakenError(req.LedgerAddr)
		}
		return nil, err
	}

	logger.Info("User registered", map[string]interface{}{
		"user_id": user.ID.String(),
		"role":    string(user.Role),
	})

	return user, nil
}

func (s *userService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.NewInvalidCredentialsError()
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, model.ErrAccountDisabled
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID.String(), user.Email, string(user.Role), user.LedgerAddr)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID.String())
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.ToResponse(),
	}, nil
}

func (s *userService) GetProfile(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) ResolveLedgerAddress(ctx context.Context, addr string) (uuid.UUID, error) {
	user, err := s.userRepo.GetByLedgerAddress(ctx, addr)
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}
