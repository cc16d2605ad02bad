package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/pairline/match-server-go/internal/errors"
	"github.com/pairline/match-server-go/internal/model"
	"github.com/pairline/match-server-go/internal/repository"
)

const (
	maxDisplayNameLength = 64
	maxBioLength         = 500
	minBirthYearAge      = 18
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// UpdateProfile upserts the caller's directory profile. Only the
// supplied fields change.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, params model.UpdateProfileParams) (*model.UserRecord, error) {
	if params.DisplayName != nil {
		name := strings.TrimSpace(*params.DisplayName)
		if name == "" {
			return nil, apperrors.MissingRequired("displayName")
		}
		if len(name) > maxDisplayNameLength {
			return nil, apperrors.InvalidInput("displayName", "too long")
		}
		params.DisplayName = &name
	}
	if params.Gender != nil && !params.Gender.Valid() {
		return nil, apperrors.InvalidInput("gender", "must be male or female")
	}
	if params.Bio != nil && len(*params.Bio) > maxBioLength {
		return nil, apperrors.InvalidInput("bio", "too long")
	}
	if params.BirthYear != nil {
		year := *params.BirthYear
		maxYear := time.Now().Year() - minBirthYearAge
		if year < 1900 || year > maxYear {
			return nil, apperrors.InvalidInput("birthYear", "out of range")
		}
	}

	user, err := s.userRepo.UpdateProfile(ctx, userID, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("userId", userID).Msg("profile updated")
	return user, nil
}

func (s *UserService) Get(ctx context.Context, userID string) (*model.UserRecord, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}
	return user, nil
}
