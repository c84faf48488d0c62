package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ai-chatbot-be/internal/dto"
	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/mapper"
	"ai-chatbot-be/internal/pkg/logger"
	"ai-chatbot-be/internal/repository/memory"

	"github.com/google/uuid"
)

const MaxAvatarBytes = 2 * 1024 * 1024

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidAvatar   = errors.New("avatar must be a png, jpeg, gif or webp image")
	ErrAvatarTooLarge  = errors.New("avatar exceeds 2MB")
)

// ProfileStore is the slice of the persistence gateway the profile service needs.
type ProfileStore interface {
	GetProfile(ctx context.Context, ownerId uuid.UUID) (*entity.Profile, error)
	UpsertProfile(ctx context.Context, profile *entity.Profile) error
	UploadAvatarBlob(ctx context.Context, ownerId uuid.UUID, filename string, data []byte) (string, error)
}

type IProfileService interface {
	GetProfile(ctx context.Context, ownerId uuid.UUID) (*dto.ProfileResponse, error)
	SaveProfile(ctx context.Context, ownerId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	UploadAvatar(ctx context.Context, ownerId uuid.UUID, filename string, data []byte) (*dto.AvatarResponse, error)
	// Reload drops the cached copy and reads the profile again.
	Reload(ctx context.Context, ownerId uuid.UUID) error
}

type profileService struct {
	store  ProfileStore
	cache  *memory.ProfileCache
	logger logger.ILogger
}

func NewProfileService(store ProfileStore, cache *memory.ProfileCache, log logger.ILogger) IProfileService {
	return &profileService{
		store:  store,
		cache:  cache,
		logger: log,
	}
}

func (s *profileService) GetProfile(ctx context.Context, ownerId uuid.UUID) (*dto.ProfileResponse, error) {
	profile, err := s.load(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	return mapper.ProfileToResponse(profile), nil
}

func (s *profileService) SaveProfile(ctx context.Context, ownerId uuid.UUID, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	profile, err := s.store.GetProfile(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &entity.Profile{Id: ownerId}
	}

	if req.FirstName != nil {
		profile.FirstName = trimmed(req.FirstName)
	}
	if req.LastName != nil {
		profile.LastName = trimmed(req.LastName)
	}
	if req.PhoneNumber != nil {
		profile.PhoneNumber = trimmed(req.PhoneNumber)
	}
	if req.CountryCode != nil {
		profile.CountryCode = trimmed(req.CountryCode)
	}

	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}
	s.cache.Delete(ownerId)

	return mapper.ProfileToResponse(profile), nil
}

func (s *profileService) UploadAvatar(ctx context.Context, ownerId uuid.UUID, filename string, data []byte) (*dto.AvatarResponse, error) {
	if len(data) > MaxAvatarBytes {
		return nil, ErrAvatarTooLarge
	}
	switch http.DetectContentType(data) {
	case "image/png", "image/jpeg", "image/gif", "image/webp":
	default:
		return nil, ErrInvalidAvatar
	}

	url, err := s.store.UploadAvatarBlob(ctx, ownerId, filename, data)
	if err != nil {
		return nil, err
	}

	profile, err := s.store.GetProfile(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &entity.Profile{Id: ownerId}
	}
	profile.AvatarURL = &url

	if err := s.store.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("save avatar url: %w", err)
	}
	s.cache.Delete(ownerId)

	s.logger.Info("PROFILE", "Avatar updated", map[string]interface{}{"owner_id": ownerId.String()})
	return &dto.AvatarResponse{AvatarURL: url}, nil
}

func (s *profileService) Reload(ctx context.Context, ownerId uuid.UUID) error {
	s.cache.Delete(ownerId)
	_, err := s.load(ctx, ownerId)
	if errors.Is(err, ErrProfileNotFound) {
		return nil
	}
	return err
}

func (s *profileService) load(ctx context.Context, ownerId uuid.UUID) (*entity.Profile, error) {
	if cached, ok := s.cache.Get(ownerId); ok {
		return cached, nil
	}

	profile, err := s.store.GetProfile(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	s.cache.Save(profile)
	return profile, nil
}

func trimmed(s *string) *string {
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
