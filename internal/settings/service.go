package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Service interface {
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*UserProfile, error)
	UpdateNotifications(ctx context.Context, userID string, channels Channels) (*UserProfile, error)
	// Enabled reports whether userID receives notifications on channel.
	Enabled(ctx context.Context, userID, channel string) bool
}

type settingsService struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &settingsService{repo: repo, logger: logger}
}

func (s *settingsService) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return DefaultProfile(userID), nil
	}
	return profile, nil
}

func (s *settingsService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*UserProfile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Language != nil {
		if !req.Language.Valid() {
			return nil, fmt.Errorf("%w: unsupported language %q", ErrValidation, *req.Language)
		}
		profile.Language = *req.Language
	}
	if req.Timezone != nil {
		tz := strings.TrimSpace(*req.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return nil, fmt.Errorf("%w: unknown timezone %q", ErrValidation, *req.Timezone)
		}
		profile.Timezone = tz
	}
	if req.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Phone != nil {
		profile.Phone = strings.TrimSpace(*req.Phone)
	}

	if err := s.save(ctx, profile); err != nil {
		return nil, err
	}
	s.logger.Info("Profile updated",
		zap.String("user_id", userID),
		zap.String("language", string(profile.Language)))
	return profile, nil
}

func (s *settingsService) UpdateNotifications(ctx context.Context, userID string, channels Channels) (*UserProfile, error) {
	defaults := DefaultChannels()
	for name := range channels {
		if _, ok := defaults[name]; !ok {
			return nil, fmt.Errorf("%w: unknown notification channel %q", ErrValidation, name)
		}
	}

	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	merged := profile.Notifications.Data()
	if merged == nil {
		merged = defaults
	}
	for name, on := range channels {
		merged[name] = on
	}
	profile.Notifications = datatypes.NewJSONType(merged)

	if err := s.save(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *settingsService) Enabled(ctx context.Context, userID, channel string) bool {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("Falling back to default notification settings", zap.String("user_id", userID), zap.Error(err))
		return DefaultChannels()[channel]
	}
	on, ok := profile.Notifications.Data()[channel]
	if !ok {
		return DefaultChannels()[channel]
	}
	return on
}

func (s *settingsService) save(ctx context.Context, profile *UserProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}
