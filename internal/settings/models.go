package settings

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

type Language string

const (
	LanguageEnglish        Language = "en"
	LanguageSpanish        Language = "es"
	LanguageMexicanSpanish Language = "es-MX"
)

func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageSpanish, LanguageMexicanSpanish:
		return true
	}
	return false
}

// Notification channels a user can opt out of.
const (
	ChannelDefectAlerts = "defect_alerts"
	ChannelWorkOrders   = "work_orders"
	ChannelLowStock     = "low_stock"
	ChannelEmailDigest  = "email_digest"
)

var ErrValidation = errors.New("invalid settings")

// UserProfile holds per-user preferences. Rows are created on first write.
type UserProfile struct {
	UserID        string                       `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	DisplayName   string                       `json:"display_name"`
	Phone         string                       `json:"phone"`
	Language      Language                     `gorm:"type:varchar(8);not null;default:'en'" json:"language"`
	Timezone      string                       `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	Notifications datatypes.JSONType[Channels] `gorm:"type:jsonb" json:"notifications"`
	CreatedAt     time.Time                    `json:"created_at"`
	UpdatedAt     time.Time                    `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// Channels maps a notification channel to whether it is enabled.
type Channels map[string]bool

func DefaultChannels() Channels {
	return Channels{
		ChannelDefectAlerts: true,
		ChannelWorkOrders:   true,
		ChannelLowStock:     true,
		ChannelEmailDigest:  false,
	}
}

// DefaultProfile is returned for users that never saved settings.
func DefaultProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:        userID,
		Language:      LanguageEnglish,
		Timezone:      "UTC",
		Notifications: datatypes.NewJSONType(DefaultChannels()),
	}
}

// UpdateProfileRequest changes only the fields that are set.
type UpdateProfileRequest struct {
	DisplayName *string   `json:"display_name"`
	Phone       *string   `json:"phone"`
	Language    *Language `json:"language"`
	Timezone    *string   `json:"timezone"`
}

type UpdateNotificationsRequest struct {
	Channels Channels `json:"channels" binding:"required"`
}
