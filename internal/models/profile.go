package models

import "time"

type Role string

const (
	RoleWorker   Role = "worker"
	RoleEmployer Role = "employer"
)

type ProfileTier string

const (
	TierFree ProfileTier = "free"
	TierPro  ProfileTier = "pro"
)

// Profile holds the subset of profile columns touched by billing.
type Profile struct {
	ID                 string      `db:"id"`
	Role               Role        `db:"role"`
	SubscriptionStatus ProfileTier `db:"subscription_status"`
	IsLifetimePro      bool        `db:"is_lifetime_pro"`
	IsProfileBoosted   bool        `db:"is_profile_boosted"`
	BoostExpiresAt     *time.Time  `db:"boost_expires_at"`
	TelegramChatID     *int64      `db:"telegram_chat_id"`
}

func (p *Profile) IsWorker() bool {
	return p.Role == RoleWorker
}

// TierFor is the profile tier a subscription in the given status implies.
func TierFor(status SubscriptionStatus) ProfileTier {
	if status == SubscriptionCanceled {
		return TierFree
	}
	return TierPro
}
