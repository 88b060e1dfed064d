package model

import "time"

// Tier is one of the three fixed notification lead times. Each tier has its
// own sent flag on the appointment row; tiers never suppress each other, so an
// appointment may receive all three messages over its lifetime.
type Tier string

const (
	TierConfirmation  Tier = "confirmation"
	TierOneHour       Tier = "one_hour"
	TierThirtyMinutes Tier = "thirty_minutes"
)

// Tiers returns all tiers in dispatch order. The order is part of the cycle
// contract: confirmations go out before time-window reminders.
func Tiers() []Tier {
	return []Tier{TierConfirmation, TierOneHour, TierThirtyMinutes}
}

// FlagColumn returns the appointments column holding the tier's sent flag.
func (t Tier) FlagColumn() string {
	switch t {
	case TierConfirmation:
		return "confirmation_sent"
	case TierOneHour:
		return "reminder_1h_sent"
	case TierThirtyMinutes:
		return "reminder_30m_sent"
	}
	return ""
}

// Window returns how far ahead of the appointment start the tier fires.
// Zero means no upper bound (the tier fires as soon as the appointment
// exists unnotified).
func (t Tier) Window() time.Duration {
	switch t {
	case TierOneHour:
		return 60 * time.Minute
	case TierThirtyMinutes:
		return 30 * time.Minute
	}
	return 0
}

func (t Tier) String() string {
	return string(t)
}
