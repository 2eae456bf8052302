package model

import "time"

type Tier string

const (
	TierNone Tier = "none"
	TierGold Tier = "gold"
)

// DeriveTier goldRequirement 為 0 代表主辦方不參加忠誠計畫
func DeriveTier(attendedCount, goldRequirement int) Tier {
	if goldRequirement > 0 && attendedCount >= goldRequirement {
		return TierGold
	}
	return TierNone
}

// LoyaltyProfile 以 (fan, organizer) 為鍵
type LoyaltyProfile struct {
	Fan           Identity  `json:"fan" db:"fan"`
	Organizer     Identity  `json:"organizer" db:"organizer"`
	AttendedCount int       `json:"attended_count" db:"attended_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// LoyaltyStatus 查詢結果：出席次數、門檻與推導出的等級
type LoyaltyStatus struct {
	Fan             Identity `json:"fan"`
	Organizer       Identity `json:"organizer"`
	AttendedCount   int      `json:"attended_count"`
	GoldRequirement int      `json:"gold_requirement"`
	Tier            Tier     `json:"tier"`
}
