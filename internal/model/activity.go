package model

// ActivityLogEntry is an append-only record of something a user did.
type ActivityLogEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"index;size:255" json:"email"`
	Action       string    `json:"action"`
	PointsEarned int       `json:"points_earned"`
	Timestamp    NaiveTime `json:"timestamp"`
}

func (ActivityLogEntry) TableName() string {
	return "activity_log"
}
