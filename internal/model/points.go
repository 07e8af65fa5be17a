package model

import "time"

// DateLayout formats the per-day key of a PointsRecord.
const DateLayout = "2006-01-02"

// PointsRecord holds one user's earnings for one calendar day.
type PointsRecord struct {
	RecordID         uint   `gorm:"column:record_id;primaryKey" json:"record_id"`
	Email            string `gorm:"uniqueIndex:idx_user_points_email_date;size:255" json:"email"`
	Date             string `gorm:"uniqueIndex:idx_user_points_email_date;size:10" json:"date"`
	DailyPoints      int    `json:"daily_points"`
	CumulativePoints int    `json:"cumulative_points"`
}

func (PointsRecord) TableName() string {
	return "user_points"
}

// DayPoints is one entry of a reconstructed points history.
type DayPoints struct {
	Date             string `json:"date"`
	DailyPoints      int    `json:"daily_points"`
	CumulativePoints int    `json:"cumulative_points"`
}

// DayKey formats t as a PointsRecord date.
func DayKey(t time.Time) string {
	return t.Format(DateLayout)
}
