package models

import (
	"time"

	"github.com/google/uuid"
)

type Workout struct {
	BaseModel
	UserID      uuid.UUID `json:"userID" gorm:"type:uuid;not null;index"`
	Activity    string    `json:"activity" gorm:"type:varchar(100);not null"`
	DurationMin int       `json:"durationMin" gorm:"not null"`
	DistanceKm  *float64  `json:"distanceKm,omitempty"`
	Calories    *int      `json:"calories,omitempty"`
	Notes       string    `json:"notes" gorm:"type:text"`
	PerformedAt time.Time `json:"performedAt" gorm:"not null;index"`
}

func (Workout) TableName() string {
	return "workouts"
}
