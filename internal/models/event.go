package models

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	BaseModel
	OrganizerID     uuid.UUID `json:"organizerID" gorm:"type:uuid;not null;index"`
	Title           string    `json:"title" gorm:"type:varchar(255);not null"`
	Description     string    `json:"description" gorm:"type:text"`
	Location        string    `json:"location" gorm:"type:varchar(255);not null"`
	Date            time.Time `json:"date" gorm:"not null;index"`
	MaxParticipants *int      `json:"maxParticipants,omitempty"`

	Organizer User              `json:"organizer,omitempty" gorm:"foreignKey:OrganizerID;references:ID"`
	Members   []EventMembership `json:"members,omitempty" gorm:"foreignKey:EventID"`

	MemberCount    int64 `json:"memberCount" gorm:"-"`
	JoinedByViewer bool  `json:"joinedByViewer" gorm:"-"`
}

func (Event) TableName() string {
	return "events"
}

// EventMembership has no state field: the existence of the (event, user)
// row is the membership, unlike ChatMembership which carries a pending
// phase.
type EventMembership struct {
	BaseModel
	EventID uuid.UUID `json:"eventID" gorm:"type:uuid;not null;index;uniqueIndex:idx_event_user"`
	UserID  uuid.UUID `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_event_user"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

func (EventMembership) TableName() string {
	return "event_members"
}
