package models

import "github.com/google/uuid"

// FollowEdge is a directed edge in the social graph: UserID follows
// FollowingID. Mutual follows are two independent rows; self edges are
// rejected before insert and by a CHECK constraint.
type FollowEdge struct {
	BaseModel
	UserID      uuid.UUID `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_user_following"`
	FollowingID uuid.UUID `json:"followingID" gorm:"type:uuid;not null;index;uniqueIndex:idx_user_following"`

	User      User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
	Following User `json:"following,omitempty" gorm:"foreignKey:FollowingID;references:ID"`
}

func (FollowEdge) TableName() string {
	return "user_followers"
}
