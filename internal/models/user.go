package models

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

type User struct {
	BaseModel
	Username     string   `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	Email        string   `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string   `json:"-" gorm:"type:text;not null"`
	Role         UserRole `json:"role" gorm:"type:varchar(20);not null;default:'user'"`
	Bio          *string  `json:"bio,omitempty" gorm:"type:text"`
	AvatarURL    *string  `json:"avatarURL,omitempty" gorm:"type:text"`

	Posts     []Post       `json:"-" gorm:"foreignKey:AuthorID"`
	Workouts  []Workout    `json:"-" gorm:"foreignKey:UserID"`
	Followers []FollowEdge `json:"-" gorm:"foreignKey:FollowingID"`
	Following []FollowEdge `json:"-" gorm:"foreignKey:UserID"`
}
