package models

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	BaseModel
	IsGroup bool   `json:"isGroup" gorm:"not null;default:false;index"`
	Name    string `json:"name" gorm:"type:varchar(255);not null;default:''"`

	Members  []ChatMembership `json:"members,omitempty" gorm:"foreignKey:ChatID"`
	Messages []Message        `json:"-" gorm:"foreignKey:ChatID"`

	// DisplayName is resolved per viewer at read time. For a private chat it
	// is the other participant's username, never a stored value.
	DisplayName string `json:"displayName" gorm:"-"`
}

func (Chat) TableName() string {
	return "chats"
}

type ChatMembershipState string

const (
	ChatMemberPending ChatMembershipState = "pending"
	ChatMemberActive  ChatMembershipState = "active"
)

// ChatMembership carries an explicit state rather than overloading the
// JoinedAt timestamp: State drives the invitation machine, JoinedAt only
// records when the member became active.
type ChatMembership struct {
	BaseModel
	ChatID   uuid.UUID           `json:"chatID" gorm:"type:uuid;not null;index;uniqueIndex:idx_chat_user"`
	UserID   uuid.UUID           `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_chat_user"`
	State    ChatMembershipState `json:"state" gorm:"type:varchar(20);not null;default:'active'"`
	JoinedAt *time.Time          `json:"joinedAt,omitempty"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

func (ChatMembership) TableName() string {
	return "chat_members"
}

func (m *ChatMembership) IsActive() bool {
	return m.State == ChatMemberActive
}

type Message struct {
	BaseModel
	ChatID   uuid.UUID `json:"chatID" gorm:"type:uuid;not null;index"`
	SenderID uuid.UUID `json:"senderID" gorm:"type:uuid;not null;index"`
	Body     string    `json:"body" gorm:"type:text;not null"`

	Sender User `json:"sender,omitempty" gorm:"foreignKey:SenderID;references:ID"`
}

func (Message) TableName() string {
	return "messages"
}
