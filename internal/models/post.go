package models

import "github.com/google/uuid"

type Post struct {
	BaseModel
	AuthorID  uuid.UUID `json:"authorID" gorm:"type:uuid;not null;index"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	ImagePath *string   `json:"imagePath,omitempty" gorm:"type:text"`

	Author   User       `json:"author,omitempty" gorm:"foreignKey:AuthorID;references:ID"`
	Comments []Comment  `json:"comments,omitempty" gorm:"foreignKey:PostID"`
	Likes    []PostLike `json:"-" gorm:"foreignKey:PostID"`

	LikeCount     int64 `json:"likeCount" gorm:"-"`
	CommentCount  int64 `json:"commentCount" gorm:"-"`
	LikedByViewer bool  `json:"likedByViewer" gorm:"-"`
}

func (Post) TableName() string {
	return "posts"
}

type Comment struct {
	BaseModel
	PostID   uuid.UUID `json:"postID" gorm:"type:uuid;not null;index"`
	AuthorID uuid.UUID `json:"authorID" gorm:"type:uuid;not null;index"`
	Body     string    `json:"body" gorm:"type:text;not null"`

	Author User `json:"author,omitempty" gorm:"foreignKey:AuthorID;references:ID"`
}

func (Comment) TableName() string {
	return "comments"
}

// PostLike is a boolean-as-row: the existence of a (post, user) pair means
// the user likes the post. The pair key is unique so a double like cannot
// create a second row.
type PostLike struct {
	BaseModel
	PostID uuid.UUID `json:"postID" gorm:"type:uuid;not null;index;uniqueIndex:idx_post_user_like"`
	UserID uuid.UUID `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_post_user_like"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

func (PostLike) TableName() string {
	return "post_likes"
}
