// Package entities contains main entities of service.
package entities

import (
	"time"
)

// User ...
type User struct {
	ID                int64
	Username          string
	Email             string
	PasswordHash      string
	ProfilePictureURL *string
	Bio               *string
	FollowersCount    int32
	FollowingCount    int32
	PostsCount        int32
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Post ...
type Post struct {
	ID            int64
	UserID        int64
	ImageURL      string
	Caption       *string
	LikesCount    int32
	CommentsCount int32
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Like is a (user, post) relationship, unique per pair.
type Like struct {
	ID        int64
	UserID    int64
	PostID    int64
	CreatedAt time.Time
}

// Comment ...
type Comment struct {
	ID        int64
	UserID    int64
	PostID    int64
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Follow is an ordered (follower, following) relationship, unique per pair.
type Follow struct {
	ID          int64
	FollowerID  int64
	FollowingID int64
	CreatedAt   time.Time
}
