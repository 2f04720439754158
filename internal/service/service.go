// Package service contains interface for service business-logic.
package service

import (
	"context"
	"errors"

	"github.com/pixfeed/pixfeed/internal/entities"
	"github.com/pixfeed/pixfeed/internal/storage"
)

//go:generate mockgen -destination=./mock/service.go -package=mock -source=service.go

// ErrNotFound is returned when a referenced user or post is absent.
var ErrNotFound = errors.New("not found")

// ErrDuplicateIdentity is returned on a username or email collision.
var ErrDuplicateIdentity = errors.New("identity already taken")

// ErrInvalidCredentials is returned on any login failure. It deliberately does
// not distinguish an unknown email from a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrAlreadyLiked ...
var ErrAlreadyLiked = errors.New("user has already liked this post")

// ErrAlreadyFollowing ...
var ErrAlreadyFollowing = errors.New("follow relationship already exists")

// ErrSelfFollow ...
var ErrSelfFollow = errors.New("users cannot follow themselves")

// Service ...
type Service interface {
	RegisterUser(ctx context.Context, p *RegisterUserParams) (*entities.User, error)
	LoginUser(ctx context.Context, email, password string) (*entities.User, error)
	GetUserByID(ctx context.Context, id int64) (*entities.User, error)
	UpdateUserProfile(ctx context.Context, id int64, p *UpdateUserProfileParams) (*entities.User, error)
	SearchUsers(ctx context.Context, query string, limit *uint16) ([]*entities.User, error)

	CreatePost(ctx context.Context, p *CreatePostParams) (*entities.Post, error)
	UpdatePost(ctx context.Context, id int64, caption storage.NullableString) (*entities.Post, error)
	GetPostsByUserID(ctx context.Context, userID int64, limit, offset uint32) ([]*entities.Post, error)
	GetFeed(ctx context.Context, userID int64, limit, offset uint32) ([]*entities.Post, error)

	LikePost(ctx context.Context, userID, postID int64) (*entities.Like, error)
	UnlikePost(ctx context.Context, userID, postID int64) (bool, error)

	CreateComment(ctx context.Context, p *CreateCommentParams) (*entities.Comment, error)
	GetComments(ctx context.Context, postID int64, limit, offset uint32) ([]*entities.Comment, error)

	FollowUser(ctx context.Context, followerID, followingID int64) (*entities.Follow, error)
	UnfollowUser(ctx context.Context, followerID, followingID int64) (bool, error)
	GetFollowers(ctx context.Context, userID int64) ([]*entities.User, error)
	GetFollowing(ctx context.Context, userID int64) ([]*entities.User, error)
}

// RegisterUserParams ...
type RegisterUserParams struct {
	Username string
	Email    string
	Password string
}

// UpdateUserProfileParams carries a partial profile update. Nil pointers are
// left unchanged, tri-state fields may be explicitly cleared.
type UpdateUserProfileParams struct {
	Username          *string
	Email             *string
	ProfilePictureURL storage.NullableString
	Bio               storage.NullableString
}

// CreatePostParams ...
type CreatePostParams struct {
	UserID   int64
	ImageURL string
	Caption  *string
}

// CreateCommentParams ...
type CreateCommentParams struct {
	UserID  int64
	PostID  int64
	Content string
}
