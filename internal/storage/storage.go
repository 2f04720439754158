// Package storage contains a storage interface.
package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/pixfeed/pixfeed/internal/entities"
)

//go:generate mockgen -destination=./mock/storage.go -package=mock -source=storage.go

// ErrNotFound ...
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when an insert hits a uniqueness constraint.
var ErrAlreadyExists = errors.New("already exists")

// Storage provides methods for interacting with database.
type Storage interface {
	InTx(ctx context.Context, f func(s Storage) error) error
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, p *CreateUserParams) (*entities.User, error)
	GetUser(ctx context.Context, id int64) (*entities.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entities.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
	GetUserByUsernameOrEmail(ctx context.Context, username, email string) (*entities.User, error)
	UpdateUser(ctx context.Context, id int64, p *UpdateUserParams) (*entities.User, error)
	SearchUsers(ctx context.Context, query string, limit *uint16) ([]*entities.User, error)
	AddPostsCount(ctx context.Context, userID int64, delta int32) error
	AddFollowersCount(ctx context.Context, userID int64, delta int32) error
	AddFollowingCount(ctx context.Context, userID int64, delta int32) error

	CreatePost(ctx context.Context, p *CreatePostParams) (*entities.Post, error)
	GetPost(ctx context.Context, id int64) (*entities.Post, error)
	UpdatePost(ctx context.Context, id int64, caption NullableString) (*entities.Post, error)
	ListPosts(ctx context.Context, p *ListPostsParams) ([]*entities.Post, error)
	AddLikesCount(ctx context.Context, postID int64, delta int32) error
	AddCommentsCount(ctx context.Context, postID int64, delta int32) error

	CreateLike(ctx context.Context, userID, postID int64) (*entities.Like, error)
	GetLike(ctx context.Context, userID, postID int64) (*entities.Like, error)
	DeleteLike(ctx context.Context, userID, postID int64) error

	CreateComment(ctx context.Context, p *CreateCommentParams) (*entities.Comment, error)
	ListComments(ctx context.Context, postID int64, limit, offset uint32) ([]*entities.Comment, error)

	CreateFollow(ctx context.Context, followerID, followingID int64) (*entities.Follow, error)
	GetFollow(ctx context.Context, followerID, followingID int64) (*entities.Follow, error)
	DeleteFollow(ctx context.Context, followerID, followingID int64) error
	ListFollowers(ctx context.Context, userID int64) ([]*entities.User, error)
	ListFollowing(ctx context.Context, userID int64) ([]*entities.User, error)
}

// NullableString is a tri-state patch value: not provided, explicit null or a value.
type NullableString struct {
	Present bool
	Value   *string
}

// String returns a NullableString holding v.
func String(v string) NullableString {
	return NullableString{Present: true, Value: &v}
}

// Null returns a NullableString holding an explicit null.
func Null() NullableString {
	return NullableString{Present: true}
}

// UnmarshalJSON is called by encoding/json only when the key is present,
// which is exactly the absent/null/value distinction we need.
func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Present = true

	if string(b) == "null" {
		n.Value = nil
		return nil
	}

	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v

	return nil
}

// CreateUserParams ...
type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
}

// UpdateUserParams carries a partial user update. Nil pointer fields are left
// unchanged; tri-state fields may be explicitly cleared.
type UpdateUserParams struct {
	Username          *string
	Email             *string
	ProfilePictureURL NullableString
	Bio               NullableString
}

// CreatePostParams ...
type CreatePostParams struct {
	UserID   int64
	ImageURL string
	Caption  *string
}

// ListPostsParams ...
// Owner filters posts by a single owner. FeedOwner selects posts owned by the
// user or by anyone the user follows. The two are mutually exclusive.
type ListPostsParams struct {
	Owner     *int64
	FeedOwner *int64
	Limit     uint32
	Offset    uint32
}

// CreateCommentParams ...
type CreateCommentParams struct {
	UserID  int64
	PostID  int64
	Content string
}
