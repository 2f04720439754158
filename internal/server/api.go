package server

import (
	"fmt"
	"net/mail"
	"unicode/utf8"

	"github.com/pixfeed/pixfeed/internal/entities"
	"github.com/pixfeed/pixfeed/internal/storage"
)

const maxLimit = 100

const (
	defaultPostsLimit    = 20
	defaultFeedLimit     = 10
	defaultCommentsLimit = 20
)

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	minPasswordLen = 6
	maxCommentLen  = 500
)

// Error ...
type Error struct {
	Error string `json:"error"`
}

// User is the public projection. It never carries the credential hash.
type User struct {
	ID                int64   `json:"id"`
	Username          string  `json:"username"`
	Email             string  `json:"email"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	Bio               *string `json:"bio"`
	FollowersCount    int32   `json:"followers_count"`
	FollowingCount    int32   `json:"following_count"`
	PostsCount        int32   `json:"posts_count"`
	CreatedAt         int64   `json:"created_at"`
	UpdatedAt         int64   `json:"updated_at"`
}

// Post ...
type Post struct {
	ID            int64   `json:"id"`
	UserID        int64   `json:"user_id"`
	ImageURL      string  `json:"image_url"`
	Caption       *string `json:"caption"`
	LikesCount    int32   `json:"likes_count"`
	CommentsCount int32   `json:"comments_count"`
	CreatedAt     int64   `json:"created_at"`
	UpdatedAt     int64   `json:"updated_at"`
}

// Like ...
type Like struct {
	ID        int64 `json:"id"`
	UserID    int64 `json:"user_id"`
	PostID    int64 `json:"post_id"`
	CreatedAt int64 `json:"created_at"`
}

// Comment ...
type Comment struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	PostID    int64  `json:"post_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Follow ...
type Follow struct {
	ID          int64 `json:"id"`
	FollowerID  int64 `json:"follower_id"`
	FollowingID int64 `json:"following_id"`
	CreatedAt   int64 `json:"created_at"`
}

// SuccessResponse ...
type SuccessResponse struct {
	Success bool `json:"success"`
}

// RegisterUserRequest ...
type RegisterUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r RegisterUserRequest) validate() error {
	if err := validateUsername(r.Username); err != nil {
		return err
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if utf8.RuneCountInString(r.Password) < minPasswordLen {
		return fmt.Errorf("%w: password is too short", errInvalidRequest)
	}

	return nil
}

// LoginUserRequest ...
type LoginUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginUserRequest) validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return fmt.Errorf("%w: password is required", errInvalidRequest)
	}

	return nil
}

// GetUserByIDRequest is shared by getUserById, getFollowers and getFollowing.
type GetUserByIDRequest struct {
	ID int64 `json:"id"`
}

func (r GetUserByIDRequest) validate() error {
	return validateID(r.ID, "id")
}

// UpdateUserProfileRequest ...
type UpdateUserProfileRequest struct {
	ID                int64                  `json:"id"`
	Username          *string                `json:"username"`
	Email             *string                `json:"email"`
	ProfilePictureURL storage.NullableString `json:"profile_picture_url"`
	Bio               storage.NullableString `json:"bio"`
}

func (r UpdateUserProfileRequest) validate() error {
	if err := validateID(r.ID, "id"); err != nil {
		return err
	}
	if r.Username != nil {
		if err := validateUsername(*r.Username); err != nil {
			return err
		}
	}
	if r.Email != nil {
		if err := validateEmail(*r.Email); err != nil {
			return err
		}
	}

	return nil
}

// SearchUsersRequest ...
type SearchUsersRequest struct {
	Query string  `json:"query"`
	Limit *uint16 `json:"limit"`
}

func (r SearchUsersRequest) validate() error {
	if r.Query == "" {
		return fmt.Errorf("%w: query is required", errInvalidRequest)
	}
	if r.Limit != nil && (*r.Limit == 0 || *r.Limit > maxLimit) {
		return fmt.Errorf("%w: invalid limit", errInvalidRequest)
	}

	return nil
}

// CreatePostRequest ...
type CreatePostRequest struct {
	UserID   int64   `json:"user_id"`
	ImageURL string  `json:"image_url"`
	Caption  *string `json:"caption"`
}

func (r CreatePostRequest) validate() error {
	if err := validateID(r.UserID, "user_id"); err != nil {
		return err
	}
	if r.ImageURL == "" {
		return fmt.Errorf("%w: image_url is required", errInvalidRequest)
	}

	return nil
}

// UpdatePostRequest ...
type UpdatePostRequest struct {
	ID      int64                  `json:"id"`
	Caption storage.NullableString `json:"caption"`
}

func (r UpdatePostRequest) validate() error {
	return validateID(r.ID, "id")
}

// ListPostsRequest is shared by getPostsByUserId and getFeed.
type ListPostsRequest struct {
	UserID int64   `json:"user_id"`
	Limit  *uint32 `json:"limit"`
	Offset *uint32 `json:"offset"`
}

func (r ListPostsRequest) validate() error {
	if err := validateID(r.UserID, "user_id"); err != nil {
		return err
	}

	return validatePage(r.Limit)
}

// LikePostRequest is shared by likePost and unlikePost.
type LikePostRequest struct {
	UserID int64 `json:"user_id"`
	PostID int64 `json:"post_id"`
}

func (r LikePostRequest) validate() error {
	if err := validateID(r.UserID, "user_id"); err != nil {
		return err
	}

	return validateID(r.PostID, "post_id")
}

// CreateCommentRequest ...
type CreateCommentRequest struct {
	UserID  int64  `json:"user_id"`
	PostID  int64  `json:"post_id"`
	Content string `json:"content"`
}

func (r CreateCommentRequest) validate() error {
	if err := validateID(r.UserID, "user_id"); err != nil {
		return err
	}
	if err := validateID(r.PostID, "post_id"); err != nil {
		return err
	}

	if l := utf8.RuneCountInString(r.Content); l == 0 || l > maxCommentLen {
		return fmt.Errorf("%w: content must be 1-%d characters", errInvalidRequest, maxCommentLen)
	}

	return nil
}

// GetCommentsRequest ...
type GetCommentsRequest struct {
	PostID int64   `json:"post_id"`
	Limit  *uint32 `json:"limit"`
	Offset *uint32 `json:"offset"`
}

func (r GetCommentsRequest) validate() error {
	if err := validateID(r.PostID, "post_id"); err != nil {
		return err
	}

	return validatePage(r.Limit)
}

// FollowUserRequest is shared by followUser and unfollowUser.
type FollowUserRequest struct {
	FollowerID  int64 `json:"follower_id"`
	FollowingID int64 `json:"following_id"`
}

func (r FollowUserRequest) validate() error {
	if err := validateID(r.FollowerID, "follower_id"); err != nil {
		return err
	}

	return validateID(r.FollowingID, "following_id")
}

func validateID(id int64, field string) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid %s", errInvalidRequest, field)
	}

	return nil
}

func validateUsername(username string) error {
	if l := utf8.RuneCountInString(username); l < minUsernameLen || l > maxUsernameLen {
		return fmt.Errorf("%w: username must be %d-%d characters", errInvalidRequest, minUsernameLen, maxUsernameLen)
	}

	return nil
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", errInvalidRequest)
	}

	return nil
}

func validatePage(limit *uint32) error {
	if limit != nil && (*limit == 0 || *limit > maxLimit) {
		return fmt.Errorf("%w: invalid limit", errInvalidRequest)
	}

	return nil
}

func toAPIUser(u *entities.User) *User {
	if u == nil {
		return nil
	}

	return &User{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		ProfilePictureURL: u.ProfilePictureURL,
		Bio:               u.Bio,
		FollowersCount:    u.FollowersCount,
		FollowingCount:    u.FollowingCount,
		PostsCount:        u.PostsCount,
		CreatedAt:         u.CreatedAt.Unix(),
		UpdatedAt:         u.UpdatedAt.Unix(),
	}
}

func toAPIUsers(uu []*entities.User) []*User {
	out := make([]*User, len(uu))
	for i, v := range uu {
		out[i] = toAPIUser(v)
	}

	return out
}

func toAPIPost(p *entities.Post) *Post {
	if p == nil {
		return nil
	}

	return &Post{
		ID:            p.ID,
		UserID:        p.UserID,
		ImageURL:      p.ImageURL,
		Caption:       p.Caption,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		CreatedAt:     p.CreatedAt.Unix(),
		UpdatedAt:     p.UpdatedAt.Unix(),
	}
}

func toAPIPosts(pp []*entities.Post) []*Post {
	out := make([]*Post, len(pp))
	for i, v := range pp {
		out[i] = toAPIPost(v)
	}

	return out
}

func toAPILike(l *entities.Like) *Like {
	return &Like{
		ID:        l.ID,
		UserID:    l.UserID,
		PostID:    l.PostID,
		CreatedAt: l.CreatedAt.Unix(),
	}
}

func toAPIComment(c *entities.Comment) *Comment {
	return &Comment{
		ID:        c.ID,
		UserID:    c.UserID,
		PostID:    c.PostID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt.Unix(),
		UpdatedAt: c.UpdatedAt.Unix(),
	}
}

func toAPIComments(cc []*entities.Comment) []*Comment {
	out := make([]*Comment, len(cc))
	for i, v := range cc {
		out[i] = toAPIComment(v)
	}

	return out
}

func toAPIFollow(f *entities.Follow) *Follow {
	return &Follow{
		ID:          f.ID,
		FollowerID:  f.FollowerID,
		FollowingID: f.FollowingID,
		CreatedAt:   f.CreatedAt.Unix(),
	}
}
