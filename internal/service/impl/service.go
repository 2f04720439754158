// Package impl is implementation of service interface.
package impl

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pixfeed/pixfeed/internal/entities"
	"github.com/pixfeed/pixfeed/internal/service"
	"github.com/pixfeed/pixfeed/internal/storage"
)

// decoyHash is verified against when the login email is unknown, so both
// failure paths cost one KDF run.
var decoyHash string

// nolint:gochecknoinits
func init() {
	var err error
	if decoyHash, err = hashPassword("decoy"); err != nil {
		logrus.WithError(err).Fatal("failed to create decoy hash")
	}
}

type srv struct {
	s storage.Storage
}

// New creates new instance of service.
func New(s storage.Storage) service.Service {
	return srv{
		s: s,
	}
}

func (s srv) RegisterUser(ctx context.Context, p *service.RegisterUserParams) (*entities.User, error) {
	var out *entities.User

	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		existing, err := tx.GetUserByUsernameOrEmail(ctx, p.Username, p.Email)
		switch {
		case err == nil:
			if existing.Username == p.Username {
				return fmt.Errorf("%w: username already exists", service.ErrDuplicateIdentity)
			}
			return fmt.Errorf("%w: email already exists", service.ErrDuplicateIdentity)
		case !errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("failed to check identity: %w", err)
		}

		hash, err := hashPassword(p.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		u, err := tx.CreateUser(ctx, &storage.CreateUserParams{
			Username:     p.Username,
			Email:        p.Email,
			PasswordHash: hash,
		})
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return fmt.Errorf("%w: username or email already exists", service.ErrDuplicateIdentity)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		out = u
		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s srv) LoginUser(ctx context.Context, email, password string) (*entities.User, error) {
	u, err := s.s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			verifyPassword(password, decoyHash)
			return nil, service.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !verifyPassword(password, u.PasswordHash) {
		return nil, service.ErrInvalidCredentials
	}

	return u, nil
}

func (s srv) GetUserByID(ctx context.Context, id int64) (*entities.User, error) {
	u, err := s.s.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (s srv) UpdateUserProfile(ctx context.Context, id int64, p *service.UpdateUserProfileParams) (*entities.User, error) {
	var out *entities.User

	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		if _, err := tx.GetUser(ctx, id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: user not found", service.ErrNotFound)
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		// Reassigning own username or email is legal, only a different holder collides.
		if p.Username != nil {
			if err := checkIdentityFree(ctx, tx.GetUserByUsername, *p.Username, id, "username"); err != nil {
				return err
			}
		}
		if p.Email != nil {
			if err := checkIdentityFree(ctx, tx.GetUserByEmail, *p.Email, id, "email"); err != nil {
				return err
			}
		}

		u, err := tx.UpdateUser(ctx, id, &storage.UpdateUserParams{
			Username:          p.Username,
			Email:             p.Email,
			ProfilePictureURL: p.ProfilePictureURL,
			Bio:               p.Bio,
		})
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return fmt.Errorf("%w: username or email already exists", service.ErrDuplicateIdentity)
			}
			return fmt.Errorf("failed to update user: %w", err)
		}

		out = u
		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func checkIdentityFree(
	ctx context.Context,
	get func(ctx context.Context, v string) (*entities.User, error),
	value string, selfID int64, field string,
) error {
	holder, err := get(ctx, value)
	switch {
	case err == nil:
		if holder.ID != selfID {
			return fmt.Errorf("%w: %s already exists", service.ErrDuplicateIdentity, field)
		}
	case !errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("failed to check %s: %w", field, err)
	}

	return nil
}

func (s srv) SearchUsers(ctx context.Context, query string, limit *uint16) ([]*entities.User, error) {
	uu, err := s.s.SearchUsers(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return uu, nil
}

func (s srv) CreatePost(ctx context.Context, p *service.CreatePostParams) (*entities.Post, error) {
	var out *entities.Post

	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		if _, err := tx.GetUser(ctx, p.UserID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: user not found", service.ErrNotFound)
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		post, err := tx.CreatePost(ctx, &storage.CreatePostParams{
			UserID:   p.UserID,
			ImageURL: p.ImageURL,
			Caption:  p.Caption,
		})
		if err != nil {
			return fmt.Errorf("failed to create post: %w", err)
		}

		if err := tx.AddPostsCount(ctx, p.UserID, 1); err != nil {
			return fmt.Errorf("failed to increment posts count: %w", err)
		}

		out = post
		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s srv) UpdatePost(ctx context.Context, id int64, caption storage.NullableString) (*entities.Post, error) {
	p, err := s.s.UpdatePost(ctx, id, caption)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: post not found", service.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	return p, nil
}

func (s srv) GetPostsByUserID(ctx context.Context, userID int64, limit, offset uint32) ([]*entities.Post, error) {
	// An absent user yields an empty page, not an error.
	pp, err := s.s.ListPosts(ctx, &storage.ListPostsParams{
		Owner:  &userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return pp, nil
}

func (s srv) GetFeed(ctx context.Context, userID int64, limit, offset uint32) ([]*entities.Post, error) {
	pp, err := s.s.ListPosts(ctx, &storage.ListPostsParams{
		FeedOwner: &userID,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}

	return pp, nil
}

func (s srv) LikePost(ctx context.Context, userID, postID int64) (*entities.Like, error) {
	var out *entities.Like

	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		if _, err := tx.GetLike(ctx, userID, postID); err == nil {
			return service.ErrAlreadyLiked
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to get like: %w", err)
		}

		if _, err := tx.GetPost(ctx, postID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: post not found", service.ErrNotFound)
			}
			return fmt.Errorf("failed to get post: %w", err)
		}

		like, err := tx.CreateLike(ctx, userID, postID)
		if err != nil {
			// The unique constraint backstops a concurrent identical request.
			if errors.Is(err, storage.ErrAlreadyExists) {
				return service.ErrAlreadyLiked
			}
			return fmt.Errorf("failed to create like: %w", err)
		}

		if err := tx.AddLikesCount(ctx, postID, 1); err != nil {
			return fmt.Errorf("failed to increment likes count: %w", err)
		}

		out = like
		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

// UnlikePost ensures the pair is unliked. A missing like is a success, not an
// error.
func (s srv) UnlikePost(ctx context.Context, userID, postID int64) (bool, error) {
	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		if _, err := tx.GetLike(ctx, userID, postID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("failed to get like: %w", err)
		}

		if _, err := tx.GetPost(ctx, postID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("failed to get post: %w", err)
		}

		if err := tx.DeleteLike(ctx, userID, postID); err != nil {
			return fmt.Errorf("failed to delete like: %w", err)
		}

		if err := tx.AddLikesCount(ctx, postID, -1); err != nil {
			return fmt.Errorf("failed to decrement likes count: %w", err)
		}

		return nil
	}); err != nil {
		return false, err
	}

	return true, nil
}

func (s srv) CreateComment(ctx context.Context, p *service.CreateCommentParams) (*entities.Comment, error) {
	var out *entities.Comment

	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		if _, err := tx.GetUser(ctx, p.UserID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: user not found", service.ErrNotFound)
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		if _, err := tx.GetPost(ctx, p.PostID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: post not found", service.ErrNotFound)
			}
			return fmt.Errorf("failed to get post: %w", err)
		}

		c, err := tx.CreateComment(ctx, &storage.CreateCommentParams{
			UserID:  p.UserID,
			PostID:  p.PostID,
			Content: p.Content,
		})
		if err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}

		if err := tx.AddCommentsCount(ctx, p.PostID, 1); err != nil {
			return fmt.Errorf("failed to increment comments count: %w", err)
		}

		out = c
		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

func (s srv) GetComments(ctx context.Context, postID int64, limit, offset uint32) ([]*entities.Comment, error) {
	cc, err := s.s.ListComments(ctx, postID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return cc, nil
}

func (s srv) FollowUser(ctx context.Context, followerID, followingID int64) (*entities.Follow, error) {
	// Checked before any store access.
	if followerID == followingID {
		return nil, service.ErrSelfFollow
	}

	var out *entities.Follow

	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		if _, err := tx.GetUser(ctx, followerID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: follower user does not exist", service.ErrNotFound)
			}
			return fmt.Errorf("failed to get follower: %w", err)
		}

		if _, err := tx.GetUser(ctx, followingID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: user to follow does not exist", service.ErrNotFound)
			}
			return fmt.Errorf("failed to get followed user: %w", err)
		}

		if _, err := tx.GetFollow(ctx, followerID, followingID); err == nil {
			return service.ErrAlreadyFollowing
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to get follow: %w", err)
		}

		f, err := tx.CreateFollow(ctx, followerID, followingID)
		if err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				return service.ErrAlreadyFollowing
			}
			return fmt.Errorf("failed to create follow: %w", err)
		}

		if err := tx.AddFollowingCount(ctx, followerID, 1); err != nil {
			return fmt.Errorf("failed to increment following count: %w", err)
		}
		if err := tx.AddFollowersCount(ctx, followingID, 1); err != nil {
			return fmt.Errorf("failed to increment followers count: %w", err)
		}

		out = f
		return nil
	}); err != nil {
		return nil, err
	}

	return out, nil
}

// UnfollowUser reports success=false when there was nothing to remove. This
// asymmetry with UnlikePost is a contract.
func (s srv) UnfollowUser(ctx context.Context, followerID, followingID int64) (bool, error) {
	removed := false

	if err := s.s.InTx(ctx, func(tx storage.Storage) error {
		if _, err := tx.GetFollow(ctx, followerID, followingID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("failed to get follow: %w", err)
		}

		if err := tx.DeleteFollow(ctx, followerID, followingID); err != nil {
			return fmt.Errorf("failed to delete follow: %w", err)
		}

		if err := tx.AddFollowingCount(ctx, followerID, -1); err != nil {
			return fmt.Errorf("failed to decrement following count: %w", err)
		}
		if err := tx.AddFollowersCount(ctx, followingID, -1); err != nil {
			return fmt.Errorf("failed to decrement followers count: %w", err)
		}

		removed = true
		return nil
	}); err != nil {
		return false, err
	}

	return removed, nil
}

func (s srv) GetFollowers(ctx context.Context, userID int64) ([]*entities.User, error) {
	uu, err := s.s.ListFollowers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}

	return uu, nil
}

func (s srv) GetFollowing(ctx context.Context, userID int64) ([]*entities.User, error) {
	uu, err := s.s.ListFollowing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}

	return uu, nil
}
