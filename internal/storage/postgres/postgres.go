// Package postgres is implementation of storage interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/pixfeed/pixfeed/internal/entities"
	"github.com/pixfeed/pixfeed/internal/storage"
)

var log = logrus.WithField("layer", "storage").WithField("package", "postgres")
var errBeginCalledWithinTx = errors.New("can not run InTx in tx")

const uniqueViolation = "23505"

type pg struct {
	ext sqlx.ExtContext
}

type userDTO struct {
	ID                int64     `db:"id"`
	Username          string    `db:"username"`
	Email             string    `db:"email"`
	PasswordHash      string    `db:"password_hash"`
	ProfilePictureURL *string   `db:"profile_picture_url"`
	Bio               *string   `db:"bio"`
	FollowersCount    int32     `db:"followers_count"`
	FollowingCount    int32     `db:"following_count"`
	PostsCount        int32     `db:"posts_count"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

type postDTO struct {
	ID            int64     `db:"id"`
	UserID        int64     `db:"user_id"`
	ImageURL      string    `db:"image_url"`
	Caption       *string   `db:"caption"`
	LikesCount    int32     `db:"likes_count"`
	CommentsCount int32     `db:"comments_count"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type likeDTO struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	PostID    int64     `db:"post_id"`
	CreatedAt time.Time `db:"created_at"`
}

type commentDTO struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	PostID    int64     `db:"post_id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type followDTO struct {
	ID          int64     `db:"id"`
	FollowerID  int64     `db:"follower_id"`
	FollowingID int64     `db:"following_id"`
	CreatedAt   time.Time `db:"created_at"`
}

const userColumns = `id, username, email, password_hash, profile_picture_url, bio,
	followers_count, following_count, posts_count, created_at, updated_at`

const postColumns = `id, user_id, image_url, caption, likes_count, comments_count, created_at, updated_at`

// New creates new instance of pg.
func New(db *sql.DB) storage.Storage {
	return pg{
		ext: sqlx.NewDb(db, "postgres"),
	}
}

func (s pg) InTx(ctx context.Context, f func(s storage.Storage) error) error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return errBeginCalledWithinTx
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to create tx: %w", err)
	}

	if err := f(pg{ext: tx}); err != nil {
		if err := tx.Rollback(); err != nil {
			log.WithError(err).Error("failed to rollback tx")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}

	return nil
}

func (s pg) Ping(ctx context.Context) error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return nil
	}

	return db.PingContext(ctx)
}

func (s pg) CreateUser(ctx context.Context, p *storage.CreateUserParams) (*entities.User, error) {
	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u, `
			INSERT INTO users(username, email, password_hash)
			VALUES($1, $2, $3)
			RETURNING `+userColumns,
		p.Username, p.Email, p.PasswordHash,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrAlreadyExists
		}

		return nil, fmt.Errorf("failed to exec: %w", err)
	}

	return toUser(&u), nil
}

func (s pg) GetUser(ctx context.Context, id int64) (*entities.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s pg) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s pg) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	return s.getUser(ctx, `WHERE username = $1`, username)
}

func (s pg) GetUserByUsernameOrEmail(ctx context.Context, username, email string) (*entities.User, error) {
	// A username collision is preferred when separate rows collide on both fields.
	return s.getUser(ctx,
		`WHERE username = $1 OR email = $2 ORDER BY (username = $1) DESC LIMIT 1`,
		username, email,
	)
}

func (s pg) getUser(ctx context.Context, where string, args ...interface{}) (*entities.User, error) {
	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u,
		`SELECT `+userColumns+` FROM users `+where, args...,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toUser(&u), nil
}

func (s pg) UpdateUser(ctx context.Context, id int64, p *storage.UpdateUserParams) (*entities.User, error) {
	set := []string{"updated_at = now()"}
	args := []interface{}{id}

	appendSet := func(column string, v interface{}) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Username != nil {
		appendSet("username", *p.Username)
	}
	if p.Email != nil {
		appendSet("email", *p.Email)
	}
	if p.ProfilePictureURL.Present {
		appendSet("profile_picture_url", p.ProfilePictureURL.Value)
	}
	if p.Bio.Present {
		appendSet("bio", p.Bio.Value)
	}

	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u,
		`UPDATE users SET `+strings.Join(set, ", ")+` WHERE id = $1 RETURNING `+userColumns,
		args...,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		if isUniqueViolation(err) {
			return nil, storage.ErrAlreadyExists
		}

		return nil, fmt.Errorf("failed to exec: %w", err)
	}

	return toUser(&u), nil
}

func (s pg) SearchUsers(ctx context.Context, query string, limit *uint16) ([]*entities.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username ILIKE '%' || $1 || '%' ESCAPE '\' ORDER BY id`
	args := []interface{}{escapeLike(query)}

	if limit != nil {
		args = append(args, *limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	var uu []*userDTO

	if err := sqlx.SelectContext(ctx, s.ext, &uu, q, args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.User, len(uu))
	for i, v := range uu {
		out[i] = toUser(v)
	}

	return out, nil
}

func (s pg) AddPostsCount(ctx context.Context, userID int64, delta int32) error {
	return s.addCount(ctx, "users", "posts_count", userID, delta)
}

func (s pg) AddFollowersCount(ctx context.Context, userID int64, delta int32) error {
	return s.addCount(ctx, "users", "followers_count", userID, delta)
}

func (s pg) AddFollowingCount(ctx context.Context, userID int64, delta int32) error {
	return s.addCount(ctx, "users", "following_count", userID, delta)
}

func (s pg) AddLikesCount(ctx context.Context, postID int64, delta int32) error {
	return s.addCount(ctx, "posts", "likes_count", postID, delta)
}

func (s pg) AddCommentsCount(ctx context.Context, postID int64, delta int32) error {
	return s.addCount(ctx, "posts", "comments_count", postID, delta)
}

// addCount floors the counter at zero. Decrements deliberately leave
// updated_at alone, increments refresh it.
func (s pg) addCount(ctx context.Context, table, column string, id int64, delta int32) error {
	q := fmt.Sprintf(`
		UPDATE %s SET
			%s = GREATEST(%s + $2, 0),
			updated_at = CASE WHEN $2 > 0 THEN now() ELSE updated_at END
		WHERE id = $1`, table, column, column)

	res, err := s.ext.ExecContext(ctx, q, id, delta)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) CreatePost(ctx context.Context, p *storage.CreatePostParams) (*entities.Post, error) {
	var post postDTO

	if err := sqlx.GetContext(ctx, s.ext, &post, `
			INSERT INTO posts(user_id, image_url, caption)
			VALUES($1, $2, $3)
			RETURNING `+postColumns,
		p.UserID, p.ImageURL, p.Caption,
	); err != nil {
		return nil, fmt.Errorf("failed to exec: %w", err)
	}

	return toPost(&post), nil
}

func (s pg) GetPost(ctx context.Context, id int64) (*entities.Post, error) {
	var p postDTO

	if err := sqlx.GetContext(ctx, s.ext, &p,
		`SELECT `+postColumns+` FROM posts WHERE id = $1`, id,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return toPost(&p), nil
}

func (s pg) UpdatePost(ctx context.Context, id int64, caption storage.NullableString) (*entities.Post, error) {
	set := "updated_at = now()"
	args := []interface{}{id}

	if caption.Present {
		args = append(args, caption.Value)
		set += ", caption = $2"
	}

	var p postDTO

	if err := sqlx.GetContext(ctx, s.ext, &p,
		`UPDATE posts SET `+set+` WHERE id = $1 RETURNING `+postColumns,
		args...,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to exec: %w", err)
	}

	return toPost(&p), nil
}

func (s pg) ListPosts(ctx context.Context, p *storage.ListPostsParams) ([]*entities.Post, error) {
	where := ""
	args := []interface{}{p.Limit, p.Offset}

	switch {
	case p.Owner != nil:
		args = append(args, *p.Owner)
		where = `WHERE user_id = $3`
	case p.FeedOwner != nil:
		// The feed is the user's own posts plus posts of everyone they follow,
		// recomputed on every call.
		args = append(args, *p.FeedOwner)
		where = `WHERE user_id = $3 OR user_id IN (SELECT following_id FROM follows WHERE follower_id = $3)`
	}

	var pp []*postDTO

	if err := sqlx.SelectContext(ctx, s.ext, &pp,
		`SELECT `+postColumns+` FROM posts `+where+` ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		args...,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Post, len(pp))
	for i, v := range pp {
		out[i] = toPost(v)
	}

	return out, nil
}

func (s pg) CreateLike(ctx context.Context, userID, postID int64) (*entities.Like, error) {
	var l likeDTO

	if err := sqlx.GetContext(ctx, s.ext, &l, `
			INSERT INTO likes(user_id, post_id)
			VALUES($1, $2)
			RETURNING id, user_id, post_id, created_at`,
		userID, postID,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrAlreadyExists
		}

		return nil, fmt.Errorf("failed to exec: %w", err)
	}

	return &entities.Like{ID: l.ID, UserID: l.UserID, PostID: l.PostID, CreatedAt: l.CreatedAt}, nil
}

func (s pg) GetLike(ctx context.Context, userID, postID int64) (*entities.Like, error) {
	var l likeDTO

	if err := sqlx.GetContext(ctx, s.ext, &l,
		`SELECT id, user_id, post_id, created_at FROM likes WHERE user_id = $1 AND post_id = $2`,
		userID, postID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return &entities.Like{ID: l.ID, UserID: l.UserID, PostID: l.PostID, CreatedAt: l.CreatedAt}, nil
}

func (s pg) DeleteLike(ctx context.Context, userID, postID int64) error {
	res, err := s.ext.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = $1 AND post_id = $2`,
		userID, postID,
	)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) CreateComment(ctx context.Context, p *storage.CreateCommentParams) (*entities.Comment, error) {
	var c commentDTO

	if err := sqlx.GetContext(ctx, s.ext, &c, `
			INSERT INTO comments(user_id, post_id, content)
			VALUES($1, $2, $3)
			RETURNING id, user_id, post_id, content, created_at, updated_at`,
		p.UserID, p.PostID, p.Content,
	); err != nil {
		return nil, fmt.Errorf("failed to exec: %w", err)
	}

	return toComment(&c), nil
}

func (s pg) ListComments(ctx context.Context, postID int64, limit, offset uint32) ([]*entities.Comment, error) {
	var cc []*commentDTO

	// Oldest first, the opposite of post listings.
	if err := sqlx.SelectContext(ctx, s.ext, &cc, `
			SELECT id, user_id, post_id, content, created_at, updated_at FROM comments
			WHERE post_id = $1
			ORDER BY created_at ASC, id ASC
			LIMIT $2 OFFSET $3`,
		postID, limit, offset,
	); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Comment, len(cc))
	for i, v := range cc {
		out[i] = toComment(v)
	}

	return out, nil
}

func (s pg) CreateFollow(ctx context.Context, followerID, followingID int64) (*entities.Follow, error) {
	var f followDTO

	if err := sqlx.GetContext(ctx, s.ext, &f, `
			INSERT INTO follows(follower_id, following_id)
			VALUES($1, $2)
			RETURNING id, follower_id, following_id, created_at`,
		followerID, followingID,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrAlreadyExists
		}

		return nil, fmt.Errorf("failed to exec: %w", err)
	}

	return &entities.Follow{ID: f.ID, FollowerID: f.FollowerID, FollowingID: f.FollowingID, CreatedAt: f.CreatedAt}, nil
}

func (s pg) GetFollow(ctx context.Context, followerID, followingID int64) (*entities.Follow, error) {
	var f followDTO

	if err := sqlx.GetContext(ctx, s.ext, &f,
		`SELECT id, follower_id, following_id, created_at FROM follows WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to query: %w", err)
	}

	return &entities.Follow{ID: f.ID, FollowerID: f.FollowerID, FollowingID: f.FollowingID, CreatedAt: f.CreatedAt}, nil
}

func (s pg) DeleteFollow(ctx context.Context, followerID, followingID int64) error {
	res, err := s.ext.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID,
	)
	if err != nil {
		return fmt.Errorf("failed to exec: %w", err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) ListFollowers(ctx context.Context, userID int64) ([]*entities.User, error) {
	return s.listRelatedUsers(ctx, `
		SELECT u.id, u.username, u.email, u.password_hash, u.profile_picture_url, u.bio,
			u.followers_count, u.following_count, u.posts_count, u.created_at, u.updated_at
		FROM follows f JOIN users u ON u.id = f.follower_id
		WHERE f.following_id = $1
		ORDER BY f.id`, userID)
}

func (s pg) ListFollowing(ctx context.Context, userID int64) ([]*entities.User, error) {
	return s.listRelatedUsers(ctx, `
		SELECT u.id, u.username, u.email, u.password_hash, u.profile_picture_url, u.bio,
			u.followers_count, u.following_count, u.posts_count, u.created_at, u.updated_at
		FROM follows f JOIN users u ON u.id = f.following_id
		WHERE f.follower_id = $1
		ORDER BY f.id`, userID)
}

func (s pg) listRelatedUsers(ctx context.Context, query string, userID int64) ([]*entities.User, error) {
	var uu []*userDTO

	if err := sqlx.SelectContext(ctx, s.ext, &uu, query, userID); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.User, len(uu))
	for i, v := range uu {
		out[i] = toUser(v)
	}

	return out, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}

	return false
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func toUser(u *userDTO) *entities.User {
	return &entities.User{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		PasswordHash:      u.PasswordHash,
		ProfilePictureURL: u.ProfilePictureURL,
		Bio:               u.Bio,
		FollowersCount:    u.FollowersCount,
		FollowingCount:    u.FollowingCount,
		PostsCount:        u.PostsCount,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func toPost(p *postDTO) *entities.Post {
	return &entities.Post{
		ID:            p.ID,
		UserID:        p.UserID,
		ImageURL:      p.ImageURL,
		Caption:       p.Caption,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toComment(c *commentDTO) *entities.Comment {
	return &entities.Comment{
		ID:        c.ID,
		UserID:    c.UserID,
		PostID:    c.PostID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
