package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	mm "github.com/pixfeed/pixfeed/internal/middleware"
	"github.com/pixfeed/pixfeed/internal/service"
)

var errInvalidRequest = errors.New("invalid request")

func (s server) registerUser(w http.ResponseWriter, r *http.Request) {
	var req RegisterUserRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.s.RegisterUser(r.Context(), &service.RegisterUserParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIUser(u))
}

func (s server) loginUser(w http.ResponseWriter, r *http.Request) {
	var req LoginUserRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.s.LoginUser(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIUser(u))
}

func (s server) getUserByID(w http.ResponseWriter, r *http.Request) {
	var req GetUserByIDRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.s.GetUserByID(r.Context(), req.ID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIUser(u))
}

func (s server) updateUserProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserProfileRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.s.UpdateUserProfile(r.Context(), req.ID, &service.UpdateUserProfileParams{
		Username:          req.Username,
		Email:             req.Email,
		ProfilePictureURL: req.ProfilePictureURL,
		Bio:               req.Bio,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIUser(u))
}

func (s server) searchUsers(w http.ResponseWriter, r *http.Request) {
	var req SearchUsersRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	uu, err := s.s.SearchUsers(r.Context(), req.Query, req.Limit)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIUsers(uu))
}

func (s server) createPost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.s.CreatePost(r.Context(), &service.CreatePostParams{
		UserID:   req.UserID,
		ImageURL: req.ImageURL,
		Caption:  req.Caption,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIPost(p))
}

func (s server) updatePost(w http.ResponseWriter, r *http.Request) {
	var req UpdatePostRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.s.UpdatePost(r.Context(), req.ID, req.Caption)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIPost(p))
}

func (s server) getPostsByUserID(w http.ResponseWriter, r *http.Request) {
	var req ListPostsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pp, err := s.s.GetPostsByUserID(r.Context(), req.UserID, pageOrDefault(req.Limit, defaultPostsLimit), offsetOrZero(req.Offset))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIPosts(pp))
}

func (s server) getFeed(w http.ResponseWriter, r *http.Request) {
	var req ListPostsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pp, err := s.s.GetFeed(r.Context(), req.UserID, pageOrDefault(req.Limit, defaultFeedLimit), offsetOrZero(req.Offset))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIPosts(pp))
}

func (s server) likePost(w http.ResponseWriter, r *http.Request) {
	var req LikePostRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	l, err := s.s.LikePost(r.Context(), req.UserID, req.PostID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPILike(l))
}

func (s server) unlikePost(w http.ResponseWriter, r *http.Request) {
	var req LikePostRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.s.UnlikePost(r.Context(), req.UserID, req.PostID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, SuccessResponse{Success: ok})
}

func (s server) createComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.s.CreateComment(r.Context(), &service.CreateCommentParams{
		UserID:  req.UserID,
		PostID:  req.PostID,
		Content: req.Content,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIComment(c))
}

func (s server) getComments(w http.ResponseWriter, r *http.Request) {
	var req GetCommentsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cc, err := s.s.GetComments(r.Context(), req.PostID, pageOrDefault(req.Limit, defaultCommentsLimit), offsetOrZero(req.Offset))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIComments(cc))
}

func (s server) followUser(w http.ResponseWriter, r *http.Request) {
	var req FollowUserRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f, err := s.s.FollowUser(r.Context(), req.FollowerID, req.FollowingID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIFollow(f))
}

func (s server) unfollowUser(w http.ResponseWriter, r *http.Request) {
	var req FollowUserRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.s.UnfollowUser(r.Context(), req.FollowerID, req.FollowingID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, SuccessResponse{Success: ok})
}

func (s server) getFollowers(w http.ResponseWriter, r *http.Request) {
	var req GetUserByIDRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	uu, err := s.s.GetFollowers(r.Context(), req.ID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIUsers(uu))
}

func (s server) getFollowing(w http.ResponseWriter, r *http.Request) {
	var req GetUserByIDRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	uu, err := s.s.GetFollowing(r.Context(), req.ID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeOK(w, http.StatusOK, toAPIUsers(uu))
}

type validator interface {
	validate() error
}

func decode(w http.ResponseWriter, r *http.Request, v validator) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errInvalidRequest
	}

	return v.validate()
}

func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicateIdentity),
		errors.Is(err, service.ErrAlreadyLiked),
		errors.Is(err, service.ErrAlreadyFollowing):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSelfFollow):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		// Internal detail stays in the logs.
		mm.Log(ctx).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeOK(w, status, Error{Error: message})
}

func writeOK(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func pageOrDefault(limit *uint32, def uint32) uint32 {
	if limit != nil {
		return *limit
	}

	return def
}

func offsetOrZero(offset *uint32) uint32 {
	if offset != nil {
		return *offset
	}

	return 0
}
