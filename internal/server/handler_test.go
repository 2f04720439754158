package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixfeed/pixfeed/internal/entities"
	"github.com/pixfeed/pixfeed/internal/service"
	servicemock "github.com/pixfeed/pixfeed/internal/service/mock"
	"github.com/pixfeed/pixfeed/internal/storage"
)

var errTest = errors.New("test")

var testTime = time.Date(2021, time.January, 1, 12, 0, 0, 0, time.UTC)

func newRouter(t *testing.T) (chi.Router, *servicemock.MockService) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	srv := servicemock.NewMockService(ctrl)

	r := chi.NewRouter()
	SetupRouter(srv, r, time.Minute)

	return r, srv
}

func doRequest(t *testing.T, r chi.Router, path, body string) *httptest.ResponseRecorder {
	req, err := http.NewRequestWithContext(context.Background(),
		http.MethodPost, fmt.Sprintf("/v1/%s", path), strings.NewReader(body))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func Test_registerUser(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().RegisterUser(gomock.Any(), &service.RegisterUserParams{
		Username: "alice",
		Email:    "alice@mail.com",
		Password: "password",
	}).Return(&entities.User{
		ID:           1,
		Username:     "alice",
		Email:        "alice@mail.com",
		PasswordHash: "secret-hash",
		CreatedAt:    testTime,
		UpdatedAt:    testTime,
	}, nil)

	w := doRequest(t, r, "registerUser",
		`{"username":"alice","email":"alice@mail.com","password":"password"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"id": 1,
		"username": "alice",
		"email": "alice@mail.com",
		"profile_picture_url": null,
		"bio": null,
		"followers_count": 0,
		"following_count": 0,
		"posts_count": 0,
		"created_at": 1609502400,
		"updated_at": 1609502400
	}`, w.Body.String())
	// The credential hash never leaves the service.
	assert.NotContains(t, w.Body.String(), "secret-hash")
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func Test_registerUser_validation(t *testing.T) {
	tt := []struct {
		name string
		body string
	}{
		{"malformed json", `{"username":`},
		{"short username", `{"username":"al","email":"a@mail.com","password":"password"}`},
		{"long username", fmt.Sprintf(`{"username":"%s","email":"a@mail.com","password":"password"}`, strings.Repeat("a", 31))},
		{"bad email", `{"username":"alice","email":"not-an-email","password":"password"}`},
		{"short password", `{"username":"alice","email":"a@mail.com","password":"12345"}`},
	}

	for _, tc := range tt {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newRouter(t)

			w := doRequest(t, r, "registerUser", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func Test_registerUser_duplicate(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().RegisterUser(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: username already exists", service.ErrDuplicateIdentity))

	w := doRequest(t, r, "registerUser",
		`{"username":"alice","email":"alice@mail.com","password":"password"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "username already exists")
}

func Test_loginUser(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().LoginUser(gomock.Any(), "alice@mail.com", "password").
		Return(&entities.User{ID: 1, Username: "alice", Email: "alice@mail.com", CreatedAt: testTime, UpdatedAt: testTime}, nil)

	w := doRequest(t, r, "loginUser", `{"email":"alice@mail.com","password":"password"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":1`)
}

func Test_loginUser_invalidCredentials(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().LoginUser(gomock.Any(), "alice@mail.com", "wrong").
		Return(nil, service.ErrInvalidCredentials)

	w := doRequest(t, r, "loginUser", `{"email":"alice@mail.com","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func Test_getUserById(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().GetUserByID(gomock.Any(), int64(1)).
		Return(&entities.User{ID: 1, Username: "alice", CreatedAt: testTime, UpdatedAt: testTime}, nil)

	w := doRequest(t, r, "getUserById", `{"id":1}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func Test_getUserById_notFound(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().GetUserByID(gomock.Any(), int64(1)).
		Return(nil, fmt.Errorf("%w: user not found", service.ErrNotFound))

	w := doRequest(t, r, "getUserById", `{"id":1}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_getUserById_invalidID(t *testing.T) {
	r, _ := newRouter(t)

	w := doRequest(t, r, "getUserById", `{"id":0}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_updateUserProfile_nullClearsBio(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().UpdateUserProfile(gomock.Any(), int64(1), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ int64, p *service.UpdateUserProfileParams) (*entities.User, error) {
			assert.Nil(t, p.Username)
			assert.True(t, p.Bio.Present)
			assert.Nil(t, p.Bio.Value)
			assert.False(t, p.ProfilePictureURL.Present)

			return &entities.User{ID: 1, CreatedAt: testTime, UpdatedAt: testTime}, nil
		})

	w := doRequest(t, r, "updateUserProfile", `{"id":1,"bio":null}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_updateUserProfile_absentKeysUntouched(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().UpdateUserProfile(gomock.Any(), int64(1), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ int64, p *service.UpdateUserProfileParams) (*entities.User, error) {
			require.NotNil(t, p.Username)
			assert.Equal(t, "newname", *p.Username)
			assert.False(t, p.Bio.Present)
			assert.False(t, p.ProfilePictureURL.Present)

			return &entities.User{ID: 1, Username: "newname", CreatedAt: testTime, UpdatedAt: testTime}, nil
		})

	w := doRequest(t, r, "updateUserProfile", `{"id":1,"username":"newname"}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_searchUsers(t *testing.T) {
	r, srv := newRouter(t)

	limit := uint16(5)
	srv.EXPECT().SearchUsers(gomock.Any(), "ali", &limit).
		Return([]*entities.User{{ID: 1, Username: "alice", CreatedAt: testTime, UpdatedAt: testTime}}, nil)

	w := doRequest(t, r, "searchUsers", `{"query":"ali","limit":5}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func Test_searchUsers_emptyQuery(t *testing.T) {
	r, _ := newRouter(t)

	w := doRequest(t, r, "searchUsers", `{"query":""}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_createPost(t *testing.T) {
	r, srv := newRouter(t)

	caption := "hello"
	srv.EXPECT().CreatePost(gomock.Any(), &service.CreatePostParams{
		UserID:   1,
		ImageURL: "https://img.example.com/1.jpg",
		Caption:  &caption,
	}).Return(&entities.Post{
		ID:        10,
		UserID:    1,
		ImageURL:  "https://img.example.com/1.jpg",
		Caption:   &caption,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}, nil)

	w := doRequest(t, r, "createPost",
		`{"user_id":1,"image_url":"https://img.example.com/1.jpg","caption":"hello"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"id": 10,
		"user_id": 1,
		"image_url": "https://img.example.com/1.jpg",
		"caption": "hello",
		"likes_count": 0,
		"comments_count": 0,
		"created_at": 1609502400,
		"updated_at": 1609502400
	}`, w.Body.String())
}

func Test_createPost_missingImageURL(t *testing.T) {
	r, _ := newRouter(t)

	w := doRequest(t, r, "createPost", `{"user_id":1}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_updatePost_clearCaption(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().UpdatePost(gomock.Any(), int64(10), storage.Null()).
		Return(&entities.Post{ID: 10, UserID: 1, ImageURL: "url", CreatedAt: testTime, UpdatedAt: testTime}, nil)

	w := doRequest(t, r, "updatePost", `{"id":10,"caption":null}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"caption":null`)
}

func Test_getPostsByUserId_defaultPaging(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().GetPostsByUserID(gomock.Any(), int64(1), uint32(20), uint32(0)).
		Return([]*entities.Post{}, nil)

	w := doRequest(t, r, "getPostsByUserId", `{"user_id":1}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func Test_getFeed_defaultPaging(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().GetFeed(gomock.Any(), int64(1), uint32(10), uint32(0)).
		Return([]*entities.Post{}, nil)

	w := doRequest(t, r, "getFeed", `{"user_id":1}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_getFeed_explicitPaging(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().GetFeed(gomock.Any(), int64(1), uint32(50), uint32(100)).
		Return([]*entities.Post{}, nil)

	w := doRequest(t, r, "getFeed", `{"user_id":1,"limit":50,"offset":100}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func Test_getFeed_limitTooLarge(t *testing.T) {
	r, _ := newRouter(t)

	w := doRequest(t, r, "getFeed", `{"user_id":1,"limit":101}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_likePost(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().LikePost(gomock.Any(), int64(2), int64(10)).
		Return(&entities.Like{ID: 1, UserID: 2, PostID: 10, CreatedAt: testTime}, nil)

	w := doRequest(t, r, "likePost", `{"user_id":2,"post_id":10}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"user_id":2,"post_id":10,"created_at":1609502400}`, w.Body.String())
}

func Test_likePost_alreadyLiked(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().LikePost(gomock.Any(), int64(2), int64(10)).
		Return(nil, service.ErrAlreadyLiked)

	w := doRequest(t, r, "likePost", `{"user_id":2,"post_id":10}`)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func Test_unlikePost(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().UnlikePost(gomock.Any(), int64(2), int64(10)).Return(true, nil)

	w := doRequest(t, r, "unlikePost", `{"user_id":2,"post_id":10}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func Test_createComment(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().CreateComment(gomock.Any(), &service.CreateCommentParams{
		UserID:  2,
		PostID:  10,
		Content: "nice",
	}).Return(&entities.Comment{ID: 1, UserID: 2, PostID: 10, Content: "nice", CreatedAt: testTime, UpdatedAt: testTime}, nil)

	w := doRequest(t, r, "createComment", `{"user_id":2,"post_id":10,"content":"nice"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"content":"nice"`)
}

func Test_createComment_tooLong(t *testing.T) {
	r, _ := newRouter(t)

	body := fmt.Sprintf(`{"user_id":2,"post_id":10,"content":"%s"}`, strings.Repeat("a", 501))
	w := doRequest(t, r, "createComment", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func Test_getComments(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().GetComments(gomock.Any(), int64(10), uint32(20), uint32(0)).
		Return([]*entities.Comment{
			{ID: 1, UserID: 2, PostID: 10, Content: "first", CreatedAt: testTime, UpdatedAt: testTime},
			{ID: 2, UserID: 3, PostID: 10, Content: "second", CreatedAt: testTime, UpdatedAt: testTime},
		}, nil)

	w := doRequest(t, r, "getComments", `{"post_id":10}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"first"`)
	assert.Contains(t, w.Body.String(), `"second"`)
}

func Test_followUser(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().FollowUser(gomock.Any(), int64(2), int64(1)).
		Return(&entities.Follow{ID: 1, FollowerID: 2, FollowingID: 1, CreatedAt: testTime}, nil)

	w := doRequest(t, r, "followUser", `{"follower_id":2,"following_id":1}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"follower_id":2,"following_id":1,"created_at":1609502400}`, w.Body.String())
}

func Test_followUser_self(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().FollowUser(gomock.Any(), int64(1), int64(1)).
		Return(nil, service.ErrSelfFollow)

	w := doRequest(t, r, "followUser", `{"follower_id":1,"following_id":1}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func Test_unfollowUser_missingRelationship(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().UnfollowUser(gomock.Any(), int64(2), int64(1)).Return(false, nil)

	w := doRequest(t, r, "unfollowUser", `{"follower_id":2,"following_id":1}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false}`, w.Body.String())
}

func Test_getFollowers(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().GetFollowers(gomock.Any(), int64(1)).
		Return([]*entities.User{{ID: 2, Username: "bob", CreatedAt: testTime, UpdatedAt: testTime}}, nil)

	w := doRequest(t, r, "getFollowers", `{"id":1}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bob"`)
}

func Test_getFollowing(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().GetFollowing(gomock.Any(), int64(2)).Return([]*entities.User{}, nil)

	w := doRequest(t, r, "getFollowing", `{"id":2}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func Test_internalError(t *testing.T) {
	r, srv := newRouter(t)

	srv.EXPECT().GetUserByID(gomock.Any(), int64(1)).Return(nil, errTest)

	w := doRequest(t, r, "getUserById", `{"id":1}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	// Storage details never reach the client.
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}
