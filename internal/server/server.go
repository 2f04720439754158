// Package server pixfeed
//
// The pixfeed service exposes the social backend (users, posts, likes,
// comments, follows, feed) as named remote procedures over JSON.
package server

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"

	mm "github.com/pixfeed/pixfeed/internal/middleware"
	"github.com/pixfeed/pixfeed/internal/service"
)

const maxBodySize = 4096

type server struct {
	s service.Service
}

// SetupRouter setups handlers to chi router.
// Every operation is a POST with a json input record, the operation name is
// the route.
func SetupRouter(s service.Service, r chi.Router, timeout time.Duration) {
	r.Use(
		mm.RequestID,
		mm.Logger,
		middleware.StripSlashes,
		cors.AllowAll().Handler,
		mm.Recoverer,
		middleware.Timeout(timeout),
	)

	srv := server{
		s: s,
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/registerUser", srv.registerUser)
		r.Post("/loginUser", srv.loginUser)
		r.Post("/getUserById", srv.getUserByID)
		r.Post("/updateUserProfile", srv.updateUserProfile)
		r.Post("/searchUsers", srv.searchUsers)

		r.Post("/createPost", srv.createPost)
		r.Post("/updatePost", srv.updatePost)
		r.Post("/getPostsByUserId", srv.getPostsByUserID)
		r.Post("/getFeed", srv.getFeed)

		r.Post("/likePost", srv.likePost)
		r.Post("/unlikePost", srv.unlikePost)

		r.Post("/createComment", srv.createComment)
		r.Post("/getComments", srv.getComments)

		r.Post("/followUser", srv.followUser)
		r.Post("/unfollowUser", srv.unfollowUser)
		r.Post("/getFollowers", srv.getFollowers)
		r.Post("/getFollowing", srv.getFollowing)
	})
}
