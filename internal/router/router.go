// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/safepath/safepath-server/internal/config"
	"github.com/safepath/safepath-server/internal/handler"
	"github.com/safepath/safepath-server/internal/middleware"
)

// Handlers collects every handler the router needs.
type Handlers struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Contacts  *handler.ContactHandler
	SOS       *handler.SOSHandler
	Incidents *handler.IncidentHandler
	Community *handler.CommunityHandler
	QnA       *handler.QnAHandler
	Places    *handler.PlaceHandler
	Chat      *handler.ChatHandler
	FAQs      *handler.FAQHandler
}

// Register sets up all routes. Public read endpoints get the Redis response
// cache; everything gets the token-bucket rate limiter. Routes that accept
// anonymous traffic but attribute it when possible use OptionalAuth.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e.GET("/healthz", handler.Health)

	// Session lifecycle, no token needed.
	auth := e.Group("/v1/auth", rl)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", h.Auth.Logout)

	jwt := middleware.JWTAuth(cfg.JWTAccessSecret)
	opt := middleware.OptionalAuth(cfg.JWTAccessSecret)

	// Profile.
	users := e.Group("/v1/users", rl, jwt)
	users.GET("/me", h.Users.Me)
	users.PATCH("/me", h.Users.UpdateProfile)
	users.PUT("/me/location", h.Users.UpdateLocation)
	users.PUT("/me/password", h.Users.ChangePassword)

	// Emergency contacts.
	contacts := e.Group("/v1/contacts", rl, jwt)
	contacts.GET("", h.Contacts.List)
	contacts.POST("", h.Contacts.Create)
	contacts.PUT("/:id", h.Contacts.Update)
	contacts.DELETE("/:id", h.Contacts.Delete)

	// SOS alerts.
	sos := e.Group("/v1/sos", rl, jwt)
	sos.POST("", h.SOS.Raise)
	sos.GET("", h.SOS.History)
	sos.PUT("/:id/resolve", h.SOS.Resolve)

	// Incidents: browsing and reporting are open to anonymous visitors.
	incidents := e.Group("/v1/incidents", rl, opt)
	incidents.GET("", h.Incidents.List, cache)
	incidents.POST("", h.Incidents.Report)
	incidents.GET("/mine", h.Incidents.Mine, jwt)
	incidents.GET("/:id", h.Incidents.Get)
	incidents.POST("/:id/comments", h.Incidents.Comment)

	// Community forum. Reads are public, writes need a session.
	community := e.Group("/v1/community", rl)
	community.GET("/categories", h.Community.Categories)
	community.GET("/discussions", h.Community.ListDiscussions, cache)
	community.GET("/discussions/:id", h.Community.GetDiscussion)
	community.GET("/discussions/:id/replies", h.Community.ListReplies)
	community.POST("/discussions", h.Community.CreateDiscussion, jwt)
	community.PUT("/discussions/:id", h.Community.UpdateDiscussion, jwt)
	community.DELETE("/discussions/:id", h.Community.DeleteDiscussion, jwt)
	community.POST("/discussions/:id/replies", h.Community.CreateReply, jwt)
	community.POST("/votes", h.Community.Vote, jwt)
	community.POST("/votes/lookup", h.Community.MyVotes, jwt)

	// Q&A board.
	qna := e.Group("/v1/qna", rl)
	qna.GET("/questions", h.QnA.List)
	qna.GET("/questions/:id", h.QnA.Get)
	qna.POST("/questions", h.QnA.Ask, jwt)
	qna.POST("/questions/:id/answers", h.QnA.Answer, jwt)
	qna.POST("/questions/:id/answers/:answerId/vote", h.QnA.VoteAnswer, jwt)
	qna.POST("/questions/:id/answers/:answerId/accept", h.QnA.AcceptAnswer, jwt)

	// Safe places and assistant.
	e.GET("/v1/places/nearby", h.Places.Nearby, rl, cache)
	e.POST("/v1/ai/chat", h.Chat.Ask, rl, jwt)

	// FAQs.
	e.GET("/v1/faqs", h.FAQs.List, rl, cache)
}
