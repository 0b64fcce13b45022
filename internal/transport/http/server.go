package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"childhood-friend/internal/bootstrap"
	"childhood-friend/internal/transport/http/handler"
	"childhood-friend/internal/transport/http/middleware"
	"childhood-friend/internal/transport/ws"
)

// Server pairs the HTTP listener with the websocket connections it hands
// off to the media pipeline, which http.Server.Shutdown does not track.
type Server struct {
	srv     *nethttp.Server
	sockets *ws.Handler
}

func NewServer(app *bootstrap.App) *Server {
	sockets := ws.NewHandler(app.Pipeline, app.Log)
	return &Server{
		srv: &nethttp.Server{
			Addr:              app.Config.HTTPAddr(),
			Handler:           newRouter(app, sockets),
			ReadHeaderTimeout: 5 * time.Second,
		},
		sockets: sockets,
	}
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown stops accepting requests, then closes the open websocket
// sessions and waits for their video uploads to be finalized.
func (s *Server) Shutdown(ctx context.Context) error {
	return errors.Join(s.srv.Shutdown(ctx), s.sockets.Shutdown(ctx))
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	return newRouter(app, ws.NewHandler(app.Pipeline, app.Log))
}

func newRouter(app *bootstrap.App, sockets *ws.Handler) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.CORS(app.Config.App.CORSOrigins))

	registerPages(router, app)
	router.GET("/healthz", handler.NewHealthHandler(app).Check)
	router.GET(app.Config.App.WSPath, sockets.Serve)

	svc := app.Services
	secret := app.Config.Auth.JWTSecret
	authHandler := handler.NewAuthHandler(svc.Auth, app.Log)
	chatHandler := handler.NewChatHandler(svc.Chat, svc.Sessions, svc.Conversation, app.Log)
	uploadHandler := handler.NewUploadHandler(svc.Uploads, app.Log)
	sessionHandler := handler.NewSessionHandler(svc.Sessions, app.Log)

	router.POST("/login", authHandler.Login)
	router.POST("/register", authHandler.Register)
	router.POST("/GetBirth", middleware.OptionalJWT(secret), authHandler.GetBirth)
	router.POST("/ChildhoodFriend", chatHandler.ChildhoodFriend)
	router.POST("/upload_image", uploadHandler.UploadImage)
	router.POST("/Upload_image", uploadHandler.UploadImage)
	router.POST("/session/create", sessionHandler.Create)
	router.POST("/session/end", sessionHandler.End)

	v1 := router.Group("/api/v1")
	v1.GET("/history", middleware.AuthJWT(secret), chatHandler.History)

	return router
}

// registerPages serves the HTML views when the web directory has templates.
func registerPages(router *gin.Engine, app *bootstrap.App) {
	pattern := filepath.Join(app.Config.App.WebDir, "*.html")
	if matches, err := filepath.Glob(pattern); err != nil || len(matches) == 0 {
		app.Log.Warn("no page templates found, skipping page routes", "pattern", pattern)
		return
	}
	router.LoadHTMLGlob(pattern)

	pages := handler.NewPageHandler(app.Config.App.Name)
	router.GET("/", pages.Home)
	router.GET("/login", pages.Login)
	router.GET("/register", pages.Register)
}
