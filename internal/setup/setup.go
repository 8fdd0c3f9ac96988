package setup

import (
	"github.com/evoting-dev/evoting/internal/config"
	"github.com/evoting-dev/evoting/internal/email"
	"github.com/evoting-dev/evoting/internal/face"
	"github.com/evoting-dev/evoting/internal/handler"
	"github.com/evoting-dev/evoting/internal/jwt"
	"github.com/evoting-dev/evoting/internal/middleware"
	"github.com/evoting-dev/evoting/internal/service"
	"github.com/evoting-dev/evoting/internal/storage/pg"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config         *config.Config
	Storage        *pg.Storage
	Handler        *handler.Handler
	Jwt            jwt.JwtService
	AuthMiddleware *middleware.Auth
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(cfg)
	if err != nil {
		return nil, err
	}

	emailSender := email.New(&cfg.Private.Email)
	jwtService := jwt.New(cfg.JwtKey(), cfg.JwtTTL())
	faceClient := face.New(&cfg.Public.FaceService)

	auth := service.NewAuth(storage, emailSender, jwtService, faceClient, &cfg.Public)
	election := service.NewElection(storage)
	ballot := service.NewBallot(storage, faceClient)
	party := service.NewParty(storage)

	h := handler.New(auth, election, ballot, party, cfg)
	authMw := middleware.NewAuth(jwtService, storage)

	return &Dependencies{
		Config:         cfg,
		Storage:        storage,
		Handler:        h,
		Jwt:            jwtService,
		AuthMiddleware: authMw,
	}, nil
}
