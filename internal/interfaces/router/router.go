package router

import (
	"context"
	"strings"

	authsvc "roomlink-backend/internal/application/auth"
	emailsvc "roomlink-backend/internal/application/emails"
	healthsvc "roomlink-backend/internal/application/health"
	lesvc "roomlink-backend/internal/application/listingevents"
	listsvc "roomlink-backend/internal/application/listings"
	uploadsvc "roomlink-backend/internal/application/uploads"
	usersvc "roomlink-backend/internal/application/user"
	verifysvc "roomlink-backend/internal/application/verification"
	"roomlink-backend/internal/config"
	"roomlink-backend/internal/infrastructure/database"
	authhandler "roomlink-backend/internal/interfaces/handlers/auth"
	healthhandler "roomlink-backend/internal/interfaces/handlers/health"
	lehandler "roomlink-backend/internal/interfaces/handlers/listingevents"
	listhandler "roomlink-backend/internal/interfaces/handlers/listings"
	uploadhandler "roomlink-backend/internal/interfaces/handlers/uploads"
	userhandler "roomlink-backend/internal/interfaces/handlers/user"
	verifyhandler "roomlink-backend/internal/interfaces/handlers/verification"
	"roomlink-backend/internal/middleware"
	"roomlink-backend/internal/pkg/constants"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Deps are the connections and outbound clients the routes are built on.
type Deps struct {
	DB     *gorm.DB
	Rdb    *redis.Client
	Store  uploadhandler.Store
	Mailer emailsvc.Sender
}

type gormDBPinger struct {
	db *gorm.DB
}

func (g *gormDBPinger) PingContext(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateApp opens Postgres and Redis from cfg and returns the app with both connections.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
		log.Info().Msg("database migrated")
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, err
	}
	rdb := redis.NewClient(opt)

	var mailer emailsvc.Sender
	if cfg.SendinblueAPIKey != "" {
		mailer = &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
	}
	store := &uploadsvc.Service{
		Client:      &uploadsvc.HTTPClient{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey},
		SupabaseURL: cfg.SupabaseURL,
	}
	return NewApp(cfg, Deps{DB: db, Rdb: rdb, Store: store, Mailer: mailer}), db, rdb, nil
}

// NewApp registers global middleware and every route on deps.
func NewApp(cfg *config.Config, deps Deps) *fiber.App {
	bodyLimit := cfg.MaxUploadMB * 1024 * 1024
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
		BodyLimit:               bodyLimit,
	})

	sessionCfg := middleware.SessionConfig{
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.Session(deps.Rdb))
	app.Use(middleware.HealthMarker(deps.Rdb))
	app.Use(middleware.RouteLogger())

	// Health
	hh := &healthhandler.Handlers{
		Rdb:            deps.Rdb,
		HealthAdminKey: cfg.HealthAdminKey,
	}
	if deps.DB != nil {
		hh.DB = &gormDBPinger{db: deps.DB}
	}
	if cfg.SupabaseURL != "" {
		hh.Probes = append(hh.Probes, healthsvc.Probe{Name: "storage", URL: strings.TrimRight(cfg.SupabaseURL, "/") + "/storage/v1/version"})
	}
	app.Get("/", hh.JSON)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)

	users := &usersvc.Service{DB: deps.DB, Rdb: deps.Rdb, Mailer: deps.Mailer}
	listings := &listsvc.Service{DB: deps.DB}
	verification := &verifysvc.Service{DB: deps.DB, Mailer: deps.Mailer}

	// Auth
	ah := &authhandler.Handlers{
		UserFinder:   &authsvc.GormUserFinder{DB: deps.DB},
		Users:        users,
		Rdb:          deps.Rdb,
		Config:       sessionCfg,
		CookieDomain: cfg.FrontendURLEndsWith,
	}
	authGroup := app.Group("/api/v1/auth")
	authGroup.Post("/signup", ah.Signup)
	authGroup.Post("/login", ah.Login)
	authGroup.Get("/me", ah.Me)
	authGroup.Delete("/logout", ah.Logout)

	// Listings: browsing is public, mutations need a session
	lh := &listhandler.Handlers{Service: listings, Store: deps.Store, Bucket: cfg.MediaBucket}
	lg := app.Group("/api/v1/listings")
	lg.Get("/", lh.Search)
	lg.Get("/:id", lh.Detail)
	lg.Post("/", middleware.RequireAuth(), middleware.AuthorizePermission(constants.PostListing), lh.Create)
	lg.Put("/:id", middleware.RequireAuth(), middleware.AuthorizePermission(constants.PostListing), lh.Edit)
	lg.Patch("/:id/primary-media", middleware.RequireAuth(), middleware.AuthorizePermission(constants.PostListing), lh.SetPrimary)
	lg.Delete("/:id", middleware.RequireAuth(), lh.Delete)

	// Users
	uh := &userhandler.Handlers{Service: users}
	ug := app.Group("/api/v1/users", middleware.RequireAuth())
	ug.Get("/me", uh.Me)
	ug.Patch("/me", uh.UpdateMe)
	ug.Get("/me/listings", middleware.AuthorizePermission(constants.ViewData), lh.MyListings)

	// Verification
	vh := &verifyhandler.Handlers{Service: verification, Store: deps.Store, Bucket: cfg.DocumentBucket}
	vg := app.Group("/api/v1/verification", middleware.RequireAuth())
	vg.Post("/document", vh.SubmitDocument)

	// Admin
	leh := &lehandler.Handlers{Service: &lesvc.Service{DB: deps.DB}}
	adm := app.Group("/api/v1/admin", middleware.RequireAuth())
	adm.Post("/verification", middleware.AuthorizePermission(constants.ReviewStudents), vh.Decide)
	adm.Post("/listings/verification", middleware.AuthorizePermission(constants.VerifyListings), lh.Verify)
	adm.Get("/listing-events", middleware.AuthorizePermission(constants.ViewAuditTrail), leh.List)
	adm.Patch("/users/:id/role", middleware.AuthorizePermission(constants.ManageRoles), uh.SetRole)

	return app
}
