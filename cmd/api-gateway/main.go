package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/woco-project/woco-api/api/swagger"
	"github.com/woco-project/woco-api/internal/handler"
	"github.com/woco-project/woco-api/internal/middleware"
	"github.com/woco-project/woco-api/internal/models"
	"github.com/woco-project/woco-api/internal/repository"
	"github.com/woco-project/woco-api/internal/service"
	"github.com/woco-project/woco-api/pkg/cache"
	"github.com/woco-project/woco-api/pkg/config"
	"github.com/woco-project/woco-api/pkg/database"
	"github.com/woco-project/woco-api/pkg/jobs"
	"github.com/woco-project/woco-api/pkg/logger"
	corsmiddleware "github.com/woco-project/woco-api/pkg/middleware/cors"
	reqidmiddleware "github.com/woco-project/woco-api/pkg/middleware/requestid"
	"github.com/woco-project/woco-api/pkg/storage"
)

// @title WoCo Catalog API
// @version 1.0.0
// @description Postmark and postal cover catalog with temporal geography
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	unitRepo := repository.NewUnitRepository(db)
	affiliationRepo := repository.NewAffiliationRepository(db)
	referenceRepo := repository.NewReferenceRepository(db)
	colorRepo := repository.NewColorRepository(db)
	postmarkRepo := repository.NewPostmarkRepository(db)
	factRepo := repository.NewPostmarkFactRepository(db)
	publicationRepo := repository.NewPublicationRepository(db)
	imageRepo := repository.NewImageRepository(db)
	postcoverRepo := repository.NewPostcoverRepository(db)

	// Reference listings are the hottest read path, so they get the redis
	// cache when one is configured. Everything else reads straight through.
	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.ReferenceTTL, logr, true)
	}

	imageStore, err := storage.NewLocalStorage(cfg.Images.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init image storage", "error", err)
	}

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "woco-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	locationSvc := service.NewLocationService(locationRepo, validate, logr)
	unitSvc := service.NewUnitService(unitRepo, validate, logr)
	affiliationSvc := service.NewAffiliationService(affiliationRepo, locationRepo, unitRepo, validate, logr)
	referenceSvc := service.NewReferenceService(referenceRepo, cacheSvc, cfg.Cache.ReferenceTTL, validate, logr)
	colorSvc := service.NewColorService(colorRepo, validate, logr)
	imageSvc := service.NewImageService(imageRepo, imageStore, postmarkRepo, cfg.Images.MaxFileSizeBytes, cfg.Images.AllowedMIMEs, validate, logr)
	postmarkSvc := service.NewPostmarkService(postmarkRepo, factRepo, imageRepo, locationRepo, referenceRepo, colorRepo, publicationRepo, validate, logr)
	publicationSvc := service.NewPublicationService(publicationRepo, validate, logr)
	postcoverSvc := service.NewPostcoverService(postcoverRepo, imageRepo, postmarkRepo, validate, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Images.SignedURLSecret, cfg.Images.SignedURLTTL)
		exportSvc = service.NewExportService(postmarkRepo, postcoverRepo, locationRepo, exportStore, signer, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			MaxRows:   cfg.Exports.MaxRows,
		}, logr, nil, nil)
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	locationHandler := handler.NewLocationHandler(locationSvc, affiliationSvc)
	unitHandler := handler.NewUnitHandler(unitSvc, affiliationSvc)
	affiliationHandler := handler.NewAffiliationHandler(affiliationSvc)
	colorHandler := handler.NewColorHandler(colorSvc)
	postmarkHandler := handler.NewPostmarkHandler(postmarkSvc)
	publicationHandler := handler.NewPublicationHandler(publicationSvc)
	imageHandler := handler.NewImageHandler(imageSvc, postcoverSvc)
	postcoverHandler := handler.NewPostcoverHandler(postcoverSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	referenceHandlers := map[string]*handler.ReferenceHandler{
		"shapes":           handler.NewReferenceHandler(referenceSvc, models.KindShape),
		"lettering-styles": handler.NewReferenceHandler(referenceSvc, models.KindLettering),
		"framing-styles":   handler.NewReferenceHandler(referenceSvc, models.KindFraming),
		"date-formats":     handler.NewReferenceHandler(referenceSvc, models.KindDateFormat),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Session endpoints.
	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("")
		authed.Use(middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	// User administration.
	users := api.Group("/users")
	users.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		users.GET("", userHandler.List)
		users.GET("/:id", userHandler.Get)
		users.POST("", middleware.Audit(userRepo, models.AuditActionUserCreate, "users"), userHandler.Create)
		users.PUT("/:id", middleware.Audit(userRepo, models.AuditActionUserUpdate, "users"), userHandler.Update)
		users.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionUserDelete, "users"), userHandler.Delete)
	}

	// Reads are public; the optional token lets moderators see pending
	// images in detail responses.
	reads := api.Group("")
	reads.Use(middleware.OptionalJWT(authSvc))
	{
		reads.GET("/locations", locationHandler.List)
		reads.GET("/locations/:id", locationHandler.Get)
		reads.GET("/locations/:id/current-affiliation", locationHandler.CurrentAffiliation)
		reads.GET("/locations/:id/timeline", locationHandler.Timeline)

		reads.GET("/admin-units", unitHandler.List)
		reads.GET("/admin-units/:id", unitHandler.Get)
		reads.GET("/admin-units/:id/children", unitHandler.Children)
		reads.GET("/admin-units/:id/ancestors", unitHandler.Ancestors)
		reads.GET("/admin-units/:id/descendants", unitHandler.Descendants)
		reads.GET("/admin-units/:id/name-history", unitHandler.NameHistory)
		reads.GET("/admin-units/:id/history", unitHandler.History)
		reads.GET("/admin-units/:id/locations", unitHandler.Locations)

		reads.GET("/affiliations", affiliationHandler.List)
		reads.GET("/affiliations/:id", affiliationHandler.Get)

		for path, h := range referenceHandlers {
			reads.GET("/"+path, h.List)
			reads.GET("/"+path+"/:id", h.Get)
		}
		reads.GET("/colors", colorHandler.List)
		reads.GET("/colors/:id", colorHandler.Get)

		reads.GET("/postmarks", postmarkHandler.List)
		reads.GET("/postmarks/:id", postmarkHandler.Get)
		reads.GET("/postmarks/:id/images", imageHandler.ListForPostmark)
		reads.GET("/postmarks/:id/images/primary", imageHandler.Primary)

		reads.GET("/publications", publicationHandler.List)
		reads.GET("/publications/:id", publicationHandler.Get)

		reads.GET("/postcovers", postcoverHandler.List)
		reads.GET("/postcovers/:id", postcoverHandler.Get)
	}

	// Catalog writes require a maintainer or admin.
	catalog := api.Group("")
	catalog.Use(
		middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleAdmin, models.RoleMaintainer),
		middleware.Audit(userRepo, models.AuditActionCatalogWrite, "catalog"),
	)
	{
		catalog.POST("/locations", locationHandler.Create)
		catalog.PUT("/locations/:id", locationHandler.Update)
		catalog.DELETE("/locations/:id", locationHandler.Delete)

		catalog.POST("/admin-units", unitHandler.Create)
		catalog.PUT("/admin-units/:id", unitHandler.Update)
		catalog.DELETE("/admin-units/:id", unitHandler.Delete)

		catalog.POST("/affiliations", affiliationHandler.Create)
		catalog.POST("/affiliations/:id/close", affiliationHandler.Close)

		for path, h := range referenceHandlers {
			catalog.POST("/"+path, h.Create)
			catalog.PUT("/"+path+"/:id", h.Update)
			catalog.DELETE("/"+path+"/:id", h.Delete)
		}
		catalog.POST("/colors", colorHandler.Create)
		catalog.PUT("/colors/:id", colorHandler.Update)
		catalog.DELETE("/colors/:id", colorHandler.Delete)

		catalog.POST("/postmarks", postmarkHandler.Create)
		catalog.PUT("/postmarks/:id", postmarkHandler.Update)
		catalog.DELETE("/postmarks/:id", postmarkHandler.Delete)
		catalog.POST("/postmarks/:id/colors", postmarkHandler.AddColor)
		catalog.DELETE("/postmarks/:id/colors/:linkId", postmarkHandler.RemoveColor)
		catalog.POST("/postmarks/:id/date-ranges", postmarkHandler.AddDateRange)
		catalog.DELETE("/postmarks/:id/date-ranges/:rangeId", postmarkHandler.RemoveDateRange)
		catalog.POST("/postmarks/:id/sizes", postmarkHandler.AddSize)
		catalog.DELETE("/postmarks/:id/sizes/:sizeId", postmarkHandler.RemoveSize)
		catalog.POST("/postmarks/:id/valuations", postmarkHandler.AddValuation)
		catalog.DELETE("/postmarks/:id/valuations/:valuationId", postmarkHandler.RemoveValuation)
		catalog.POST("/postmarks/:id/references", postmarkHandler.AddReference)
		catalog.DELETE("/postmarks/:id/references/:refId", postmarkHandler.RemoveReference)

		catalog.POST("/publications", publicationHandler.Create)
		catalog.PUT("/publications/:id", publicationHandler.Update)
		catalog.DELETE("/publications/:id", publicationHandler.Delete)

		catalog.DELETE("/postmark-images/:id", imageHandler.DeletePostmarkImage)
	}

	// Image moderation queue.
	moderation := api.Group("/postmark-images")
	moderation.Use(
		middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleAdmin, models.RoleMaintainer),
		middleware.Audit(userRepo, models.AuditActionImageModerate, "postmark_images"),
	)
	{
		moderation.GET("/pending", imageHandler.PendingQueue)
		moderation.POST("/:id/approve", imageHandler.Approve)
		moderation.POST("/:id/reject", imageHandler.Reject)
	}

	// Any authenticated user may submit postmark images; non-moderator
	// uploads enter the pending queue.
	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.POST("/postmarks/:id/images", imageHandler.UploadForPostmark)

		authed.GET("/postcovers/my-collection", postcoverHandler.MyCollection)
		authed.POST("/postcovers", postcoverHandler.Create)
		authed.PUT("/postcovers/:id", postcoverHandler.Update)
		authed.DELETE("/postcovers/:id", postcoverHandler.Delete)
		authed.POST("/postcovers/:id/placements", postcoverHandler.AddPlacement)
		authed.DELETE("/postcovers/:id/placements/:placementId", postcoverHandler.RemovePlacement)
		authed.POST("/postcovers/:id/images", imageHandler.UploadForPostcover)
		authed.DELETE("/postcover-images/:id", imageHandler.DeletePostcoverImage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		exports := api.Group("/exports")
		exports.GET("/download", exportHandler.Download)

		exportWrites := exports.Group("")
		exportWrites.Use(middleware.JWT(authSvc))
		exportWrites.POST("/postmarks.csv", exportHandler.PostmarksCSV)
		exportWrites.POST("/postcovers.pdf", exportHandler.PostcoversPDF)

		startExportCleanup(ctx, exportSvc, logr)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
}

// startExportCleanup drains expired export files through the background
// queue so a slow filesystem never blocks request handling.
func startExportCleanup(ctx context.Context, exportSvc *service.ExportService, logr *zap.Logger) {
	queue := jobs.NewQueue("export-maintenance", func(context.Context, jobs.Job) error {
		exportSvc.Cleanup()
		return nil
	}, jobs.QueueConfig{Workers: 1, Logger: logr})
	queue.Start(ctx)

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		defer queue.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				_ = queue.Enqueue(jobs.Job{ID: fmt.Sprintf("cleanup-%d", now.Unix()), Type: "export_cleanup"})
			}
		}
	}()
}
