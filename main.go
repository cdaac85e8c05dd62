package main

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
	"github.com/sirupsen/logrus"

	"rentloop-server/routes"
	"rentloop-server/services"
	"rentloop-server/storage"
	"rentloop-server/utils"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(logrus.DebugLevel)
	}

	db, err := storage.NewDB(os.Getenv("DB_CONNECTION_STRING"))
	if err != nil {
		log.WithError(err).Fatal("database initialization failed")
	}
	rdb := storage.NewRedis(os.Getenv("REDIS_URL"), log)

	// Side effects run off the request path: best-effort, at-most-once.
	notifier := services.NewNotifier(db, rdb, log)
	events := services.NewEmitter(256, notifier.Handle, log)
	defer events.Close()

	bookingService := services.NewBookingService(db)
	searchService := services.NewSearchService(db)
	assistClient := services.NewAssistClient(log)
	tokens := utils.NewTokenManager(rdb)

	userHandler := routes.NewUserHandler(db, tokens)
	listingHandler := routes.NewListingHandler(db, bookingService, events, log)
	bookingHandler := routes.NewBookingHandler(db, bookingService, events, log)
	searchHandler := routes.NewSearchHandler(db, searchService)
	categoryHandler := routes.NewCategoryHandler(db)
	reviewHandler := routes.NewReviewHandler(db, events)
	notificationHandler := routes.NewNotificationHandler(db)
	assistHandler := routes.NewAssistHandler(assistClient, log)
	agreementHandler := routes.NewAgreementHandler(db)
	adminHandler := routes.NewAdminHandler(db, events, log)

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})
	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		if err := ctx.ReadJSON(&tokenInput); err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", userHandler.Register)
		user.Post("/login", userHandler.Login)
		user.Post("/refresh", refreshTokenVerifierMiddleware, userHandler.Refresh)
		user.Get("/me", accessTokenVerifierMiddleware, userHandler.Me)
	}

	listings := app.Party("/api/listings")
	{
		listings.Get("/", listingHandler.GetListings)
		listings.Post("/", accessTokenVerifierMiddleware, listingHandler.CreateListing)
		listings.Get("/{id:uint}", listingHandler.GetListing)
		listings.Patch("/{id:uint}", accessTokenVerifierMiddleware, listingHandler.UpdateListing)
		listings.Delete("/{id:uint}", accessTokenVerifierMiddleware, listingHandler.DeleteListing)
		listings.Get("/user/{id:uint}", listingHandler.GetListingsByUser)
		listings.Get("/{id:uint}/reviews", reviewHandler.GetListingReviews)
		listings.Post("/{id:uint}/reviews", accessTokenVerifierMiddleware, reviewHandler.CreateReview)
	}

	bookings := app.Party("/api/bookings", accessTokenVerifierMiddleware)
	{
		bookings.Get("/", bookingHandler.GetBookings)
		bookings.Post("/", bookingHandler.CreateBooking)
		bookings.Get("/{id:uint}", bookingHandler.GetBooking)
		bookings.Put("/{id:uint}", bookingHandler.UpdateBooking)
		bookings.Delete("/{id:uint}", bookingHandler.CancelBooking)
		bookings.Get("/{id:uint}/agreement", agreementHandler.DownloadAgreement)
	}

	app.Get("/api/search", searchHandler.SearchListings)
	app.Get("/api/categories", categoryHandler.GetCategories)

	assist := app.Party("/api/assist", accessTokenVerifierMiddleware)
	{
		assist.Post("/description", assistHandler.GenerateDescription)
		assist.Post("/agreement", assistHandler.GenerateAgreementText)
	}

	notifications := app.Party("/api/notifications", accessTokenVerifierMiddleware)
	{
		notifications.Get("/", notificationHandler.GetNotifications)
		notifications.Patch("/{id:uint}/read", notificationHandler.MarkRead)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/users", adminHandler.ListUsers)
		admin.Get("/listings", adminHandler.ListListings)
		admin.Patch("/listings/{id:uint}/status", adminHandler.UpdateListingStatus)
		admin.Get("/bookings", adminHandler.ListBookings)
		admin.Post("/bookings/{id:uint}/cancel", adminHandler.CancelBooking)
		admin.Post("/categories", categoryHandler.CreateCategory)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}

	log.WithField("addr", ":"+port).Info("starting server")
	if err := app.Listen(":" + port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
