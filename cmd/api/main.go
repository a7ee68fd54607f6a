// Package main is the entry point for the LeadsFlow API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/forefold/leadsflow/config"
	"github.com/forefold/leadsflow/internal/cache"
	"github.com/forefold/leadsflow/internal/events"
	"github.com/forefold/leadsflow/internal/handlers"
	"github.com/forefold/leadsflow/internal/middleware"
	"github.com/forefold/leadsflow/internal/repositories"
	"github.com/forefold/leadsflow/internal/services"
	"github.com/forefold/leadsflow/pkg/kafka"
	"github.com/forefold/leadsflow/pkg/mongodb"
	"github.com/forefold/leadsflow/pkg/smtp"
	"github.com/forefold/leadsflow/pkg/webpush"
)

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	log := logrus.New()
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := newLogger(cfg.Logging)

	ctx := context.Background()

	// MongoDB
	mongoClient, err := mongodb.NewClient(mongodb.Config{
		URI:         cfg.MongoDB.URI,
		Database:    cfg.MongoDB.Database,
		MaxPoolSize: cfg.MongoDB.MaxPoolSize,
		MaxRetries:  cfg.MongoDB.RetryAttempts,
		TLSCAFile:   cfg.MongoDB.TLSCAFile,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("failed to disconnect from MongoDB")
		}
	}()

	// Redis cache for analytics; degraded mode without it.
	var analyticsCache services.AnalyticsCache
	redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, analytics caching disabled")
	} else {
		analyticsCache = redisCache
		defer redisCache.Close()
	}

	// Kafka audit publisher; optional.
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(kafka.Config{
			Brokers:       cfg.Kafka.Brokers,
			ClientID:      cfg.Kafka.ClientID,
			Username:      cfg.Kafka.Username,
			Password:      cfg.Kafka.Password,
			SSL:           cfg.Kafka.SSL,
			SASLMechanism: cfg.Kafka.SASLMechanism,
		}, log)
		if err != nil {
			log.WithError(err).Warn("kafka unavailable, audit events disabled")
		} else {
			defer producer.Close()
		}
	}
	publisher := events.NewPublisher(producer, events.Topics{
		LeadCreated: cfg.Kafka.TopicLeadCreated,
		AuthLogin:   cfg.Kafka.TopicAuthLogin,
		OTPIssued:   cfg.Kafka.TopicOTPIssued,
	}, log)

	// SMTP
	mailer, err := smtp.NewClient(smtp.Config{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		FromEmail:  cfg.SMTP.FromEmail,
		FromName:   cfg.SMTP.FromName,
		ReplyTo:    cfg.SMTP.ReplyTo,
		TLSEnabled: cfg.SMTP.TLSEnabled,
	})
	if err != nil {
		log.WithError(err).Fatal("invalid SMTP configuration")
	}

	// Web push; optional.
	var pusher services.Pusher
	if cfg.Push.Enabled {
		pushClient, err := webpush.NewClient(webpush.Config{
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			Subject:         cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		})
		if err != nil {
			log.WithError(err).Fatal("invalid web push configuration")
		}
		pusher = pushClient
	}

	// Repositories
	db := mongoClient.DB
	userRepo := repositories.NewUserRepository(db)
	permRepo := repositories.NewPermissionRepository(db)
	leadRepo := repositories.NewLeadRepository(db)
	notifRepo := repositories.NewNotificationRepository(db)
	otpRepo := repositories.NewOTPRepository(db)
	tokenRepo := repositories.NewTokenRepository(db)
	sectorRepo := repositories.NewSectorRepository(db)
	securityRepo := repositories.NewSecurityRepository(db)

	// Services
	scopes := services.NewScopeResolver(userRepo, permRepo)
	limiter := services.NewCooldownLimiter(nil)

	notifier := services.NewNotifier(userRepo, permRepo, leadRepo, notifRepo, scopes, mailer, pusher, log, services.NotifierOptions{
		PacingDelay:   cfg.Notify.PacingDelay,
		QueueCapacity: cfg.Notify.QueueCapacity,
	})
	defer notifier.Close()

	leadEvents := services.NewLeadEventFanout(notifier, publisher)

	leadService := services.NewLeadService(leadRepo, sectorRepo, scopes, leadEvents, nil, log)
	authService := services.NewAuthService(userRepo, tokenRepo, otpRepo, securityRepo, mailer, limiter, publisher, log, services.AuthOptions{
		OTPTTL:            cfg.OTP.TTL,
		LoginCooldown:     cfg.OTP.LoginCooldown,
		Enable2FACooldown: cfg.OTP.Enable2FACool,
	})
	profileService := services.NewProfileService(userRepo, permRepo, tokenRepo, notifRepo, log)
	analyticsService := services.NewAnalyticsService(leadRepo, scopes, analyticsCache, log)

	// Background janitors.
	janitorCtx, stopJanitors := context.WithCancel(ctx)
	defer stopJanitors()
	go runCleanup(janitorCtx, authService, cfg.OTP.CleanupInterval)
	go runReminderScheduler(janitorCtx, notifier, cfg.Notify.ReminderHour, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	leadHandler := handlers.NewLeadHandler(leadService, notifier)
	profileHandler := handlers.NewProfileHandler(profileService, notifier)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	healthHandler := handlers.NewHealthHandler(mongoClient)

	// Router
	router := mux.NewRouter()
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))

	router.HandleFunc("/health/live", healthHandler.Live).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods(http.MethodGet)

	router.PathPrefix("/swagger").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	)).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Public auth routes.
	api.HandleFunc("/auth/signup", authHandler.Signup).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/login/2fa", authHandler.LoginWith2FA).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/2fa/send", authHandler.Send2FACode).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/password/forgot", authHandler.ForgotPassword).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/password/verify", authHandler.VerifyResetCode).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/auth/password/reset", authHandler.ResetPassword).Methods(http.MethodPost, http.MethodOptions)

	// Authenticated routes.
	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Auth(authService, handlers.RespondWithError))

	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost, http.MethodOptions)

	protected.HandleFunc("/security", authHandler.SecuritySettings).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/security", authHandler.UpdateSecuritySettings).Methods(http.MethodPut, http.MethodOptions)
	protected.HandleFunc("/security/2fa/request", authHandler.RequestEnable2FA).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/security/2fa/confirm", authHandler.ConfirmEnable2FA).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/security/2fa/disable", authHandler.Disable2FA).Methods(http.MethodPost, http.MethodOptions)

	protected.HandleFunc("/leads", leadHandler.List).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/leads", leadHandler.Create).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/leads/import", leadHandler.Import).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/leads/export", leadHandler.Export).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/leads/cities", leadHandler.Cities).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/leads/reminders/run", leadHandler.RunReminderSweep).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/leads/{id}", leadHandler.Get).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/leads/{id}", leadHandler.Update).Methods(http.MethodPatch, http.MethodOptions)
	protected.HandleFunc("/leads/{id}", leadHandler.Delete).Methods(http.MethodDelete, http.MethodOptions)
	protected.HandleFunc("/leads/{id}/reminder", leadHandler.SendReminder).Methods(http.MethodPost, http.MethodOptions)

	protected.HandleFunc("/sectors", leadHandler.Sectors).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/sectors", leadHandler.AddSector).Methods(http.MethodPost, http.MethodOptions)

	protected.HandleFunc("/profile", profileHandler.Get).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/profile", profileHandler.Update).Methods(http.MethodPatch, http.MethodOptions)
	protected.HandleFunc("/profile/password", profileHandler.ChangePassword).Methods(http.MethodPost, http.MethodOptions)

	protected.HandleFunc("/notifications/settings", profileHandler.NotificationSettings).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/notifications/settings", profileHandler.UpdateNotificationSettings).Methods(http.MethodPut, http.MethodOptions)
	protected.HandleFunc("/notifications/subscriptions", profileHandler.Subscribe).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/notifications/subscriptions", profileHandler.Unsubscribe).Methods(http.MethodDelete, http.MethodOptions)
	protected.HandleFunc("/notifications/test", profileHandler.TestPush).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/notifications/diagnostics", profileHandler.PushDiagnostics).Methods(http.MethodGet, http.MethodOptions)

	protected.HandleFunc("/sub-users", profileHandler.CreateSubUser).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/sub-users", profileHandler.ListSubUsers).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/sub-users/{id}/permissions", profileHandler.UpdateSubUserPermissions).Methods(http.MethodPut, http.MethodOptions)
	protected.HandleFunc("/sub-users/{id}", profileHandler.DeleteSubUser).Methods(http.MethodDelete, http.MethodOptions)

	protected.HandleFunc("/analytics/summary", analyticsHandler.Summary).Methods(http.MethodGet, http.MethodOptions)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	log.Info("server stopped")
}

// runCleanup deletes expired tokens and one-time codes on an interval.
func runCleanup(ctx context.Context, auth *services.AuthService, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			auth.CleanupExpired(ctx)
		}
	}
}

// runReminderScheduler fires the follow-up reminder sweep once a day at the
// configured hour (UTC).
func runReminderScheduler(ctx context.Context, notifier *services.Notifier, hour int, log *logrus.Logger) {
	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}
		stats, err := notifier.SendFollowUpReminders(ctx)
		if err != nil {
			log.WithError(err).Error("follow-up reminder sweep failed")
			continue
		}
		log.WithFields(logrus.Fields{
			"sent":    stats.Sent,
			"errors":  stats.Errors,
			"skipped": stats.Skipped,
		}).Info("follow-up reminder sweep complete")
	}
}
