package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/kudos/internal/api"
	"github.com/MarkoPoloResearchLab/kudos/internal/notifications"
	"github.com/MarkoPoloResearchLab/kudos/internal/service"
	"github.com/MarkoPoloResearchLab/kudos/internal/task"
	"github.com/MarkoPoloResearchLab/kudos/internal/web"
)

const (
	emailSenderName        = "Kudos"
	logEventEmailDisabled  = "owner_email_disabled"
	logEventSweepDisabled  = "orphan_sweep_disabled"
	missingDatabaseMessage = "api serve mode requires a database"
)

var errMissingDatabase = errors.New(missingDatabaseMessage)

// serverRuntime owns everything a running process must start and stop.
type serverRuntime struct {
	router       *gin.Engine
	broadcaster  *api.TestimonialEventBroadcaster
	testimonials *api.TestimonialHandlers
	scheduler    *task.Scheduler
}

func newServerRuntime(config ServerConfig, database *gorm.DB, logger *zap.Logger) (*serverRuntime, error) {
	pages, pagesErr := web.NewPageHandlers(web.PageConfig{
		APIBaseURL: config.APIBaseURL,
		BrandURL:   config.BrandURL,
	}, logger)
	if pagesErr != nil {
		return nil, pagesErr
	}

	runtime := &serverRuntime{}
	dependencies := routeDependencies{
		serveMode:       config.ServeMode,
		dashboardOrigin: config.DashboardOrigin,
		pages:           pages,
	}

	if config.ServeMode.servesAPI() {
		if database == nil {
			return nil, errMissingDatabase
		}
		if backendErr := runtime.wireBackend(config, database, logger, &dependencies); backendErr != nil {
			return nil, backendErr
		}
	}

	runtime.router = newRouter(logger, dependencies)
	return runtime, nil
}

func (runtime *serverRuntime) wireBackend(config ServerConfig, database *gorm.DB, logger *zap.Logger, dependencies *routeDependencies) error {
	authConfig := api.AuthConfig{
		SigningKey: config.AuthSigningKey,
		Issuer:     config.AuthIssuer,
		Audience:   config.AuthAudience,
	}
	if config.AuthSigningKey == "" && config.AuthPublicKeyFile != "" {
		publicKeyPEM, readErr := os.ReadFile(config.AuthPublicKeyFile)
		if readErr != nil {
			return fmt.Errorf("%s: %w", readPublicKeyErrorMessage, readErr)
		}
		authConfig.PublicKeyPEM = publicKeyPEM
	}
	validator, validatorErr := api.NewTokenValidator(authConfig)
	if validatorErr != nil {
		return validatorErr
	}

	identity := service.NewIdentityService(database, logger)
	spaces := service.NewSpaceRegistry(database, logger)
	intake := service.NewIntake(database, logger)
	moderation := service.NewModeration(database, logger, service.WithStrictTransitions(config.StrictModeration))
	publisher := service.NewEmbedPublisher(database, logger)

	notifier, notifierErr := newTestimonialNotifier(config, logger)
	if notifierErr != nil {
		return notifierErr
	}

	runtime.broadcaster = api.NewTestimonialEventBroadcaster()
	runtime.testimonials = api.NewTestimonialHandlers(intake, moderation, identity, logger, api.TestimonialHandlersConfig{
		Broadcaster:     runtime.broadcaster,
		Notifier:        notifier,
		IntakeRateLimit: config.IntakeRateLimit,
	})

	if config.OrphanSweepInterval > 0 {
		sweep, sweepErr := task.NewOrphanSweep(moderation, logger)
		if sweepErr != nil {
			return sweepErr
		}
		runtime.scheduler = task.NewScheduler(config.OrphanSweepInterval, sweep, logger)
	} else {
		logger.Info(logEventSweepDisabled)
	}

	dependencies.authManager = api.NewAuthManager(validator, identity, logger)
	dependencies.identity = api.NewIdentityHandlers(identity, logger)
	// An on-demand sweep after a delete clears testimonials a partial delete left behind.
	dependencies.spaces = api.NewSpaceHandlers(spaces, logger, api.WithSpaceDeletedHook(runtime.scheduler.Trigger))
	dependencies.testimonials = runtime.testimonials
	dependencies.embeds = api.NewEmbedHandlers(publisher, config.PublicBaseURL, logger)
	return nil
}

// newTestimonialNotifier returns nil, which the handlers treat as a no-op,
// when no SMTP relay is configured.
func newTestimonialNotifier(config ServerConfig, logger *zap.Logger) (api.TestimonialNotifier, error) {
	if config.SMTPHost == "" {
		logger.Info(logEventEmailDisabled)
		return nil, nil
	}
	emailNotifier, notifierErr := notifications.NewEmailNotifier(notifications.SMTPConfig{
		Host:         config.SMTPHost,
		Port:         config.SMTPPort,
		Username:     config.SMTPUsername,
		Password:     config.SMTPPassword,
		From:         config.SMTPFrom,
		FromName:     emailSenderName,
		DashboardURL: config.DashboardOrigin,
	}, logger)
	if notifierErr != nil {
		return nil, notifierErr
	}
	return emailNotifier, nil
}

func (runtime *serverRuntime) start(ctx context.Context) {
	if runtime.scheduler != nil {
		runtime.scheduler.Start(ctx)
	}
}

// stop ends background work and open event streams.
func (runtime *serverRuntime) stop() {
	if runtime.scheduler != nil {
		runtime.scheduler.Stop()
	}
	runtime.broadcaster.Close()
}

// drain waits for owner notifications already in flight.
func (runtime *serverRuntime) drain() {
	if runtime.testimonials != nil {
		runtime.testimonials.WaitForNotifications()
	}
}
