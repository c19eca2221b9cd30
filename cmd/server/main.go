package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/kudos/internal/api"
	"github.com/MarkoPoloResearchLab/kudos/internal/storage"
)

const (
	commandUseName               = "server"
	commandShortDescription      = "Run the testimonial server"
	commandLongDescription       = "Launch the testimonial collection, moderation and embed HTTP server"
	missingConfigurationMessage  = "missing required configuration"
	loggerCreationErrorMessage   = "logger"
	logEventListening            = "listening"
	logEventShuttingDown         = "shutting_down"
	logFieldAddress              = "addr"
	logFieldServeMode            = "serve_mode"
	loggerContextOpenDatabase    = "open_db"
	loggerContextAutoMigrate     = "migrate"
	loggerContextServer          = "server"
	loggerContextShutdown        = "shutdown"
	readHeaderTimeout            = 5 * time.Second
	shutdownTimeout              = 15 * time.Second
	unexpectedArgumentsMessage   = "unexpected command arguments"
	commandInitializationFailure = "failed to configure command"
	flagNotDefinedMessage        = "flag %s not defined"
	unsupportedFlagTypeMessage   = "flag %s has unsupported default type %T"
	environmentConfigurationErr  = "failed to apply environment configuration"
	readPublicKeyErrorMessage    = "read auth public key"

	flagNameApplicationAddress  = "app-addr"
	flagNameDatabaseDriver      = "db-driver"
	flagNameDatabaseDSN         = "db-dsn"
	flagNameAuthSigningKey      = "auth-signing-key"
	flagNameAuthPublicKeyFile   = "auth-public-key-file"
	flagNameAuthIssuer          = "auth-issuer"
	flagNameAuthAudience        = "auth-audience"
	flagNamePublicBaseURL       = "public-base-url"
	flagNameAPIBaseURL          = "api-base-url"
	flagNameBrandURL            = "brand-url"
	flagNameDashboardOrigin     = "dashboard-origin"
	flagNameServeMode           = "serve-mode"
	flagNameStrictModeration    = "strict-moderation"
	flagNameOrphanSweepInterval = "orphan-sweep-interval"
	flagNameIntakeRateLimit     = "intake-rate-limit"
	flagNameSMTPHost            = "smtp-host"
	flagNameSMTPPort            = "smtp-port"
	flagNameSMTPUsername        = "smtp-username"
	flagNameSMTPPassword        = "smtp-password"
	flagNameSMTPFrom            = "smtp-from"
	environmentKeyAppAddress    = "APP_ADDR"
	environmentKeyDBDriver      = "DB_DRIVER"
	environmentKeyDBDSN         = "DB_DSN"
	environmentKeySigningKey    = "AUTH_SIGNING_KEY"
	environmentKeyPublicKeyFile = "AUTH_PUBLIC_KEY_FILE"
	environmentKeyIssuer        = "AUTH_ISSUER"
	environmentKeyAudience      = "AUTH_AUDIENCE"
	environmentKeyPublicBaseURL = "PUBLIC_BASE_URL"
	environmentKeyAPIBaseURL    = "API_BASE_URL"
	environmentKeyBrandURL      = "BRAND_URL"
	environmentKeyDashboard     = "DASHBOARD_ORIGIN"
	environmentKeyServeMode     = "SERVE_MODE"
	environmentKeyStrict        = "STRICT_MODERATION"
	environmentKeySweepInterval = "ORPHAN_SWEEP_INTERVAL"
	environmentKeyIntakeLimit   = "INTAKE_RATE_LIMIT"
	environmentKeySMTPHost      = "SMTP_HOST"
	environmentKeySMTPPort      = "SMTP_PORT"
	environmentKeySMTPUsername  = "SMTP_USERNAME"
	environmentKeySMTPPassword  = "SMTP_PASSWORD"
	environmentKeySMTPFrom      = "SMTP_FROM"
	defaultApplicationAddress   = ":8080"
	defaultOrphanSweepInterval  = time.Hour
	defaultSMTPPort             = 587
	authKeyFlagDescription      = flagNameAuthSigningKey + " or " + flagNameAuthPublicKeyFile
)

type configurationFlag struct {
	name           string
	environmentKey string
	usage          string
	defaultValue   any
}

var configurationFlags = []configurationFlag{
	{flagNameApplicationAddress, environmentKeyAppAddress, "address for the HTTP server to listen on", defaultApplicationAddress},
	{flagNameDatabaseDriver, environmentKeyDBDriver, "database driver (" + strings.Join(storage.SupportedDrivers(), ", ") + ")", storage.DriverNameSQLite},
	{flagNameDatabaseDSN, environmentKeyDBDSN, "database connection string", ""},
	{flagNameAuthSigningKey, environmentKeySigningKey, "shared secret for HS256 bearer tokens", ""},
	{flagNameAuthPublicKeyFile, environmentKeyPublicKeyFile, "PEM file with the RSA key for RS256 bearer tokens", ""},
	{flagNameAuthIssuer, environmentKeyIssuer, "expected bearer token issuer", ""},
	{flagNameAuthAudience, environmentKeyAudience, "expected bearer token audience", ""},
	{flagNamePublicBaseURL, environmentKeyPublicBaseURL, "public origin of the collection and embed pages", ""},
	{flagNameAPIBaseURL, environmentKeyAPIBaseURL, "origin pages call for JSON; empty means same origin", ""},
	{flagNameBrandURL, environmentKeyBrandURL, "link target of the attribution footer", ""},
	{flagNameDashboardOrigin, environmentKeyDashboard, "origin of the owner dashboard allowed to call authenticated routes", ""},
	{flagNameServeMode, environmentKeyServeMode, "monolith, web or api", string(ServeModeMonolith)},
	{flagNameStrictModeration, environmentKeyStrict, "only allow approve and reject on pending testimonials", false},
	{flagNameOrphanSweepInterval, environmentKeySweepInterval, "interval between orphaned testimonial sweeps; 0 disables", defaultOrphanSweepInterval},
	{flagNameIntakeRateLimit, environmentKeyIntakeLimit, "submissions allowed per client IP per throttle window; 0 disables", api.DefaultIntakeRateLimit},
	{flagNameSMTPHost, environmentKeySMTPHost, "SMTP relay host; empty disables owner emails", ""},
	{flagNameSMTPPort, environmentKeySMTPPort, "SMTP relay port", defaultSMTPPort},
	{flagNameSMTPUsername, environmentKeySMTPUsername, "SMTP username", ""},
	{flagNameSMTPPassword, environmentKeySMTPPassword, "SMTP password", ""},
	{flagNameSMTPFrom, environmentKeySMTPFrom, "sender address of owner emails", ""},
}

// ServerConfig captures configuration needed to run the server.
type ServerConfig struct {
	ApplicationAddress  string
	DatabaseDriver      string
	DatabaseDSN         string
	AuthSigningKey      string
	AuthPublicKeyFile   string
	AuthIssuer          string
	AuthAudience        string
	PublicBaseURL       string
	APIBaseURL          string
	BrandURL            string
	DashboardOrigin     string
	ServeMode           ServeMode
	StrictModeration    bool
	OrphanSweepInterval time.Duration
	IntakeRateLimit     int
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
	SMTPFrom            string
}

// DatabaseOpener opens a database connection for the configured driver.
type DatabaseOpener func(storage.Config) (*gorm.DB, error)

// ServerApplication constructs and executes the server command.
type ServerApplication struct {
	configurationLoader *viper.Viper
	databaseOpener      DatabaseOpener
}

// NewServerApplication creates a ServerApplication with default dependencies.
func NewServerApplication() *ServerApplication {
	return &ServerApplication{
		configurationLoader: viper.New(),
		databaseOpener:      storage.OpenDatabase,
	}
}

// WithDatabaseOpener overrides the database opener dependency.
func (application *ServerApplication) WithDatabaseOpener(databaseOpener DatabaseOpener) *ServerApplication {
	application.databaseOpener = databaseOpener
	return application
}

// Command builds the Cobra command for the server.
func (application *ServerApplication) Command() (*cobra.Command, error) {
	rootCommand := &cobra.Command{
		Use:   commandUseName,
		Short: commandShortDescription,
		Long:  commandLongDescription,
		RunE:  application.runCommand,
	}

	if configurationErr := application.configureCommand(rootCommand); configurationErr != nil {
		return nil, configurationErr
	}

	return rootCommand, nil
}

func (application *ServerApplication) configureCommand(command *cobra.Command) error {
	flagSet := command.Flags()
	for _, definition := range configurationFlags {
		if defineErr := defineFlag(flagSet, definition); defineErr != nil {
			return defineErr
		}
		application.configurationLoader.SetDefault(definition.environmentKey, definition.defaultValue)
		if applyErr := application.applyEnvironmentConfiguration(flagSet, definition.environmentKey, definition.name); applyErr != nil {
			return applyErr
		}
		if bindErr := application.bindFlag(flagSet, definition.environmentKey, definition.name); bindErr != nil {
			return bindErr
		}
	}
	application.configurationLoader.AutomaticEnv()
	return nil
}

func defineFlag(flagSet *pflag.FlagSet, definition configurationFlag) error {
	switch defaultValue := definition.defaultValue.(type) {
	case string:
		flagSet.String(definition.name, defaultValue, definition.usage)
	case int:
		flagSet.Int(definition.name, defaultValue, definition.usage)
	case bool:
		flagSet.Bool(definition.name, defaultValue, definition.usage)
	case time.Duration:
		flagSet.Duration(definition.name, defaultValue, definition.usage)
	default:
		return fmt.Errorf(unsupportedFlagTypeMessage, definition.name, definition.defaultValue)
	}
	return nil
}

func (application *ServerApplication) bindFlag(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	flag := flagSet.Lookup(flagName)
	if flag == nil {
		return fmt.Errorf(flagNotDefinedMessage, flagName)
	}

	if bindErr := application.configurationLoader.BindPFlag(environmentKey, flag); bindErr != nil {
		return bindErr
	}

	return nil
}

func (application *ServerApplication) applyEnvironmentConfiguration(flagSet *pflag.FlagSet, environmentKey string, flagName string) error {
	environmentValue, environmentFound := os.LookupEnv(environmentKey)
	if !environmentFound {
		return nil
	}

	if setErr := flagSet.Set(flagName, environmentValue); setErr != nil {
		return fmt.Errorf("%s: %s: %w", environmentConfigurationErr, environmentKey, setErr)
	}

	return nil
}

func (application *ServerApplication) loadConfiguration() (ServerConfig, error) {
	loader := application.configurationLoader
	serveMode, serveModeErr := ParseServeMode(loader.GetString(environmentKeyServeMode))
	if serveModeErr != nil {
		return ServerConfig{}, serveModeErr
	}
	return ServerConfig{
		ApplicationAddress:  strings.TrimSpace(loader.GetString(environmentKeyAppAddress)),
		DatabaseDriver:      strings.TrimSpace(loader.GetString(environmentKeyDBDriver)),
		DatabaseDSN:         strings.TrimSpace(loader.GetString(environmentKeyDBDSN)),
		AuthSigningKey:      strings.TrimSpace(loader.GetString(environmentKeySigningKey)),
		AuthPublicKeyFile:   strings.TrimSpace(loader.GetString(environmentKeyPublicKeyFile)),
		AuthIssuer:          strings.TrimSpace(loader.GetString(environmentKeyIssuer)),
		AuthAudience:        strings.TrimSpace(loader.GetString(environmentKeyAudience)),
		PublicBaseURL:       strings.TrimRight(strings.TrimSpace(loader.GetString(environmentKeyPublicBaseURL)), "/"),
		APIBaseURL:          strings.TrimRight(strings.TrimSpace(loader.GetString(environmentKeyAPIBaseURL)), "/"),
		BrandURL:            strings.TrimSpace(loader.GetString(environmentKeyBrandURL)),
		DashboardOrigin:     strings.TrimRight(strings.TrimSpace(loader.GetString(environmentKeyDashboard)), "/"),
		ServeMode:           serveMode,
		StrictModeration:    loader.GetBool(environmentKeyStrict),
		OrphanSweepInterval: loader.GetDuration(environmentKeySweepInterval),
		IntakeRateLimit:     loader.GetInt(environmentKeyIntakeLimit),
		SMTPHost:            strings.TrimSpace(loader.GetString(environmentKeySMTPHost)),
		SMTPPort:            loader.GetInt(environmentKeySMTPPort),
		SMTPUsername:        strings.TrimSpace(loader.GetString(environmentKeySMTPUsername)),
		SMTPPassword:        loader.GetString(environmentKeySMTPPassword),
		SMTPFrom:            strings.TrimSpace(loader.GetString(environmentKeySMTPFrom)),
	}, nil
}

func (application *ServerApplication) runCommand(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return fmt.Errorf("%s: %s", unexpectedArgumentsMessage, strings.Join(arguments, " "))
	}

	serverConfig, configurationErr := application.loadConfiguration()
	if configurationErr != nil {
		return configurationErr
	}
	if validationErr := application.ensureRequiredConfiguration(serverConfig); validationErr != nil {
		return validationErr
	}
	command.SilenceUsage = true

	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return fmt.Errorf("%s: %w", loggerCreationErrorMessage, loggerErr)
	}
	defer func() {
		_ = logger.Sync()
	}()

	var database *gorm.DB
	if serverConfig.ServeMode.servesAPI() {
		openedDatabase, databaseErr := application.databaseOpener(storage.Config{
			DriverName:     serverConfig.DatabaseDriver,
			DataSourceName: serverConfig.DatabaseDSN,
		})
		if databaseErr != nil {
			logger.Error(loggerContextOpenDatabase, zap.Error(databaseErr))
			return databaseErr
		}
		if migrateErr := storage.AutoMigrate(openedDatabase); migrateErr != nil {
			logger.Error(loggerContextAutoMigrate, zap.Error(migrateErr))
			return migrateErr
		}
		database = openedDatabase
	}

	runtime, runtimeErr := newServerRuntime(serverConfig, database, logger)
	if runtimeErr != nil {
		return runtimeErr
	}

	signalContext, stopSignals := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	runtime.start(signalContext)

	httpServer := &http.Server{
		Addr:              serverConfig.ApplicationAddress,
		Handler:           runtime.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErrors := make(chan error, 1)
	go func() {
		logger.Info(logEventListening,
			zap.String(logFieldAddress, serverConfig.ApplicationAddress),
			zap.String(logFieldServeMode, string(serverConfig.ServeMode)))
		serveErrors <- httpServer.ListenAndServe()
	}()

	var serveErr error
	select {
	case serveErr = <-serveErrors:
	case <-signalContext.Done():
		logger.Info(logEventShuttingDown)
	}

	// Event streams only end once the broadcaster closes their channels.
	runtime.stop()
	shutdownContext, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if shutdownErr := httpServer.Shutdown(shutdownContext); shutdownErr != nil {
		logger.Error(loggerContextShutdown, zap.Error(shutdownErr))
	}
	runtime.drain()

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		logger.Error(loggerContextServer, zap.Error(serveErr))
		return serveErr
	}
	return nil
}

func (application *ServerApplication) ensureRequiredConfiguration(configuration ServerConfig) error {
	if !configuration.ServeMode.servesAPI() {
		return nil
	}

	var missingParameters []string

	if configuration.DatabaseDSN == "" {
		missingParameters = append(missingParameters, flagNameDatabaseDSN)
	}

	if configuration.AuthSigningKey == "" && configuration.AuthPublicKeyFile == "" {
		missingParameters = append(missingParameters, authKeyFlagDescription)
	}

	if configuration.PublicBaseURL == "" {
		missingParameters = append(missingParameters, flagNamePublicBaseURL)
	}

	if len(missingParameters) == 0 {
		return nil
	}

	return fmt.Errorf("%s: %s", missingConfigurationMessage, strings.Join(missingParameters, ", "))
}

func main() {
	application := NewServerApplication()
	rootCommand, commandErr := application.Command()
	if commandErr != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandInitializationFailure, commandErr)
		os.Exit(1)
	}

	if executeErr := rootCommand.Execute(); executeErr != nil {
		os.Exit(1)
	}
}
