package cmd

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"photo-studio-backend/docs"
	"photo-studio-backend/internal/catalog"
	"photo-studio-backend/internal/config"
	"photo-studio-backend/internal/database"
	"photo-studio-backend/internal/events"
	"photo-studio-backend/internal/fal"
	"photo-studio-backend/internal/generation"
	"photo-studio-backend/internal/handlers"
	"photo-studio-backend/internal/logging"
	"photo-studio-backend/internal/middleware"
	"photo-studio-backend/internal/services"
	"photo-studio-backend/internal/store"
	"photo-studio-backend/internal/store/memory"
	"photo-studio-backend/internal/supabase"
	"photo-studio-backend/internal/templating"
)

const (
	eventQueueSize    = 256
	eventForwardLimit = 5 * time.Second
	templateCacheSize = 256
	webhookTokenTTL   = 24 * time.Hour
	shutdownTimeout   = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default).",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logging.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Update Swagger docs with dynamic base URL
	if cfg.BaseURL != "" {
		if baseURL, err := url.Parse(cfg.BaseURL); err == nil {
			docs.SwaggerInfo.Host = baseURL.Host
			if baseURL.Scheme == "https" {
				docs.SwaggerInfo.Schemes = []string{"https", "http"}
			} else {
				docs.SwaggerInfo.Schemes = []string{"http", "https"}
			}
		}
	}

	st, pinger, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	models, err := catalog.Load(afero.NewOsFs(), cfg.ModelCatalogPath)
	if err != nil {
		return err
	}
	falClient := fal.NewClient(cfg.FalQueueURL, cfg.FalAPIKey)

	broker := events.NewBroker(eventQueueSize)
	defer broker.Close()
	if err := events.LogEvents(broker); err != nil {
		return err
	}

	var mirror services.ImageMirror
	if cfg.SupabaseEnabled() {
		supabaseClient, err := supabase.NewClient(cfg)
		if err != nil {
			return err
		}
		if err := events.Forward(broker, supabaseClient.Realtime(), eventForwardLimit); err != nil {
			return err
		}
		mirror = services.NewStorageService(falClient, supabaseClient.Storage(), models.MaxDownloadSize())
	} else {
		log.Warn("SUPABASE_URL not set: photos keep provider URLs and events stay in-process")
	}

	registry, err := generation.NewRegistry(cfg.JobCacheSize, broker)
	if err != nil {
		return err
	}
	tokens := middleware.NewWebhookTokens(cfg.FalWebhookSecret)
	adapter := generation.NewAdapter(falClient, models, registry, webhookCallback(cfg.WebhookCallbackURL, tokens))
	engine := templating.NewEngine(templateCacheSize)

	router := handlers.NewRouter(handlers.RouterConfig{
		Projects:  services.NewProjectService(st, mirror),
		Albums:    services.NewAlbumService(st, mirror),
		Templates: services.NewTemplateService(st, engine, models),
		Photos: services.NewPhotoService(st, services.PhotoServiceOptions{
			Catalog:     models,
			Generator:   adapter,
			Engine:      engine,
			Mirror:      mirror,
			Publisher:   broker,
			MaxPageSize: cfg.MaxPageSize,
		}),
		Adapter: adapter,
		Tokens:  tokens,
		Pinger:  pinger,
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"port": cfg.Port, "store": cfg.StoreDriver}).Info("server starting")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore returns the configured store and, for postgres, the pinger used
// by the health check. Pending migrations are applied before serving.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, handlers.Pinger, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store: data is lost on restart")
		return memory.New(), nil, nil
	}

	migrator, err := database.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	defer migrator.Close()
	if err := migrator.Run(ctx); err != nil {
		return nil, nil, err
	}

	client, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return client, client, nil
}

// webhookCallback returns nil when no callback URL is configured, leaving
// jobs to be advanced by polling.
func webhookCallback(callbackURL string, tokens *middleware.WebhookTokens) generation.CallbackFunc {
	if callbackURL == "" {
		return nil
	}
	if !tokens.Enabled() {
		log.Warn("FAL_WEBHOOK_SECRET not set: webhook deliveries are not authenticated")
		return func(string) (string, error) { return callbackURL, nil }
	}
	return func(nonce string) (string, error) {
		token, err := tokens.Issue(nonce, webhookTokenTTL)
		if err != nil {
			return "", err
		}
		u, err := url.Parse(callbackURL)
		if err != nil {
			return "", err
		}
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
}
