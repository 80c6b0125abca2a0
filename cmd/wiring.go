package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Ananth-NQI/appointlab-backend/database"
	"github.com/Ananth-NQI/appointlab-backend/internal/ai"
	"github.com/Ananth-NQI/appointlab-backend/internal/config"
	"github.com/Ananth-NQI/appointlab-backend/internal/jobs"
	"github.com/Ananth-NQI/appointlab-backend/internal/metrics"
	"github.com/Ananth-NQI/appointlab-backend/internal/services"
	"github.com/Ananth-NQI/appointlab-backend/internal/session"
	"github.com/Ananth-NQI/appointlab-backend/internal/storage"
)

func loadConfig() (*config.Config, error) {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	metrics.Init()
	return cfg, nil
}

func openStore(cfg *config.Config) (storage.Store, error) {
	if cfg.UseMemoryStore {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		return storage.NewMemoryStore(), nil
	}

	log.Println("📦 Connecting to PostgreSQL database...")
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, err
	}

	store := storage.NewDatabaseStore(db)
	log.Println("🔄 Running database migrations...")
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Println("✅ Database migrations completed!")
	return store, nil
}

// newGenerator builds the provider chain: OpenRouter first, then Gemini.
// Missing credentials leave a provider out.
func newGenerator(ctx context.Context, cfg *config.Config) (*ai.Generator, error) {
	policy, err := ai.PolicyByName(cfg.TopicPolicy)
	if err != nil {
		return nil, err
	}

	var providers []ai.Provider
	if p := ai.NewOpenRouterProvider(ai.OpenRouterConfig{
		APIKey:  cfg.OpenRouterAPIKey,
		BaseURL: cfg.OpenRouterBaseURL,
		Models:  cfg.OpenRouterModels,
		Referer: cfg.AppURL,
		Title:   cfg.BrandName,
	}); p != nil {
		providers = append(providers, p)
	}

	gemini, err := ai.NewGeminiProvider(ctx, ai.GeminiConfig{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
	})
	if err != nil {
		return nil, err
	}
	if gemini != nil {
		providers = append(providers, gemini)
	}

	if len(providers) == 0 {
		log.Println("⚠️  No AI provider configured - using fixed replies")
	}
	return ai.NewGenerator(policy, cfg.ProviderTimeout, providers...), nil
}

// newTransport returns the configured transport. The Twilio transport is
// also returned on its own since it is fed by the webhook.
func newTransport(cfg *config.Config) (session.Transport, *session.TwilioTransport, error) {
	if cfg.Transport == config.TransportTwilio {
		t, err := session.NewTwilioTransport(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
		if err != nil {
			return nil, nil, err
		}
		return t, t, nil
	}
	return session.NewGatewayTransport(cfg.GatewayURL, cfg.GatewayToken), nil, nil
}

// sendSlack keeps callers of the bridge waiting a little longer than the
// bridge's own send timeout, so a send it completes is not reported as failed
const sendSlack = 5 * time.Second

func newBridgeClient(cfg *config.Config) *services.BridgeClient {
	return services.NewBridgeClient(cfg.BridgeURL, &http.Client{Timeout: cfg.SendTimeout + sendSlack})
}

func newMailer(cfg *config.Config) services.Mailer {
	if !cfg.SMTPEnabled() {
		log.Println("⚠️  SMTP not configured - emails are only logged")
		return services.LogMailer{}
	}
	return services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
}

func newDispatcher(cfg *config.Config, store storage.Store, gen *ai.Generator, outbound services.Outbound, access *services.AccessFilter) *jobs.Dispatcher {
	return jobs.NewDispatcher(jobs.DispatcherConfig{
		Store:     store,
		Generator: gen,
		Outbound:  outbound,
		Access:    access,
		Mailer:    newMailer(cfg),
		Emails:    services.EmailComposer{Brand: cfg.BrandName, BaseURL: cfg.AppURL},
		Brand:     cfg.BrandName,
		Location:  cfg.Location,

		GenerateBudget: cfg.GenerateBudget(),
		SendTimeout:    cfg.SendTimeout + sendSlack,
	})
}

// startScheduler returns nil when the in-process scheduler is disabled
func startScheduler(cfg *config.Config, d *jobs.Dispatcher) (*jobs.ReminderScheduler, error) {
	if !cfg.SchedulerEnabled {
		log.Println("⏰ In-process scheduler disabled - expecting an external trigger")
		return nil, nil
	}
	s := jobs.NewReminderScheduler(d, cfg.SchedulerInterval)
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

func newFiberApp(name string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: name,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	return app
}

// serveUntilSignal listens on port until SIGINT or SIGTERM, then runs
// the shutdown steps in order and stops the server.
func serveUntilSignal(app *fiber.App, port string, shutdown ...func()) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(c)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		for _, step := range shutdown {
			step()
		}
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	return app.Listen(":" + port)
}

// runSession keeps the session connected in the background. The returned
// stop function disconnects it and waits for inbound handlers.
func runSession(mgr *session.Manager) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := mgr.Run(ctx); err != nil {
			log.Printf("❌ WhatsApp session stopped: %v", err)
		}
	}()

	return func() {
		log.Println("⏹️  Disconnecting WhatsApp session...")
		cancel()
		<-done
		if err := mgr.Close(); err != nil {
			log.Printf("⚠️  WhatsApp session close: %v", err)
		}
	}
}

func stopScheduler(s *jobs.ReminderScheduler) func() {
	return func() {
		if s != nil {
			log.Println("⏹️  Stopping reminder scheduler...")
			s.Stop()
		}
	}
}
