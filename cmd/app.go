package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/Ananth-NQI/appointlab-backend/internal/handlers"
	"github.com/Ananth-NQI/appointlab-backend/internal/routes"
	"github.com/Ananth-NQI/appointlab-backend/internal/services"
)

func newAppCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "app",
		Short: "Run only the application; messages go out through the bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd.Context())
		},
	}
}

func runApp(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}

	access := services.NewAccessFilter(store)
	bridge := newBridgeClient(cfg)
	replies := services.NewReplyService(store, access, gen, cfg.Location)
	dispatcher := newDispatcher(cfg, store, gen, bridge, access)
	scheduler, err := startScheduler(cfg, dispatcher)
	if err != nil {
		return err
	}

	app := newFiberApp(cfg.BrandName + " Backend v" + cfg.Version)
	routes.SetupRoutes(app, cfg, routes.Handlers{
		Health:    handlers.NewHealthHandler(cfg.BrandName+" Backend", cfg.Version, nil),
		AIReply:   handlers.NewAIReplyHandler(replies),
		Reminders: handlers.NewReminderHandler(dispatcher),
		Messages:  handlers.NewMessageHandler(store, bridge, cfg.BrandName),
		Settings:  handlers.NewSettingsHandler(store, access),
		WhatsApp:  handlers.NewBridgeProxyHandler(bridge),
	})

	log.Printf("🚀 %s application starting on port %s (bridge at %s)", cfg.BrandName, cfg.Port, cfg.BridgeURL)
	return serveUntilSignal(app, cfg.Port, stopScheduler(scheduler))
}
