package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/Ananth-NQI/appointlab-backend/internal/handlers"
	"github.com/Ananth-NQI/appointlab-backend/internal/routes"
	"github.com/Ananth-NQI/appointlab-backend/internal/services"
	"github.com/Ananth-NQI/appointlab-backend/internal/session"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the WhatsApp session and the application in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
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
	transport, twilio, err := newTransport(cfg)
	if err != nil {
		return err
	}

	access := services.NewAccessFilter(store)
	mgr := session.NewManager(transport, session.WithSendTimeout(cfg.SendTimeout))
	messenger := services.NewMessenger(store, mgr, access)
	replies := services.NewReplyService(store, access, gen, cfg.Location)
	inbound := services.NewInboundProcessor(store, replies, messenger, cfg.BrandName, cfg.ReplyRatePerMin)
	mgr.OnInbound(inbound.Handle)

	dispatcher := newDispatcher(cfg, store, gen, messenger, access)
	scheduler, err := startScheduler(cfg, dispatcher)
	if err != nil {
		return err
	}

	h := routes.Handlers{
		Health:    handlers.NewHealthHandler(cfg.BrandName+" Backend", cfg.Version, mgr),
		Bridge:    handlers.NewBridgeHandler(mgr, messenger),
		AIReply:   handlers.NewAIReplyHandler(replies),
		Reminders: handlers.NewReminderHandler(dispatcher),
		Messages:  handlers.NewMessageHandler(store, messenger, cfg.BrandName),
		Settings:  handlers.NewSettingsHandler(store, access),
		WhatsApp:  handlers.NewBridgeProxyHandler(handlers.LocalBridge(mgr)),
	}
	if twilio != nil {
		h.Webhook = handlers.NewWhatsAppHandler(twilio)
	}

	app := newFiberApp(cfg.BrandName + " Backend v" + cfg.Version)
	routes.SetupRoutes(app, cfg, h)
	stopSession := runSession(mgr)

	log.Println("========================================")
	log.Printf("🚀 %s starting on port %s", cfg.BrandName, cfg.Port)
	log.Printf("📱 WhatsApp transport: %s", cfg.Transport)
	log.Printf("🤖 Topic policy: %s", gen.Policy().Name())
	log.Println("========================================")

	return serveUntilSignal(app, cfg.Port, stopScheduler(scheduler), stopSession)
}
