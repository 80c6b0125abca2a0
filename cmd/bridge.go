package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/Ananth-NQI/appointlab-backend/internal/handlers"
	"github.com/Ananth-NQI/appointlab-backend/internal/routes"
	"github.com/Ananth-NQI/appointlab-backend/internal/services"
	"github.com/Ananth-NQI/appointlab-backend/internal/session"
)

func newBridgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bridge",
		Short: "Run only the WhatsApp session; replies come from the application",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge()
		},
	}
}

func runBridge() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
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
	replier := services.NewRemoteReplier(cfg.AppURL, cfg.AIReplySecret, nil)
	inbound := services.NewInboundProcessor(store, replier, messenger, cfg.BrandName, cfg.ReplyRatePerMin)
	mgr.OnInbound(inbound.Handle)

	h := routes.Handlers{
		Health: handlers.NewHealthHandler(cfg.BrandName+" WhatsApp Bridge", cfg.Version, mgr),
		Bridge: handlers.NewBridgeHandler(mgr, messenger),
	}
	if twilio != nil {
		h.Webhook = handlers.NewWhatsAppHandler(twilio)
	}

	app := newFiberApp(cfg.BrandName + " WhatsApp Bridge")
	routes.SetupRoutes(app, cfg, h)
	stopSession := runSession(mgr)

	log.Printf("🌉 WhatsApp bridge starting on port %s (replies from %s)", cfg.BridgePort, cfg.AppURL)
	return serveUntilSignal(app, cfg.BridgePort, stopSession)
}
