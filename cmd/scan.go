package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ananth-NQI/appointlab-backend/internal/services"
)

func newScanCmd() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one reminder scan through the bridge and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			gen, err := newGenerator(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			access := services.NewAccessFilter(store)
			bridge := newBridgeClient(cfg)
			dispatcher := newDispatcher(cfg, store, gen, bridge, access)

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			report, err := dispatcher.RunScan(ctx, time.Now())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Abort the scan after this long (0 disables).")
	return cmd
}
