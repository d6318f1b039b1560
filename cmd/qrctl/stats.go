package main

import (
	"fmt"

	appserver "github.com/sifan077/FlexQR/internal/app/server"
	"github.com/sifan077/FlexQR/internal/app/service"
	"github.com/sifan077/FlexQR/internal/infra/logger"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var shortCode string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print scan analytics for a short code.",
		Long: `Print total scans, the daily series, top countries and device classes
for one QR code.

Example:
  qrctl stats --code abc123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend, err := appserver.OpenBackend(ctx, cfg, logger.L())
			if err != nil {
				return err
			}
			defer backend.Close()

			qr, err := service.NewQrCodeService(backend.QrCodes, nil).GetQrCodeByShortCode(ctx, shortCode)
			if err != nil {
				return err
			}
			summary, err := service.NewAnalyticsService(backend.Scans, backend.Stats).Summary(ctx, qr)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Stats for %s (%s)\n", qr.ShortCode, qr.Name)
			fmt.Fprintf(out, "Destination: %s\n", qr.DestinationURL)
			if qr.HasScanLimit() {
				fmt.Fprintf(out, "Scans:       %d / %d\n", summary.TotalScans, *qr.ScanLimit)
			} else {
				fmt.Fprintf(out, "Scans:       %d\n", summary.TotalScans)
			}

			fmt.Fprintln(out, "\nBy day:")
			for _, d := range summary.ByDay {
				fmt.Fprintf(out, "  %s  %d\n", d.Day, d.Scans)
			}
			fmt.Fprintln(out, "\nTop countries:")
			for _, c := range summary.ByCountry {
				fmt.Fprintf(out, "  %-12s %d\n", c.Name, c.Value)
			}
			fmt.Fprintln(out, "\nDevices:")
			for _, d := range summary.ByDevice {
				fmt.Fprintf(out, "  %-12s %d\n", d.Name, d.Value)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&shortCode, "code", "c", "", "short code to report on")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}
