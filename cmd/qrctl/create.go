package main

import (
	"fmt"

	"github.com/sifan077/FlexQR/internal/app/model"
	appserver "github.com/sifan077/FlexQR/internal/app/server"
	"github.com/sifan077/FlexQR/internal/app/service"
	"github.com/sifan077/FlexQR/internal/infra/logger"
	"github.com/spf13/cobra"
)

func newCreateCmd() *cobra.Command {
	var (
		input     service.CreateQrCodeInput
		scanLimit int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a QR code for a destination URL.",
		Long: `Create a QR code and print its short URL.

Example:
  qrctl create --owner alice --url "https://example.com/spring" --source poster --limit 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("limit") {
				input.ScanLimit = &scanLimit
			}

			ctx := cmd.Context()
			backend, err := appserver.OpenBackend(ctx, cfg, logger.L())
			if err != nil {
				return err
			}
			defer backend.Close()

			codes := service.NewShortCodeGenerator(cfg.Redirect.CodeLength, 0)
			qr, err := service.NewQrCodeService(backend.QrCodes, codes).CreateQrCode(ctx, input)
			if err != nil {
				return err
			}

			printQrCode(cmd, qr)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&input.DestinationURL, "url", "u", "", "destination URL")
	flags.StringVar(&input.OwnerID, "owner", "", "owner id the QR code belongs to")
	flags.StringVarP(&input.Name, "name", "n", "", "display name")
	flags.StringVarP(&input.ShortCode, "code", "c", "", "explicit short code (generated when empty)")
	flags.IntVar(&scanLimit, "limit", 0, "maximum number of scans")
	flags.StringVar(&input.Campaign.Source, "source", "", "utm_source")
	flags.StringVar(&input.Campaign.Medium, "medium", "", "utm_medium")
	flags.StringVar(&input.Campaign.Name, "campaign", "", "utm_campaign")
	flags.StringVar(&input.Campaign.Term, "term", "", "utm_term")
	flags.StringVar(&input.Campaign.Content, "content", "", "utm_content")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func printQrCode(cmd *cobra.Command, qr *model.QrCode) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "QR code created\n")
	fmt.Fprintf(out, "ID:          %s\n", qr.ID)
	fmt.Fprintf(out, "Name:        %s\n", qr.Name)
	fmt.Fprintf(out, "Short code:  %s\n", qr.ShortCode)
	fmt.Fprintf(out, "Short URL:   %s/%s\n", cfg.Server.BaseURL, qr.ShortCode)
	fmt.Fprintf(out, "Destination: %s\n", qr.DestinationURL)
	if qr.HasScanLimit() {
		fmt.Fprintf(out, "Scan limit:  %d\n", *qr.ScanLimit)
	}
}
