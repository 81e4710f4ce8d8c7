package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	"github.com/salonpos/paxbridge/bridge"
	"github.com/salonpos/paxbridge/internal/license"
	"github.com/salonpos/paxbridge/internal/pax"
	"github.com/salonpos/paxbridge/internal/paxsim"
	"github.com/salonpos/paxbridge/terminal"
)

func saleCmd(logger func() *slog.Logger) *cobra.Command {
	var (
		cfg        terminal.Config
		invoice    string
		reference  string
		licenseURL string
	)

	cmd := &cobra.Command{
		Use:   "sale <amount>",
		Short: "Run a credit sale on a terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[0], err)
			}

			var opts []terminal.Option
			if licenseURL != "" {
				opts = append(opts, terminal.WithLicenseValidator(license.New(licenseURL, nil)))
			}
			client, err := terminal.NewClient(logger(), cfg, opts...)
			if err != nil {
				return err
			}

			resp, err := client.ProcessSale(cmd.Context(), pax.SaleRequest{
				Amount:          amount,
				InvoiceNumber:   invoice,
				ReferenceNumber: reference,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&cfg.IP, "ip", "", "Terminal IP address")
	cmd.Flags().StringVar(&cfg.Port, "port", terminal.DefaultPort, "Terminal port")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", terminal.DefaultTimeout, "How long to wait for the customer")
	cmd.Flags().StringVar(&cfg.LicenseKey, "license-key", "", "License key for this terminal")
	cmd.Flags().StringVar(&licenseURL, "license-url", "", "License server base URL")
	cmd.Flags().StringVar(&invoice, "invoice", "", "Invoice number")
	cmd.Flags().StringVar(&reference, "reference", pax.DefaultReferenceNumber, "Reference number")
	cmd.MarkFlagRequired("ip")

	return cmd
}

func encodeCmd() *cobra.Command {
	var invoice, reference string

	cmd := &cobra.Command{
		Use:   "encode <amount>",
		Short: "Print the sale frame without sending it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[0], err)
			}
			frame, err := pax.NewSaleFrame(pax.SaleRequest{
				Amount:          amount,
				InvoiceNumber:   invoice,
				ReferenceNumber: reference,
			})
			if err != nil {
				return err
			}
			envelope, err := frame.Envelope()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "raw:     ", pax.HexDump(frame.Raw()))
			fmt.Fprintln(out, "tokens:  ", frame.Encoded())
			fmt.Fprintf(out, "lrc:      %02x\n", frame.LRC())
			fmt.Fprintln(out, "envelope:", envelope)
			return nil
		},
	}

	cmd.Flags().StringVar(&invoice, "invoice", "", "Invoice number")
	cmd.Flags().StringVar(&reference, "reference", pax.DefaultReferenceNumber, "Reference number")

	return cmd
}

func decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode [base64]",
		Short: "Parse a terminal response (reads stdin when no argument is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body []byte
			if len(args) == 1 {
				body = []byte(args[0])
			} else {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading stdin: %w", err)
				}
				body = b
			}
			return printJSON(cmd.OutOrStdout(), pax.ParseResponse(body))
		},
	}
}

func simulateCmd(logger func() *slog.Logger) *cobra.Command {
	var (
		addr    string
		code    string
		message string
		delay   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Serve a fake terminal for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()
			sim := paxsim.New(log)
			sim.ResponseCode = code
			sim.Message = message
			sim.Delay = delay

			srv := &http.Server{Addr: addr, Handler: sim, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				srv.Close()
			}()

			log.Info("simulator listening", slog.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:"+terminal.DefaultPort, "Listen address")
	cmd.Flags().StringVar(&code, "code", paxsim.ResponseCodeApproved, "Response code to answer with")
	cmd.Flags().StringVar(&message, "message", paxsim.MessageApproved, "Response message to answer with")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Delay before answering")

	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the bridge configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default bridge config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "paxbridge.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := bridge.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

