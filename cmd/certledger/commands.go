package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"certledger/internal/certificate/models"
	"certledger/internal/issuance"
	jwttoken "certledger/internal/jwt_token"
	"certledger/internal/legacy"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// cliRequester identifies command-line calls in the verification log.
func cliRequester() models.Requester {
	return models.Requester{UserAgent: programName + "/" + version, Principal: "cli"}
}

type issuedLine struct {
	ID           models.CertificateID  `json:"id"`
	Pointer      models.ContentPointer `json:"pointer"`
	GatewayURL   string                `json:"gatewayUrl"`
	IndexPending bool                  `json:"indexPending,omitempty"`
}

func issueBatchCommand() *cobra.Command {
	var file, issuer string
	cmd := &cobra.Command{
		Use:   "issue-batch",
		Short: "Issue every valid row of a CSV file as one batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			log := commonRun(cfg)
			wallet, err := models.ParseWalletAddress(issuer)
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()
			payloads, rowErrs, err := issuance.ParseCSV(f)
			if err != nil {
				return err
			}
			for _, re := range rowErrs {
				log.Warn("skipping csv row", "line", re.Line, "error", re.Message)
			}
			if len(payloads) == 0 {
				return errors.New("csv contains no valid rows")
			}
			for i := range payloads {
				payloads[i].IssuerAddress = wallet
			}

			a, err := wire(cmd.Context(), *cfg, log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.issuance.IssueBatch(cmd.Context(), payloads)
			if err != nil {
				return err
			}
			out := make([]issuedLine, len(res.Items))
			for i, item := range res.Items {
				out[i] = issuedLine{
					ID:           item.ID,
					Pointer:      item.Pointer,
					GatewayURL:   item.GatewayURL,
					IndexPending: item.IndexPending,
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file to issue")
	cmd.Flags().StringVar(&issuer, "issuer", "", "issuing wallet address")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("issuer")
	return cmd
}

func resolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <certificate-id>",
		Short: "Print the merged view of one certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			log := commonRun(cfg)
			id, err := models.ParseCertificateID(args[0])
			if err != nil {
				return err
			}

			a, err := wire(cmd.Context(), *cfg, log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			view, err := a.resolution.Resolve(cmd.Context(), id, cliRequester())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
}

type legacyLine struct {
	Outcome   models.Outcome          `json:"outcome"`
	Message   string                  `json:"message"`
	States    []legacy.State          `json:"states"`
	Extracted models.ExtractedDetails `json:"extracted"`
	RecordID  string                  `json:"recordId,omitempty"`
	Logged    bool                    `json:"logged"`
}

func verifyLegacyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-legacy <document>",
		Short: "Classify a scanned or text certificate against the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			log := commonRun(cfg)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document: %w", err)
			}
			doc := legacy.Document{
				Filename:    filepath.Base(args[0]),
				ContentType: documentType(args[0], data),
				Data:        data,
			}

			a, err := wire(cmd.Context(), *cfg, log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.legacy.Verify(cmd.Context(), doc, cliRequester(), func(p float64) {
				log.Debug("recognition progress", "progress", p)
			})
			out := legacyLine{
				Outcome:   res.Outcome,
				Message:   res.Message,
				States:    res.States,
				Extracted: res.Extracted,
				Logged:    res.Logged,
			}
			if res.Record != nil {
				out.RecordID = res.Record.ID.String()
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

// documentType prefers the file extension and falls back to sniffing.
func documentType(path string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		if mt, _, err := mime.ParseMediaType(t); err == nil {
			return mt
		}
	}
	mt, _, err := mime.ParseMediaType(http.DetectContentType(data))
	if err != nil {
		return "application/octet-stream"
	}
	return mt
}

func reconcileCommand() *cobra.Command {
	var (
		rebuild bool
		from    uint64
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Drain the reconciliation queue, or rebuild the index from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			log := commonRun(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := wire(ctx, *cfg, log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if !rebuild {
				return a.worker.Run(ctx, a.source)
			}
			report, err := a.worker.Rebuild(ctx, models.CertificateID(from))
			if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
				return perr
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d certificates could not be reconciled", len(report.Failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "walk the ledger and rewrite every index row")
	cmd.Flags().Uint64Var(&from, "from", 0, "first certificate id to rebuild")
	return cmd
}

func tokenCommand() *cobra.Command {
	var (
		wallet string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development access token for a wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSigningKey == "" {
				return errors.New("auth.jwtSigningKey is not configured")
			}
			addr, err := models.ParseWalletAddress(wallet)
			if err != nil {
				return err
			}
			svc := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
			token, err := svc.GenerateAccessToken(addr, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&wallet, "wallet", "", "wallet address placed in the subject claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("wallet")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", programName, version)
			return err
		},
	}
}
