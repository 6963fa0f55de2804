package main

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/quantumauth-io/quantum-go-utils/log"
	"github.com/spf13/cobra"

	"github.com/quantumauth-io/quantum-credential-client/internal/backend"
)

var pdfOut string

var qrCmd = &cobra.Command{
	Use:   "qr <credential-id>",
	Short: "Fetch the verification QR code from the rendering backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := renderingBackend()
		if err != nil {
			return err
		}
		qr, err := b.QRCode(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, qr)
	},
}

var pdfCmd = &cobra.Command{
	Use:   "pdf <credential-id>",
	Short: "Download the credential certificate PDF from the rendering backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := renderingBackend()
		if err != nil {
			return err
		}
		out := pdfOut
		if out == "" {
			out = "credential-" + args[0] + ".pdf"
		}
		return downloadPDF(cmd.Context(), b, args[0], out)
	},
}

// the backend is independent of the wallet, so no runtime is built here
func renderingBackend() (*backend.Client, error) {
	if cfg.Backend.URL == "" {
		return nil, errors.New("backend.url is not configured")
	}
	return backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
}

func downloadPDF(ctx context.Context, b *backend.Client, id, path string) error {
	rc, err := b.PDF(ctx, id)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return errors.Wrapf(err, "write %s", path)
	}
	log.Info("certificate saved", "credential_id", id, "path", path, "bytes", n)
	return nil
}

func init() {
	pdfCmd.Flags().StringVarP(&pdfOut, "out", "o", "", "output file (default: credential-<id>.pdf)")
	rootCmd.AddCommand(qrCmd, pdfCmd)
}
