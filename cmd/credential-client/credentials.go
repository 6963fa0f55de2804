package main

import (
	"bufio"
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/quantumauth-io/quantum-credential-client/internal/ledger"
	"github.com/quantumauth-io/quantum-credential-client/internal/prompt"
)

type txOutput struct {
	CredentialID    string `json:"credentialId,omitempty"`
	IssuerAddress   string `json:"issuerAddress,omitempty"`
	TransactionHash string `json:"transactionHash"`
}

type listOutput struct {
	Credentials []ledger.Credential `json:"credentials"`
	Total       int                 `json:"total"`
}

var issueDraft ledger.Draft

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a credential from the connected account",
	Long: `
Issue a credential from the connected account. A credential id is generated
when --id is not given. Missing required fields are asked for on the terminal.

Example
	credential-client issue \
		--recipient-name "John Doe" \
		--recipient-email john@example.com \
		--issuer-name "Example University" \
		--type "Bachelor's Degree"
	`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		d := issueDraft
		askMissing(cmd, &d)
		if strings.TrimSpace(d.ID) == "" {
			id, err := ledger.NewCredentialID()
			if err != nil {
				return err
			}
			d.ID = id
		}
		d.Normalize()
		if err := d.Validate(); err != nil {
			return err
		}

		return withApp(cmd, true, func(ctx context.Context, a *app) error {
			hash, err := a.rt.Ledger().Issue(ctx, d)
			if err != nil {
				return err
			}
			return printJSON(cmd, txOutput{CredentialID: d.ID, TransactionHash: hash.Hex()})
		})
	},
}

func askMissing(cmd *cobra.Command, d *ledger.Draft) {
	in := bufio.NewReader(cmd.InOrStdin())
	for _, f := range []struct {
		label string
		v     *string
	}{
		{"Recipient name", &d.RecipientName},
		{"Recipient email", &d.RecipientEmail},
		{"Issuer name", &d.IssuerName},
		{"Credential type", &d.CredentialType},
	} {
		if strings.TrimSpace(*f.v) == "" {
			*f.v = prompt.LineWithDefault(in, cmd.ErrOrStderr(), f.label, "")
		}
	}
}

var verifyCmd = &cobra.Command{
	Use:   "verify <credential-id>",
	Short: "Show the public verification summary of a credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			v, err := a.rt.Ledger().Verify(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, v)
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <credential-id>",
	Short: "Show the full ledger record of a credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			c, err := a.rt.Ledger().Get(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, c)
		})
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke <credential-id>",
	Short: "Revoke a credential issued by the connected account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, true, func(ctx context.Context, a *app) error {
			hash, err := a.rt.Ledger().Revoke(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, txOutput{CredentialID: args[0], TransactionHash: hash.Hex()})
		})
	},
}

var issuerCredentialsCmd = &cobra.Command{
	Use:   "issuer-credentials [address]",
	Short: "List the credentials issued by an address (default: the connected account)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var issuer *common.Address
		if len(args) == 1 {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			issuer = &addr
		}
		return withApp(cmd, issuer == nil, func(ctx context.Context, a *app) error {
			if issuer == nil {
				issuer = a.rt.Session().Account
			}
			creds, err := a.rt.Ledger().CredentialsByIssuer(ctx, *issuer)
			if err != nil {
				return err
			}
			return printJSON(cmd, listOutput{Credentials: creds, Total: len(creds)})
		})
	},
}

var recipientCredentialsCmd = &cobra.Command{
	Use:   "recipient-credentials <email>",
	Short: "List the credentials issued to an email address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			creds, err := a.rt.Ledger().CredentialsByRecipient(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, listOutput{Credentials: creds, Total: len(creds)})
		})
	},
}

var authorizedCmd = &cobra.Command{
	Use:   "authorized <address>",
	Short: "Tell whether an address may issue credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, false, func(ctx context.Context, a *app) error {
			ok, err := a.rt.Ledger().IsAuthorizedIssuer(ctx, addr)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"issuerAddress": addr.Hex(), "isAuthorized": ok})
		})
	},
}

var authorizeCmd = &cobra.Command{
	Use:   "authorize <address>",
	Short: "Authorize an issuer (contract owner only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, true, func(ctx context.Context, a *app) error {
			hash, err := a.rt.Ledger().AuthorizeIssuer(ctx, addr)
			if err != nil {
				return err
			}
			return printJSON(cmd, txOutput{IssuerAddress: addr.Hex(), TransactionHash: hash.Hex()})
		})
	},
}

func parseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Newf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func init() {
	flags := issueCmd.Flags()
	flags.StringVar(&issueDraft.ID, "id", "", "credential id (generated when empty)")
	flags.StringVar(&issueDraft.RecipientName, "recipient-name", "", "recipient name")
	flags.StringVar(&issueDraft.RecipientEmail, "recipient-email", "", "recipient email")
	flags.StringVar(&issueDraft.IssuerName, "issuer-name", "", "issuer name")
	flags.StringVar(&issueDraft.CredentialType, "type", "", "credential type, e.g. \"Bachelor's Degree\"")
	flags.StringVar(&issueDraft.Description, "description", "", "free-form description")
	flags.StringVar(&issueDraft.MetadataURI, "metadata-uri", "", "metadata URI")

	rootCmd.AddCommand(issueCmd, verifyCmd, getCmd, revokeCmd,
		issuerCredentialsCmd, recipientCredentialsCmd, authorizedCmd, authorizeCmd)
}
