package localwallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/quantumauth-io/quantum-credential-client/internal/provider"
)

type ApprovalKind int

const (
	ApproveConnect ApprovalKind = iota + 1
	ApproveSwitchChain
	ApproveAddChain
	ApproveTransaction
)

func (k ApprovalKind) String() string {
	switch k {
	case ApproveConnect:
		return "connect"
	case ApproveSwitchChain:
		return "switch network"
	case ApproveAddChain:
		return "add network"
	case ApproveTransaction:
		return "send transaction"
	}
	return fmt.Sprintf("approval(%d)", int(k))
}

// Approval is what the user is asked to confirm.
type Approval struct {
	Kind    ApprovalKind
	Account common.Address
	Network Network
	Tx      *provider.TransactionArgs
}

// Approver decides on requests that a browser wallet would show a popup for.
type Approver interface {
	Approve(ctx context.Context, a Approval) (bool, error)
}

// AutoApprove accepts everything. Meant for an unattended backend signer.
type AutoApprove struct{}

func (AutoApprove) Approve(context.Context, Approval) (bool, error) { return true, nil }

// Prompt asks on a terminal and accepts only "y" or "yes".
type Prompt struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

func (p *Prompt) Approve(ctx context.Context, a Approval) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprint(p.out, describe(a))

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return false, err
	}
	s := strings.TrimSpace(strings.ToLower(line))
	return s == "y" || s == "yes", nil
}

func describe(a Approval) string {
	var b strings.Builder
	switch a.Kind {
	case ApproveConnect:
		fmt.Fprintf(&b, "Connect account %s?", a.Account.Hex())
	case ApproveSwitchChain:
		fmt.Fprintf(&b, "Switch to %s (%s)?", a.Network.Name, a.Network.ChainIDHex)
	case ApproveAddChain:
		fmt.Fprintf(&b, "Add network %s (%s) at %s?", a.Network.Name, a.Network.ChainIDHex, a.Network.RPCURL)
	case ApproveTransaction:
		fmt.Fprintf(&b, "Send transaction from %s", a.Account.Hex())
		if a.Tx != nil && a.Tx.To != nil {
			fmt.Fprintf(&b, " to %s", a.Tx.To.Hex())
		}
		if a.Tx != nil {
			fmt.Fprintf(&b, " (%d bytes of data)", len(a.Tx.Data))
		}
		fmt.Fprintf(&b, " on %s?", a.Network.Name)
	default:
		b.WriteString(a.Kind.String() + "?")
	}
	b.WriteString(" [y/N]: ")
	return b.String()
}
