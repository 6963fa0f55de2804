// Package ledger is the typed client over the CredentialVerification
// contract.
package ledger

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidArgument marks caller mistakes caught before any ledger call.
var ErrInvalidArgument = errors.New("invalid argument")

// Credential is the full on-ledger record.
type Credential struct {
	ID             string         `json:"credentialId"`
	RecipientName  string         `json:"recipientName"`
	RecipientEmail string         `json:"recipientEmail"`
	IssuerName     string         `json:"issuerName"`
	CredentialType string         `json:"credentialType"`
	Description    string         `json:"description"`
	IssueDate      time.Time      `json:"issueDate"`
	Issuer         common.Address `json:"issuer"`
	IsValid        bool           `json:"isValid"`
	MetadataURI    string         `json:"metadataURI"`
}

// Verification is the public summary of a credential. An unknown id yields
// Exists=false and zero values elsewhere.
type Verification struct {
	Exists         bool      `json:"exists"`
	IsValid        bool      `json:"isValid"`
	RecipientName  string    `json:"recipientName"`
	IssuerName     string    `json:"issuerName"`
	CredentialType string    `json:"credentialType"`
	IssueDate      time.Time `json:"issueDate"`
}

// Draft is the input of Issue.
type Draft struct {
	ID             string `json:"credentialId"`
	RecipientName  string `json:"recipientName"`
	RecipientEmail string `json:"recipientEmail"`
	IssuerName     string `json:"issuerName"`
	CredentialType string `json:"credentialType"`
	Description    string `json:"description"`
	MetadataURI    string `json:"metadataURI"`
}

// Normalize trims every field.
func (d *Draft) Normalize() {
	d.ID = strings.TrimSpace(d.ID)
	d.RecipientName = strings.TrimSpace(d.RecipientName)
	d.RecipientEmail = strings.TrimSpace(d.RecipientEmail)
	d.IssuerName = strings.TrimSpace(d.IssuerName)
	d.CredentialType = strings.TrimSpace(d.CredentialType)
	d.Description = strings.TrimSpace(d.Description)
	d.MetadataURI = strings.TrimSpace(d.MetadataURI)
}

func (d Draft) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"credentialId":   d.ID,
		"recipientName":  d.RecipientName,
		"recipientEmail": d.RecipientEmail,
		"issuerName":     d.IssuerName,
		"credentialType": d.CredentialType,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Wrapf(ErrInvalidArgument, "missing %s", strings.Join(missing, ", "))
	}
	if !strings.Contains(d.RecipientEmail, "@") {
		return errors.Wrapf(ErrInvalidArgument, "recipient email %q", d.RecipientEmail)
	}
	return nil
}

const idSuffixLen = 5

var idSuffixSpace = new(big.Int).Exp(big.NewInt(36), big.NewInt(idSuffixLen), nil)

// NewCredentialID returns "<unix millis>-<base36 suffix>", e.g.
// "1712345678901-ab3x9".
func NewCredentialID() (string, error) {
	return newCredentialID(time.Now())
}

func newCredentialID(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, idSuffixSpace)
	if err != nil {
		return "", errors.Wrap(err, "credential id suffix")
	}
	suffix := strconv.FormatInt(n.Int64(), 36)
	if pad := idSuffixLen - len(suffix); pad > 0 {
		suffix = strings.Repeat("0", pad) + suffix
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix), nil
}

// Deployment is the contract-address.json file written by the deploy script.
type Deployment struct {
	Address        common.Address `json:"address"`
	Network        string         `json:"network"`
	Deployer       common.Address `json:"deployer"`
	DeploymentTime time.Time      `json:"deploymentTime"`
}

func LoadDeployment(path string) (*Deployment, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read deployment %s", path)
	}
	var d Deployment
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, errors.Wrapf(err, "parse deployment %s", path)
	}
	if d.Address == (common.Address{}) {
		return nil, errors.Newf("deployment %s has no contract address", path)
	}
	return &d, nil
}

func unixTime(v *big.Int) time.Time {
	if v == nil || v.Sign() <= 0 || !v.IsInt64() {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0).UTC()
}
