package http

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quantumauth-io/quantum-credential-client/internal/backend"
	"github.com/quantumauth-io/quantum-credential-client/internal/core"
	"github.com/quantumauth-io/quantum-credential-client/internal/errkind"
	"github.com/quantumauth-io/quantum-credential-client/internal/ledger"
)

type Handler struct {
	rt      *core.Runtime
	backend *backend.Client
	network string
}

// NewHandler serves rt. backend may be nil when no rendering service is
// configured; network is the deployment's network label.
func NewHandler(rt *core.Runtime, b *backend.Client, network string) *Handler {
	return &Handler{rt: rt, backend: b, network: network}
}

// -------- DTOs for local client API --------

type issueReq struct {
	CredentialID   string `json:"credentialId"`
	RecipientName  string `json:"recipientName"  binding:"required"`
	RecipientEmail string `json:"recipientEmail" binding:"required,email"`
	IssuerName     string `json:"issuerName"     binding:"required"`
	CredentialType string `json:"credentialType" binding:"required"`
	Description    string `json:"description"`
	MetadataURI    string `json:"metadataURI"`
}

type txRes struct {
	CredentialID    string `json:"credentialId,omitempty"`
	IssuerAddress   string `json:"issuerAddress,omitempty"`
	TransactionHash string `json:"transactionHash"`
}

type authorizeReq struct {
	IssuerAddress string `json:"issuerAddress" binding:"required"`
}

type listRes struct {
	Credentials []ledger.Credential `json:"credentials"`
	Total       int                 `json:"total"`
}

func (h *Handler) Health(c *gin.Context) {
	s := h.rt.Session()
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"walletInstalled": h.rt.Installed(),
		"connected":       s.Connected,
	})
}

// GET /api/contract/info
func (h *Handler) ContractInfo(c *gin.Context) {
	l := h.rt.Ledger()
	c.JSON(http.StatusOK, gin.H{
		"contractAddress": l.Address().Hex(),
		"network":         h.network,
		"requiredChainId": h.rt.Guard().Required().HexID(),
		"abiAvailable":    l.Initialized(),
	})
}

// GET /api/session
func (h *Handler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.rt.Session())
}

// POST /api/session/connect
func (h *Handler) Connect(c *gin.Context) {
	account, err := h.rt.Connect(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "session": h.rt.Session()})
}

// POST /api/session/disconnect
func (h *Handler) Disconnect(c *gin.Context) {
	h.rt.Disconnect()
	c.JSON(http.StatusOK, h.rt.Session())
}

// POST /api/network/switch
func (h *Handler) SwitchNetwork(c *gin.Context) {
	if err := h.rt.SwitchNetwork(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.rt.Session())
}

// POST /api/credentials/issue
func (h *Handler) Issue(c *gin.Context) {
	var req issueReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if strings.TrimSpace(req.CredentialID) == "" {
		id, err := ledger.NewCredentialID()
		if err != nil {
			writeError(c, err)
			return
		}
		req.CredentialID = id
	}

	hash, err := h.rt.Ledger().Issue(c.Request.Context(), ledger.Draft{
		ID:             req.CredentialID,
		RecipientName:  req.RecipientName,
		RecipientEmail: req.RecipientEmail,
		IssuerName:     req.IssuerName,
		CredentialType: req.CredentialType,
		Description:    req.Description,
		MetadataURI:    req.MetadataURI,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txRes{CredentialID: strings.TrimSpace(req.CredentialID), TransactionHash: hash.Hex()})
}

// GET /api/credentials/verify/:id
func (h *Handler) Verify(c *gin.Context) {
	v, err := h.rt.Ledger().Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// GET /api/credentials/:id
func (h *Handler) Get(c *gin.Context) {
	cred, err := h.rt.Ledger().Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		// the ledger reverts for unknown ids
		if errkind.KindOf(err) == errkind.TransactionFailure {
			c.JSON(http.StatusNotFound, gin.H{JSONKeyError: HTTPErrorNotFoundText, JSONKeyKind: errkind.TransactionFailure.String()})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cred)
}

// POST /api/credentials/revoke/:id
func (h *Handler) Revoke(c *gin.Context) {
	id := c.Param("id")
	hash, err := h.rt.Ledger().Revoke(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txRes{CredentialID: id, TransactionHash: hash.Hex()})
}

// POST /api/issuers/authorize
func (h *Handler) AuthorizeIssuer(c *gin.Context) {
	var req authorizeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	issuer, ok := parseAddr(req.IssuerAddress)
	if !ok {
		badRequest(c, HTTPErrorInvalidAddrText)
		return
	}
	hash, err := h.rt.Ledger().AuthorizeIssuer(c.Request.Context(), issuer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txRes{IssuerAddress: issuer.Hex(), TransactionHash: hash.Hex()})
}

// GET /api/issuers/:address/authorized
func (h *Handler) IsAuthorized(c *gin.Context) {
	issuer, ok := parseAddr(c.Param("address"))
	if !ok {
		badRequest(c, HTTPErrorInvalidAddrText)
		return
	}
	authorized, err := h.rt.Ledger().IsAuthorizedIssuer(c.Request.Context(), issuer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issuerAddress": issuer.Hex(), "isAuthorized": authorized})
}

// GET /api/issuers/:address/credentials
func (h *Handler) IssuerCredentials(c *gin.Context) {
	issuer, ok := parseAddr(c.Param("address"))
	if !ok {
		badRequest(c, HTTPErrorInvalidAddrText)
		return
	}
	creds, err := h.rt.Ledger().CredentialsByIssuer(c.Request.Context(), issuer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listRes{Credentials: creds, Total: len(creds)})
}

// GET /api/recipients/:email/credentials
func (h *Handler) RecipientCredentials(c *gin.Context) {
	creds, err := h.rt.Ledger().CredentialsByRecipient(c.Request.Context(), c.Param("email"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listRes{Credentials: creds, Total: len(creds)})
}

// GET /api/credentials/:id/qr
func (h *Handler) QRCode(c *gin.Context) {
	if h.backend == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{JSONKeyError: HTTPErrorBackendUnsetText})
		return
	}
	qr, err := h.backend.QRCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, qr)
}

// GET /api/credentials/:id/pdf
func (h *Handler) PDF(c *gin.Context) {
	if h.backend == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{JSONKeyError: HTTPErrorBackendUnsetText})
		return
	}
	id := c.Param("id")
	rc, err := h.backend.PDF(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `attachment; filename="credential-`+id+`.pdf"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}
