// Package transfers implements the token-distribution endpoint: a single
// multisend contract call funded from the caller's wallet or, in manager
// mode, from the organization treasury.
package transfers

import (
	"context"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avaloyal/backend/internal/middleware"
	"github.com/avaloyal/backend/internal/models"
	"github.com/avaloyal/backend/internal/store"
	"github.com/avaloyal/backend/pkg/response"
)

// Store is the document-store surface the transfer handler needs.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	BatchGetUsers(ctx context.Context, ids []string) (map[string]*models.User, error)
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	PutTransaction(ctx context.Context, tx *models.Transaction) error
}

// Chain is the chain-access surface the transfer handler needs.
type Chain interface {
	Multisend(ctx context.Context, senderKeyHex, contract string, recipients []string, amounts []*big.Int) (string, error)
}

// Notifier sends best-effort SMS notifications.
type Notifier interface {
	Send(ctx context.Context, phone, message string) error
}

// Recipient is one target of a multisend request. Amount is a decimal string
// in token base units.
type Recipient struct {
	UserID string `json:"user_id" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// CreateRequest is the body for POST /orgs/:id/transfers.
type CreateRequest struct {
	Recipients  []Recipient `json:"recipients" binding:"required"`
	ManagerMode bool        `json:"manager_mode"`
	Message     string      `json:"message"`
}

// Handler handles token-distribution endpoints.
type Handler struct {
	store  Store
	chain  Chain
	sms    Notifier
	logger *zap.Logger
}

// NewHandler creates a transfers handler.
func NewHandler(st Store, ch Chain, sms Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, chain: ch, sms: sms, logger: logger}
}

// Create handles POST /orgs/:id/transfers. Validation happens strictly before
// any store or chain call: amounts first, then caller, manager role,
// self-funding prevention, and finally org membership of every party.
func (h *Handler) Create(c *gin.Context) {
	logger := middleware.RequestLogger(c)
	ctx := c.Request.Context()
	orgID := c.Param("id")
	ident := middleware.CurrentIdentity(c)

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if len(req.Recipients) == 0 {
		response.BadRequest(c, "at least one recipient required")
		return
	}
	amounts := make([]*big.Int, len(req.Recipients))
	for i, r := range req.Recipients {
		amount, ok := new(big.Int).SetString(r.Amount, 10)
		if !ok || amount.Sign() <= 0 {
			response.BadRequest(c, "amount must be a positive integer: "+r.Amount)
			return
		}
		amounts[i] = amount
	}

	caller, err := h.store.GetUser(ctx, ident.UserID)
	if err == store.ErrNotFound {
		response.NotFound(c, "caller not found")
		return
	}
	if err != nil {
		response.Internal(c, err.Error())
		return
	}

	if req.ManagerMode {
		if caller.RoleIn(orgID) != models.OrgRoleManager {
			response.Forbidden(c, "manager role required for manager mode")
			return
		}
		for _, r := range req.Recipients {
			if r.UserID == caller.ID {
				response.Forbidden(c, "manager mode may not target the caller")
				return
			}
		}
	}

	ids := make([]string, len(req.Recipients))
	for i, r := range req.Recipients {
		ids[i] = r.UserID
	}
	recipients, err := h.store.BatchGetUsers(ctx, ids)
	if err != nil {
		response.Internal(c, err.Error())
		return
	}
	for _, id := range ids {
		if recipients[id] == nil {
			response.NotFound(c, "user not found: "+id)
			return
		}
	}

	if !caller.MemberOf(orgID) {
		response.Forbidden(c, "caller is not a member of this organization")
		return
	}
	for _, id := range ids {
		if !recipients[id].MemberOf(orgID) {
			response.Forbidden(c, "recipient is not a member of this organization: "+id)
			return
		}
	}

	org, err := h.store.GetOrganization(ctx, orgID)
	if err == store.ErrNotFound {
		response.NotFound(c, "organization not found")
		return
	}
	if err != nil {
		response.Internal(c, err.Error())
		return
	}

	senderKey := caller.WalletPrivateKeyHex
	fromUserID := caller.ID
	if req.ManagerMode {
		senderKey = org.Seeder.PrivateKeyHex
	}
	addresses := make([]string, len(ids))
	for i, id := range ids {
		addresses[i] = recipients[id].WalletAddressC
	}

	hash, err := h.chain.Multisend(ctx, senderKey, org.Contract.Address, addresses, amounts)
	if err != nil {
		logger.Error("multisend failed", zap.Error(err), zap.String("org_id", orgID))
		response.Internal(c, err.Error())
		return
	}

	for i, id := range ids {
		tx := models.NewTransaction(orgID, fromUserID, id, hash, amounts[i].String(), models.TxTypeTokenSend, req.Message)
		if err := h.store.PutTransaction(ctx, tx); err != nil {
			logger.Error("ledger insert failed", zap.Error(err), zap.String("tx_hash", hash), zap.String("to_user_id", id))
			response.Internal(c, err.Error())
			return
		}
	}

	h.notifyRecipients(ctx, logger, org, ids, recipients, amounts)

	logger.Info("tokens distributed",
		zap.String("org_id", orgID),
		zap.String("tx_hash", hash),
		zap.Int("recipients", len(ids)),
		zap.Bool("manager_mode", req.ManagerMode),
	)
	c.JSON(http.StatusOK, gin.H{
		"transaction": gin.H{"hash": hash},
		"txnHash":     hash,
	})
}

// notifyRecipients sends a best-effort SMS to each opted-in recipient with a
// phone number. Failures are logged and never fail the transfer.
func (h *Handler) notifyRecipients(ctx context.Context, logger *zap.Logger, org *models.Organization, ids []string, recipients map[string]*models.User, amounts []*big.Int) {
	if h.sms == nil {
		return
	}
	for i, id := range ids {
		u := recipients[id]
		if u.PhoneNumber == "" || !u.AllowSMS {
			continue
		}
		msg := "You received " + amounts[i].String() + " " + org.Contract.TokenSymbol + " from " + org.Name
		if err := h.sms.Send(ctx, u.PhoneNumber, msg); err != nil {
			logger.Warn("sms notification failed", zap.Error(err), zap.String("user_id", id))
		}
	}
}
