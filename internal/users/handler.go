// Package users implements user profile and transaction-history endpoints.
package users

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avaloyal/backend/internal/chain"
	"github.com/avaloyal/backend/internal/middleware"
	"github.com/avaloyal/backend/internal/models"
	"github.com/avaloyal/backend/internal/store"
	"github.com/avaloyal/backend/pkg/response"
)

// Store is the document-store surface the users handler needs.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	UpdateUserProfile(ctx context.Context, id, firstName, lastName string) error
	UpdateUserPhone(ctx context.Context, id, phone string, allowSMS bool) error
	ListUserTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
}

// Chain is the chain-access surface the users handler needs.
type Chain interface {
	TokenTransferHistory(ctx context.Context, address, contract string) ([]chain.TokenTransfer, error)
}

// Handler handles user HTTP endpoints.
type Handler struct {
	store  Store
	chain  Chain
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(st Store, ch Chain, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, chain: ch, logger: logger}
}

// Get handles GET /users/:id. The caller may fetch themselves or any user
// they share an organization with; the response never includes key material.
func (h *Handler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	ident := middleware.CurrentIdentity(c)
	targetID := c.Param("id")

	target, err := h.store.GetUser(ctx, targetID)
	if err == store.ErrNotFound {
		response.NotFound(c, "user not found")
		return
	}
	if err != nil {
		response.Internal(c, err.Error())
		return
	}

	if targetID != ident.UserID {
		caller, err := h.store.GetUser(ctx, ident.UserID)
		if err != nil {
			response.Forbidden(c, "not authorized to view this user")
			return
		}
		if !sharesOrg(caller, target) {
			response.Forbidden(c, "not authorized to view this user")
			return
		}
	}
	response.OK(c, target.ToPublic())
}

// PatchRequest is the body for PATCH /users/:id. Absent fields are untouched.
type PatchRequest struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	AllowSMS    *bool   `json:"allow_sms"`
}

// Patch handles PATCH /users/:id. Self-only; field updates are
// last-write-wins.
func (h *Handler) Patch(c *gin.Context) {
	ctx := c.Request.Context()
	ident := middleware.CurrentIdentity(c)
	targetID := c.Param("id")
	if targetID != ident.UserID {
		response.Forbidden(c, "may only update your own profile")
		return
	}

	var req PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.store.GetUser(ctx, targetID)
	if err == store.ErrNotFound {
		response.NotFound(c, "user not found")
		return
	}
	if err != nil {
		response.Internal(c, err.Error())
		return
	}

	if req.FirstName != nil || req.LastName != nil {
		first, last := user.FirstName, user.LastName
		if req.FirstName != nil {
			first = *req.FirstName
		}
		if req.LastName != nil {
			last = *req.LastName
		}
		if err := h.store.UpdateUserProfile(ctx, targetID, first, last); err != nil {
			response.Internal(c, err.Error())
			return
		}
		user.FirstName, user.LastName = first, last
	}
	if req.PhoneNumber != nil || req.AllowSMS != nil {
		phone, allow := user.PhoneNumber, user.AllowSMS
		if req.PhoneNumber != nil {
			phone = *req.PhoneNumber
		}
		if req.AllowSMS != nil {
			allow = *req.AllowSMS
		}
		if err := h.store.UpdateUserPhone(ctx, targetID, phone, allow); err != nil {
			response.Internal(c, err.Error())
			return
		}
		user.PhoneNumber, user.AllowSMS = phone, allow
	}
	response.OK(c, user.ToPublic())
}

// Transactions handles GET /users/:id/transactions. Self-only. Returns the
// ledger records alongside the chain's own transfer history for the org
// contract so callers can reconcile the two.
func (h *Handler) Transactions(c *gin.Context) {
	logger := middleware.RequestLogger(c)
	ctx := c.Request.Context()
	ident := middleware.CurrentIdentity(c)
	targetID := c.Param("id")
	if targetID != ident.UserID {
		response.Forbidden(c, "may only view your own transactions")
		return
	}

	user, err := h.store.GetUser(ctx, targetID)
	if err == store.ErrNotFound {
		response.NotFound(c, "user not found")
		return
	}
	if err != nil {
		response.Internal(c, err.Error())
		return
	}

	ledger, err := h.store.ListUserTransactions(ctx, targetID)
	if err != nil {
		response.Internal(c, err.Error())
		return
	}

	orgID := c.Query("org_id")
	if orgID == "" && len(user.Organizations) > 0 {
		orgID = user.Organizations[0].OrgID
	}
	var onChain []chain.TokenTransfer
	if orgID != "" {
		org, err := h.store.GetOrganization(ctx, orgID)
		if err == store.ErrNotFound {
			response.NotFound(c, "organization not found")
			return
		}
		if err != nil {
			response.Internal(c, err.Error())
			return
		}
		onChain, err = h.chain.TokenTransferHistory(ctx, user.WalletAddressC, org.Contract.Address)
		if err != nil {
			// History is an enrichment; the ledger alone is still useful.
			logger.Warn("explorer lookup failed", zap.Error(err), zap.String("user_id", targetID))
		}
	}

	response.OK(c, gin.H{
		"ledger":   ledger,
		"on_chain": onChain,
	})
}

func sharesOrg(a, b *models.User) bool {
	for _, m := range a.Organizations {
		if b.MemberOf(m.OrgID) {
			return true
		}
	}
	return false
}
