// Package orgs implements organization endpoints: lookup, membership join,
// redeemable NFT listing, treasury burn/mint, and explicit wallet seeding.
package orgs

import (
	"context"
	"math/big"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avaloyal/backend/internal/middleware"
	"github.com/avaloyal/backend/internal/models"
	"github.com/avaloyal/backend/internal/seeding"
	"github.com/avaloyal/backend/internal/store"
	"github.com/avaloyal/backend/pkg/response"
)

// Store is the document-store surface the orgs handler needs.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	AddOrgMember(ctx context.Context, orgID, userID string) error
	AddUserOrganization(ctx context.Context, id string, membership models.OrgMembership) error
	PutTransaction(ctx context.Context, tx *models.Transaction) error
}

// Chain is the chain-access surface the orgs handler needs.
type Chain interface {
	AddMember(ctx context.Context, senderKeyHex, contract, member string) (string, error)
	Burn(ctx context.Context, senderKeyHex, contract string, amount *big.Int) (string, error)
	Mint(ctx context.Context, senderKeyHex, contract, to string, amount *big.Int) (string, error)
}

// Handler handles organization HTTP endpoints.
type Handler struct {
	store  Store
	chain  Chain
	seeder *seeding.Service
	logger *zap.Logger
}

// NewHandler creates an orgs handler.
func NewHandler(st Store, ch Chain, seeder *seeding.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, chain: ch, seeder: seeder, logger: logger}
}

// loadOrgForMember fetches the org and enforces caller membership: 404 when
// the org is absent, 403 when the caller is not a member.
func (h *Handler) loadOrgForMember(c *gin.Context) (*models.Organization, *models.User, bool) {
	ctx := c.Request.Context()
	ident := middleware.CurrentIdentity(c)
	orgID := c.Param("id")

	org, err := h.store.GetOrganization(ctx, orgID)
	if err == store.ErrNotFound {
		response.NotFound(c, "organization not found")
		return nil, nil, false
	}
	if err != nil {
		response.Internal(c, err.Error())
		return nil, nil, false
	}
	caller, err := h.store.GetUser(ctx, ident.UserID)
	if err == store.ErrNotFound {
		response.NotFound(c, "caller not found")
		return nil, nil, false
	}
	if err != nil {
		response.Internal(c, err.Error())
		return nil, nil, false
	}
	if !caller.MemberOf(org.ID) {
		response.Forbidden(c, "not a member of this organization")
		return nil, nil, false
	}
	return org, caller, true
}

// Get handles GET /orgs/:id. Members only; the response never includes the
// seeder private key.
func (h *Handler) Get(c *gin.Context) {
	org, _, ok := h.loadOrgForMember(c)
	if !ok {
		return
	}
	response.OK(c, org.ToPublic())
}

// ListNFTs handles GET /orgs/:id/nfts.
func (h *Handler) ListNFTs(c *gin.Context) {
	org, _, ok := h.loadOrgForMember(c)
	if !ok {
		return
	}
	nftID := c.Query("nft_id")
	if nftID != "" {
		nft := org.FindNFT(nftID)
		if nft == nil {
			response.NotFound(c, "nft not found: "+nftID)
			return
		}
		response.OK(c, nft)
		return
	}
	response.OK(c, org.AvailableNFTs)
}

// Join handles POST /orgs/:id/join. Adds the caller to the org membership on
// both records and registers the wallet with the org contract.
func (h *Handler) Join(c *gin.Context) {
	logger := middleware.RequestLogger(c)
	ctx := c.Request.Context()
	ident := middleware.CurrentIdentity(c)
	orgID := c.Param("id")

	org, err := h.store.GetOrganization(ctx, orgID)
	if err == store.ErrNotFound {
		response.NotFound(c, "organization not found")
		return
	}
	if err != nil {
		response.Internal(c, err.Error())
		return
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
	if caller.MemberOf(org.ID) {
		response.OK(c, org.ToPublic())
		return
	}

	if err := h.store.AddOrgMember(ctx, org.ID, caller.ID); err != nil {
		response.Internal(c, err.Error())
		return
	}
	if err := h.store.AddUserOrganization(ctx, caller.ID, models.OrgMembership{OrgID: org.ID, Role: models.OrgRoleMember}); err != nil {
		response.Internal(c, err.Error())
		return
	}
	hash, err := h.chain.AddMember(ctx, org.Seeder.PrivateKeyHex, org.Contract.Address, caller.WalletAddressC)
	if err != nil {
		response.Internal(c, err.Error())
		return
	}
	logger.Info("member joined",
		zap.String("org_id", org.ID),
		zap.String("user_id", caller.ID),
		zap.String("tx_hash", hash),
	)
	response.OK(c, org.ToPublic())
}

// AmountRequest is the body for burn and mint.
type AmountRequest struct {
	Amount string `json:"amount" binding:"required"`
	UserID string `json:"user_id"`
}

// Burn handles POST /orgs/:id/burn. Manager only; burns treasury tokens.
func (h *Handler) Burn(c *gin.Context) {
	org, caller, ok := h.loadOrgForMember(c)
	if !ok {
		return
	}
	if caller.RoleIn(org.ID) != models.OrgRoleManager {
		response.Forbidden(c, "manager role required")
		return
	}
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	amount, valid := new(big.Int).SetString(req.Amount, 10)
	if !valid || amount.Sign() <= 0 {
		response.BadRequest(c, "amount must be a positive integer")
		return
	}
	ctx := c.Request.Context()
	hash, err := h.chain.Burn(ctx, org.Seeder.PrivateKeyHex, org.Contract.Address, amount)
	if err != nil {
		response.Internal(c, err.Error())
		return
	}
	tx := models.NewTransaction(org.ID, caller.ID, org.ID, hash, amount.String(), models.TxTypeBurn, "")
	if err := h.store.PutTransaction(ctx, tx); err != nil {
		response.Internal(c, err.Error())
		return
	}
	response.OK(c, gin.H{"txnHash": hash})
}

// Mint handles POST /orgs/:id/mint. Manager only; issues tokens to a member.
func (h *Handler) Mint(c *gin.Context) {
	org, caller, ok := h.loadOrgForMember(c)
	if !ok {
		return
	}
	if caller.RoleIn(org.ID) != models.OrgRoleManager {
		response.Forbidden(c, "manager role required")
		return
	}
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		response.BadRequest(c, "user_id and amount required")
		return
	}
	amount, valid := new(big.Int).SetString(req.Amount, 10)
	if !valid || amount.Sign() <= 0 {
		response.BadRequest(c, "amount must be a positive integer")
		return
	}
	ctx := c.Request.Context()
	target, err := h.store.GetUser(ctx, req.UserID)
	if err == store.ErrNotFound {
		response.NotFound(c, "user not found: "+req.UserID)
		return
	}
	if err != nil {
		response.Internal(c, err.Error())
		return
	}
	if !target.MemberOf(org.ID) {
		response.Forbidden(c, "target is not a member of this organization")
		return
	}
	hash, err := h.chain.Mint(ctx, org.Seeder.PrivateKeyHex, org.Contract.Address, target.WalletAddressC, amount)
	if err != nil {
		response.Internal(c, err.Error())
		return
	}
	tx := models.NewTransaction(org.ID, caller.ID, target.ID, hash, amount.String(), models.TxTypeMint, "")
	if err := h.store.PutTransaction(ctx, tx); err != nil {
		response.Internal(c, err.Error())
		return
	}
	response.OK(c, gin.H{"txnHash": hash})
}

// SeedRequest is the body for POST /orgs/:id/seed.
type SeedRequest struct {
	UserID string `json:"user_id"`
}

// Seed handles POST /orgs/:id/seed. Funds a member wallet from the org
// treasury; 304 when the wallet already holds a balance. Seeding another
// user's wallet requires the manager role.
func (h *Handler) Seed(c *gin.Context) {
	logger := middleware.RequestLogger(c)
	org, caller, ok := h.loadOrgForMember(c)
	if !ok {
		return
	}
	var req SeedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	target := caller
	if req.UserID != "" && req.UserID != caller.ID {
		if caller.RoleIn(org.ID) != models.OrgRoleManager {
			response.Forbidden(c, "manager role required to seed other users")
			return
		}
		var err error
		target, err = h.store.GetUser(ctx, req.UserID)
		if err == store.ErrNotFound {
			response.NotFound(c, "user not found: "+req.UserID)
			return
		}
		if err != nil {
			response.Internal(c, err.Error())
			return
		}
		if !target.MemberOf(org.ID) {
			response.Forbidden(c, "target is not a member of this organization")
			return
		}
	}

	funded, err := h.seeder.Funded(ctx, target)
	if err != nil {
		response.Internal(c, err.Error())
		return
	}
	if funded {
		response.NotModified(c)
		return
	}
	hash, err := h.seeder.Seed(ctx, org, target, true)
	if err != nil {
		response.Internal(c, err.Error())
		return
	}
	logger.Info("wallet seeded on request",
		zap.String("org_id", org.ID),
		zap.String("user_id", target.ID),
		zap.String("tx_hash", hash),
	)
	response.OK(c, gin.H{"txnHash": hash})
}
