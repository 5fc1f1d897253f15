// Package identity implements the identity-provider post-confirmation hook.
// It provisions a wallet and persists the user record; any failure blocks the
// confirmation, since a user without a wallet is unusable downstream.
package identity

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avaloyal/backend/internal/middleware"
	"github.com/avaloyal/backend/internal/models"
	"github.com/avaloyal/backend/internal/wallet"
	"github.com/avaloyal/backend/pkg/response"
)

// ConfirmationEvent is the payload delivered by the identity provider on
// account confirmation. The event is echoed back unchanged to signal that
// confirmation should proceed.
type ConfirmationEvent struct {
	TriggerSource  string            `json:"trigger_source"`
	UserAttributes map[string]string `json:"user_attributes" binding:"required"`
}

type userStore interface {
	PutUser(ctx context.Context, u *models.User) error
}

// Handler handles the post-confirmation hook endpoint.
type Handler struct {
	store        userStore
	defaultOrgID string
	addressHRP   string
	generate     func(hrp string) (*wallet.Wallet, error)
}

// NewHandler creates an identity hook handler.
func NewHandler(store userStore, defaultOrgID, addressHRP string) *Handler {
	return &Handler{
		store:        store,
		defaultOrgID: defaultOrgID,
		addressHRP:   addressHRP,
		generate:     wallet.Generate,
	}
}

// PostConfirmation handles POST /hooks/post-confirmation. A non-2xx response
// aborts account activation.
func (h *Handler) PostConfirmation(c *gin.Context) {
	logger := middleware.RequestLogger(c)

	var event ConfirmationEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		response.BadRequest(c, "invalid confirmation event: "+err.Error())
		return
	}
	sub := event.UserAttributes["sub"]
	if sub == "" {
		response.BadRequest(c, "missing sub attribute")
		return
	}

	w, err := h.generate(h.addressHRP)
	if err != nil {
		logger.Error("wallet provisioning failed", zap.Error(err), zap.String("user_id", sub))
		response.Internal(c, "wallet provisioning failed: "+err.Error())
		return
	}

	orgID := event.UserAttributes["custom:organization"]
	if orgID == "" {
		orgID = h.defaultOrgID
	}
	user := &models.User{
		ID:          sub,
		URN:         "urn:user:" + sub,
		FirstName:   event.UserAttributes["given_name"],
		LastName:    event.UserAttributes["family_name"],
		Email:       event.UserAttributes["email"],
		PhoneNumber: event.UserAttributes["phone_number"],
		Organizations: []models.OrgMembership{
			{OrgID: orgID, Role: models.OrgRoleMember},
		},
		WalletAddressC:      w.AddressC,
		WalletAddressP:      w.AddressP,
		WalletAddressX:      w.AddressX,
		WalletPrivateKeyHex: w.PrivateKeyHex,
	}
	if err := h.store.PutUser(c.Request.Context(), user); err != nil {
		logger.Error("user insert failed", zap.Error(err), zap.String("user_id", sub))
		response.Internal(c, "user insert failed: "+err.Error())
		return
	}

	logger.Info("user provisioned",
		zap.String("user_id", sub),
		zap.String("org_id", orgID),
		zap.String("wallet_address_c", w.AddressC),
	)
	c.JSON(http.StatusOK, event)
}
