package users

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/avaloyal/backend/internal/chain"
	"github.com/avaloyal/backend/internal/middleware"
	"github.com/avaloyal/backend/internal/models"
	"github.com/avaloyal/backend/internal/store"
)

type fakeStore struct {
	users          map[string]*models.User
	orgs           map[string]*models.Organization
	txs            map[string][]models.Transaction
	profileUpdates int
	phoneUpdates   int
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	o, ok := f.orgs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) UpdateUserProfile(ctx context.Context, id, firstName, lastName string) error {
	f.profileUpdates++
	return nil
}

func (f *fakeStore) UpdateUserPhone(ctx context.Context, id, phone string, allowSMS bool) error {
	f.phoneUpdates++
	return nil
}

func (f *fakeStore) ListUserTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	return f.txs[userID], nil
}

type fakeChain struct {
	transfers []chain.TokenTransfer
	err       error
	calls     int
}

func (f *fakeChain) TokenTransferHistory(ctx context.Context, address, contract string) ([]chain.TokenTransfer, error) {
	f.calls++
	return f.transfers, f.err
}

func usersFixture() (*fakeStore, *fakeChain, *Handler) {
	st := &fakeStore{
		users: map[string]*models.User{
			"self-id": {
				ID:                  "self-id",
				FirstName:           "Sam",
				PhoneNumber:         "+15550002222",
				Organizations:       []models.OrgMembership{{OrgID: "jacks-pizza-1", Role: models.OrgRoleMember}},
				WalletAddressC:      "0xself",
				WalletPrivateKeyHex: "0xprivate",
			},
			"peer-id": {
				ID:            "peer-id",
				Organizations: []models.OrgMembership{{OrgID: "jacks-pizza-1", Role: models.OrgRoleMember}},
			},
			"stranger-id": {
				ID:            "stranger-id",
				Organizations: []models.OrgMembership{{OrgID: "another-org", Role: models.OrgRoleMember}},
			},
		},
		orgs: map[string]*models.Organization{
			"jacks-pizza-1": {
				ID:       "jacks-pizza-1",
				Contract: models.Contract{Address: "0xcontract"},
			},
		},
		txs: map[string][]models.Transaction{
			"self-id": {*models.NewTransaction("jacks-pizza-1", "peer-id", "self-id", "0xaaa", "5", models.TxTypeTokenSend, "")},
		},
	}
	ch := &fakeChain{transfers: []chain.TokenTransfer{{Hash: "0xaaa", Value: "5"}}}
	return st, ch, NewHandler(st, ch, nil)
}

func doRequest(h gin.HandlerFunc, method, path, targetID, callerID, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: targetID}}
	c.Set(middleware.ContextIdentity, middleware.Identity{UserID: callerID})
	h(c)
	return w
}

func TestGetSelf(t *testing.T) {
	_, _, h := usersFixture()
	w := doRequest(h.Get, http.MethodGet, "/users/self-id", "self-id", "self-id", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "0xprivate") {
		t.Error("private key leaked in response")
	}
	if !strings.Contains(w.Body.String(), "0xself") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGetSharedOrgPeer(t *testing.T) {
	_, _, h := usersFixture()
	w := doRequest(h.Get, http.MethodGet, "/users/self-id", "self-id", "peer-id", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestGetStrangerIs403(t *testing.T) {
	_, _, h := usersFixture()
	w := doRequest(h.Get, http.MethodGet, "/users/self-id", "self-id", "stranger-id", "")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestGetAbsentUserIs404(t *testing.T) {
	_, _, h := usersFixture()
	w := doRequest(h.Get, http.MethodGet, "/users/ghost", "ghost", "self-id", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestPatchSelfOnly(t *testing.T) {
	st, _, h := usersFixture()
	w := doRequest(h.Patch, http.MethodPatch, "/users/self-id", "self-id", "peer-id",
		`{"first_name":"Evil"}`)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if st.profileUpdates != 0 {
		t.Error("profile updated despite authorization failure")
	}
}

func TestPatchUpdatesOnlyPresentFields(t *testing.T) {
	st, _, h := usersFixture()
	w := doRequest(h.Patch, http.MethodPatch, "/users/self-id", "self-id", "self-id",
		`{"first_name":"Sammy"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if st.profileUpdates != 1 {
		t.Errorf("profile updates = %d, want 1", st.profileUpdates)
	}
	if st.phoneUpdates != 0 {
		t.Errorf("phone updates = %d, want 0", st.phoneUpdates)
	}
	if !strings.Contains(w.Body.String(), "Sammy") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestPatchPhoneAndOptIn(t *testing.T) {
	st, _, h := usersFixture()
	w := doRequest(h.Patch, http.MethodPatch, "/users/self-id", "self-id", "self-id",
		`{"phone_number":"+15550009999","allow_sms":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if st.phoneUpdates != 1 || st.profileUpdates != 0 {
		t.Errorf("updates: phone=%d profile=%d", st.phoneUpdates, st.profileUpdates)
	}
}

func TestTransactionsSelfOnly(t *testing.T) {
	_, ch, h := usersFixture()
	w := doRequest(h.Transactions, http.MethodGet, "/users/self-id/transactions", "self-id", "peer-id", "")
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if ch.calls != 0 {
		t.Error("explorer queried despite authorization failure")
	}
}

func TestTransactionsMergesLedgerAndChainHistory(t *testing.T) {
	_, ch, h := usersFixture()
	w := doRequest(h.Transactions, http.MethodGet, "/users/self-id/transactions", "self-id", "self-id", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ch.calls != 1 {
		t.Errorf("explorer calls = %d, want 1", ch.calls)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"ledger"`) || !strings.Contains(body, `"on_chain"`) {
		t.Errorf("body = %s", body)
	}
	if !strings.Contains(body, "0xaaa") {
		t.Errorf("body = %s", body)
	}
}

func TestTransactionsExplorerFailureStill200(t *testing.T) {
	_, ch, h := usersFixture()
	ch.err = errors.New("explorer unavailable")
	ch.transfers = nil
	w := doRequest(h.Transactions, http.MethodGet, "/users/self-id/transactions", "self-id", "self-id", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ledger"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
