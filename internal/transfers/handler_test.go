package transfers

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/avaloyal/backend/internal/middleware"
	"github.com/avaloyal/backend/internal/models"
	"github.com/avaloyal/backend/internal/store"
)

type fakeStore struct {
	users map[string]*models.User
	orgs  map[string]*models.Organization
	txs   []*models.Transaction
	calls int
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) BatchGetUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	f.calls++
	out := make(map[string]*models.User)
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	f.calls++
	o, ok := f.orgs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return o, nil
}

func (f *fakeStore) PutTransaction(ctx context.Context, tx *models.Transaction) error {
	f.calls++
	f.txs = append(f.txs, tx)
	return nil
}

type multisendCall struct {
	senderKey string
	contract  string
	to        []string
	amounts   []*big.Int
}

type fakeChain struct {
	calls []multisendCall
	hash  string
	err   error
}

func (f *fakeChain) Multisend(ctx context.Context, senderKeyHex, contract string, recipients []string, amounts []*big.Int) (string, error) {
	f.calls = append(f.calls, multisendCall{senderKey: senderKeyHex, contract: contract, to: recipients, amounts: amounts})
	if f.err != nil {
		return "", f.err
	}
	return f.hash, nil
}

type fakeSMS struct {
	sent []string
	err  error
}

func (f *fakeSMS) Send(ctx context.Context, phone, message string) error {
	f.sent = append(f.sent, phone)
	return f.err
}

func memberUser(id, addr string, role models.OrgRole) *models.User {
	return &models.User{
		ID:                  id,
		WalletAddressC:      addr,
		WalletPrivateKeyHex: "0xkey-" + id,
		Organizations:       []models.OrgMembership{{OrgID: "jacks-pizza-1", Role: role}},
	}
}

func testFixture() (*fakeStore, *fakeChain, *fakeSMS) {
	st := &fakeStore{
		users: map[string]*models.User{
			"caller-id": memberUser("caller-id", "0xcaller", models.OrgRoleManager),
			"a-user-id": memberUser("a-user-id", "0xauser", models.OrgRoleMember),
		},
		orgs: map[string]*models.Organization{
			"jacks-pizza-1": {
				ID:       "jacks-pizza-1",
				Name:     "Jacks Pizza",
				Seeder:   models.Seeder{Address: "0xseed", PrivateKeyHex: "0xseedkey"},
				Contract: models.Contract{Address: "0xcontract", TokenSymbol: "JPZ"},
			},
		},
	}
	return st, &fakeChain{hash: "0x12345325252"}, &fakeSMS{}
}

func postTransfer(h *Handler, orgID, callerID, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/orgs/"+orgID+"/transfers", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: orgID}}
	c.Set(middleware.ContextIdentity, middleware.Identity{UserID: callerID})
	h.Create(c)
	return w
}

func TestCreateDistributesTokens(t *testing.T) {
	st, ch, sms := testFixture()
	h := NewHandler(st, ch, sms, nil)

	w := postTransfer(h, "jacks-pizza-1", "caller-id",
		`{"recipients":[{"user_id":"a-user-id","amount":"1"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var body struct {
		Transaction struct {
			Hash string `json:"hash"`
		} `json:"transaction"`
		TxnHash string `json:"txnHash"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Transaction.Hash != "0x12345325252" || body.TxnHash != "0x12345325252" {
		t.Errorf("response = %s", w.Body.String())
	}

	if len(st.txs) != 1 {
		t.Fatalf("got %d ledger records, want 1", len(st.txs))
	}
	tx := st.txs[0]
	if tx.TxHash != "0x12345325252" || tx.ToUserID != "a-user-id" {
		t.Errorf("ledger record = %+v", tx)
	}
	if tx.ToUserTxnURN != "a-user-id:0x12345325252" {
		t.Errorf("ToUserTxnURN = %q", tx.ToUserTxnURN)
	}

	if len(ch.calls) != 1 {
		t.Fatalf("got %d multisend calls, want 1", len(ch.calls))
	}
	call := ch.calls[0]
	if call.senderKey != "0xkey-caller-id" {
		t.Errorf("sender key = %q, want caller's own key outside manager mode", call.senderKey)
	}
	if call.contract != "0xcontract" || len(call.to) != 1 || call.to[0] != "0xauser" {
		t.Errorf("multisend call = %+v", call)
	}
}

func TestCreateManagerModeFundsFromTreasury(t *testing.T) {
	st, ch, sms := testFixture()
	h := NewHandler(st, ch, sms, nil)

	w := postTransfer(h, "jacks-pizza-1", "caller-id",
		`{"recipients":[{"user_id":"a-user-id","amount":"10"}],"manager_mode":true}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if len(ch.calls) != 1 || ch.calls[0].senderKey != "0xseedkey" {
		t.Errorf("manager mode should fund from treasury: %+v", ch.calls)
	}
}

func TestCreateRejectsNonPositiveAmountBeforeAnyCall(t *testing.T) {
	for _, amount := range []string{"0", "-1", "1.5", "abc"} {
		st, ch, sms := testFixture()
		h := NewHandler(st, ch, sms, nil)

		w := postTransfer(h, "jacks-pizza-1", "caller-id",
			`{"recipients":[{"user_id":"a-user-id","amount":"`+amount+`"}]}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("amount %q: status = %d, want 400", amount, w.Code)
		}
		if st.calls != 0 {
			t.Errorf("amount %q: %d store calls before validation, want 0", amount, st.calls)
		}
		if len(ch.calls) != 0 {
			t.Errorf("amount %q: chain was called", amount)
		}
	}
}

func TestCreateManagerModeRequiresManagerRole(t *testing.T) {
	st, ch, sms := testFixture()
	st.users["plain-id"] = memberUser("plain-id", "0xplain", models.OrgRoleMember)
	h := NewHandler(st, ch, sms, nil)

	w := postTransfer(h, "jacks-pizza-1", "plain-id",
		`{"recipients":[{"user_id":"a-user-id","amount":"1"}],"manager_mode":true}`)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if len(ch.calls) != 0 {
		t.Error("transfer routine invoked despite role violation")
	}
}

func TestCreateManagerModeMayNotTargetCaller(t *testing.T) {
	st, ch, sms := testFixture()
	h := NewHandler(st, ch, sms, nil)

	w := postTransfer(h, "jacks-pizza-1", "caller-id",
		`{"recipients":[{"user_id":"a-user-id","amount":"1"},{"user_id":"caller-id","amount":"2"}],"manager_mode":true}`)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if len(ch.calls) != 0 {
		t.Error("transfer routine invoked despite self-funding attempt")
	}
}

func TestCreateMissingRecipientIs404(t *testing.T) {
	st, ch, sms := testFixture()
	h := NewHandler(st, ch, sms, nil)

	w := postTransfer(h, "jacks-pizza-1", "caller-id",
		`{"recipients":[{"user_id":"ghost","amount":"1"}]}`)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if len(ch.calls) != 0 {
		t.Error("transfer routine invoked for missing recipient")
	}
}

func TestCreateMissingCallerIs404(t *testing.T) {
	st, ch, sms := testFixture()
	h := NewHandler(st, ch, sms, nil)

	w := postTransfer(h, "jacks-pizza-1", "nobody",
		`{"recipients":[{"user_id":"a-user-id","amount":"1"}]}`)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreateNonMemberRecipientIs403(t *testing.T) {
	st, ch, sms := testFixture()
	st.users["outsider"] = &models.User{ID: "outsider", WalletAddressC: "0xout"}
	h := NewHandler(st, ch, sms, nil)

	w := postTransfer(h, "jacks-pizza-1", "caller-id",
		`{"recipients":[{"user_id":"outsider","amount":"1"}]}`)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if len(ch.calls) != 0 {
		t.Error("transfer routine invoked for non-member recipient")
	}
}

func TestCreateMalformedBodyIs400(t *testing.T) {
	st, ch, sms := testFixture()
	h := NewHandler(st, ch, sms, nil)

	w := postTransfer(h, "jacks-pizza-1", "caller-id", `{`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateChainFailureIs500WithDetail(t *testing.T) {
	st, ch, sms := testFixture()
	ch.err = errors.New("nonce too low")
	h := NewHandler(st, ch, sms, nil)

	w := postTransfer(h, "jacks-pizza-1", "caller-id",
		`{"recipients":[{"user_id":"a-user-id","amount":"1"}]}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "nonce too low") {
		t.Errorf("error detail missing: %s", w.Body.String())
	}
}

func TestCreateSMSFailureDoesNotFailTransfer(t *testing.T) {
	st, ch, sms := testFixture()
	st.users["a-user-id"].PhoneNumber = "+15550100"
	st.users["a-user-id"].AllowSMS = true
	sms.err = errors.New("sms gateway down")
	h := NewHandler(st, ch, sms, nil)

	w := postTransfer(h, "jacks-pizza-1", "caller-id",
		`{"recipients":[{"user_id":"a-user-id","amount":"1"}]}`)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 despite sms failure", w.Code)
	}
	if len(sms.sent) != 1 {
		t.Errorf("sms attempts = %d, want 1", len(sms.sent))
	}
}

func TestCreateSkipsSMSWithoutOptIn(t *testing.T) {
	st, ch, sms := testFixture()
	st.users["a-user-id"].PhoneNumber = "+15550100"
	st.users["a-user-id"].AllowSMS = false
	h := NewHandler(st, ch, sms, nil)

	w := postTransfer(h, "jacks-pizza-1", "caller-id",
		`{"recipients":[{"user_id":"a-user-id","amount":"1"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(sms.sent) != 0 {
		t.Errorf("sms sent without opt-in: %v", sms.sent)
	}
}
