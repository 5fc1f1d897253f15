package models

import "time"

// TransactionType identifies how a ledger record was produced.
type TransactionType string

const (
	TxTypeTokenSend     TransactionType = "tokenSend"
	TxTypeERC20Transfer TransactionType = "erc20Transfer"
	TxTypeSeedSend      TransactionType = "seedSend"
	TxTypeBurn          TransactionType = "burn"
	TxTypeMint          TransactionType = "mint"
)

// Transaction is an append-only ledger record, one per on-chain transfer per
// recipient. Records are immutable once written and are reconciled against the
// chain's own transfer history.
type Transaction struct {
	ToUserTxnURN   string          `json:"to_user_id_txn_hash_urn" dynamodbav:"to_user_id_txn_hash_urn"`
	FromToTxnURN   string          `json:"from_user_to_user_txn_hash_urn" dynamodbav:"from_user_to_user_txn_hash_urn"`
	OrgID          string          `json:"org_id" dynamodbav:"org_id"`
	FromUserID     string          `json:"from_user_id" dynamodbav:"from_user_id"`
	ToUserID       string          `json:"to_user_id" dynamodbav:"to_user_id"`
	TxHash         string          `json:"tx_hash" dynamodbav:"tx_hash"`
	Amount         string          `json:"amount" dynamodbav:"amount"`
	CreatedAt      int64           `json:"created_at" dynamodbav:"created_at"`
	Type           TransactionType `json:"type" dynamodbav:"type"`
	Message        string          `json:"message,omitempty" dynamodbav:"message,omitempty"`
}

// ToUserTxnURN builds the composite key {toUserId}:{txHash}.
func ToUserTxnURN(toUserID, txHash string) string {
	return toUserID + ":" + txHash
}

// FromToTxnURN builds the composite key {fromUserId}:{toUserId}:{txHash}.
func FromToTxnURN(fromUserID, toUserID, txHash string) string {
	return fromUserID + ":" + toUserID + ":" + txHash
}

// NewTransaction builds a ledger record with both composite keys derived from
// the stored fields.
func NewTransaction(orgID, fromUserID, toUserID, txHash, amount string, txType TransactionType, message string) *Transaction {
	return &Transaction{
		ToUserTxnURN: ToUserTxnURN(toUserID, txHash),
		FromToTxnURN: FromToTxnURN(fromUserID, toUserID, txHash),
		OrgID:        orgID,
		FromUserID:   fromUserID,
		ToUserID:     toUserID,
		TxHash:       txHash,
		Amount:       amount,
		CreatedAt:    time.Now().Unix(),
		Type:         txType,
		Message:      message,
	}
}
