package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/avaloyal/backend/internal/models"
)

const (
	toUserIndex   = "to_user_id-index"
	fromUserIndex = "from_user_id-index"
)

// PutTransaction appends a ledger record. Records are immutable once written.
func (s *Store) PutTransaction(ctx context.Context, tx *models.Transaction) error {
	item, err := attributevalue.MarshalMap(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction %s: %w", tx.ToUserTxnURN, err)
	}
	if _, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.cfg.TransactionsTable),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put transaction %s: %w", tx.ToUserTxnURN, err)
	}
	return nil
}

// ListUserTransactions returns ledger records where the user is sender or
// recipient, newest first.
func (s *Store) ListUserTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	received, err := s.queryTransactions(ctx, toUserIndex, "to_user_id", userID)
	if err != nil {
		return nil, err
	}
	sent, err := s.queryTransactions(ctx, fromUserIndex, "from_user_id", userID)
	if err != nil {
		return nil, err
	}

	merged := append(received, sent...)
	// Self-transfers appear in both indexes; keep one copy.
	seen := make(map[string]struct{}, len(merged))
	out := merged[:0]
	for _, tx := range merged {
		if _, ok := seen[tx.FromToTxnURN]; ok {
			continue
		}
		seen[tx.FromToTxnURN] = struct{}{}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (s *Store) queryTransactions(ctx context.Context, index, attr, userID string) ([]models.Transaction, error) {
	out, err := s.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.cfg.TransactionsTable),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String(fmt.Sprintf("%s = :u", attr)),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query %s for %s: %w", index, userID, err)
	}
	list := make([]models.Transaction, 0, len(out.Items))
	for _, item := range out.Items {
		var tx models.Transaction
		if err := attributevalue.UnmarshalMap(item, &tx); err != nil {
			return nil, fmt.Errorf("unmarshal transaction: %w", err)
		}
		list = append(list, tx)
	}
	return list, nil
}
