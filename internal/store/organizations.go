package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/avaloyal/backend/internal/models"
)

// GetOrganization returns an organization by id.
func (s *Store) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.cfg.OrgsTable),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("get organization %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var org models.Organization
	if err := attributevalue.UnmarshalMap(out.Item, &org); err != nil {
		return nil, fmt.Errorf("unmarshal organization %s: %w", id, err)
	}
	return &org, nil
}

// AddOrgMember appends a user id to the organization member list.
func (s *Store) AddOrgMember(ctx context.Context, orgID, userID string) error {
	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.cfg.OrgsTable),
		Key:              map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: orgID}},
		UpdateExpression: aws.String("SET member_ids = list_append(if_not_exists(member_ids, :empty), :m)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m":     &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: userID}}},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		},
	})
	if err != nil {
		return fmt.Errorf("add member %s to %s: %w", userID, orgID, err)
	}
	return nil
}
