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

// GetUser returns a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.cfg.UsersTable),
		Key:       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
	})
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}
	var u models.User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user %s: %w", id, err)
	}
	return &u, nil
}

// BatchGetUsers returns users keyed by id. Missing ids are simply absent from
// the result map; the caller decides whether that is an error.
func (s *Store) BatchGetUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	result := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	seen := make(map[string]struct{}, len(ids))
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}})
	}
	out, err := s.db.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
		RequestItems: map[string]types.KeysAndAttributes{
			s.cfg.UsersTable: {Keys: keys},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("batch get users: %w", err)
	}
	for _, item := range out.Responses[s.cfg.UsersTable] {
		var u models.User
		if err := attributevalue.UnmarshalMap(item, &u); err != nil {
			return nil, fmt.Errorf("unmarshal user: %w", err)
		}
		result[u.ID] = &u
	}
	return result, nil
}

// PutUser inserts or replaces a user record.
func (s *Store) PutUser(ctx context.Context, u *models.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user %s: %w", u.ID, err)
	}
	if _, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.cfg.UsersTable),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("put user %s: %w", u.ID, err)
	}
	return nil
}

// UpdateUserPhone sets the phone number and SMS opt-in flag.
func (s *Store) UpdateUserPhone(ctx context.Context, id, phone string, allowSMS bool) error {
	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.cfg.UsersTable),
		Key:              map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		UpdateExpression: aws.String("SET phone_number = :p, allow_sms = :a"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: phone},
			":a": &types.AttributeValueMemberBOOL{Value: allowSMS},
		},
	})
	if err != nil {
		return fmt.Errorf("update phone for %s: %w", id, err)
	}
	return nil
}

// UpdateUserProfile sets mutable profile fields.
func (s *Store) UpdateUserProfile(ctx context.Context, id, firstName, lastName string) error {
	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.cfg.UsersTable),
		Key:              map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		UpdateExpression: aws.String("SET first_name = :f, last_name = :l"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":f": &types.AttributeValueMemberS{Value: firstName},
			":l": &types.AttributeValueMemberS{Value: lastName},
		},
	})
	if err != nil {
		return fmt.Errorf("update profile for %s: %w", id, err)
	}
	return nil
}

// AddUserOrganization appends a membership entry to the user record.
func (s *Store) AddUserOrganization(ctx context.Context, id string, membership models.OrgMembership) error {
	entry, err := attributevalue.Marshal(membership)
	if err != nil {
		return fmt.Errorf("marshal membership: %w", err)
	}
	_, err = s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.cfg.UsersTable),
		Key:              map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		UpdateExpression: aws.String("SET organizations = list_append(if_not_exists(organizations, :empty), :m)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m":     &types.AttributeValueMemberL{Value: []types.AttributeValue{entry}},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		},
	})
	if err != nil {
		return fmt.Errorf("add organization for %s: %w", id, err)
	}
	return nil
}
