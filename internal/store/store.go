// Package store wraps document-store access for users, organizations and the
// transaction ledger. Operations are thin wrappers over DynamoDB; there is no
// transactionality beyond what the store provides natively, and concurrent
// field updates are last-write-wins.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"github.com/avaloyal/backend/config"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store provides document-store access. One client handle is created at
// startup and reused per request.
type Store struct {
	db     *dynamodb.Client
	cfg    config.AWSConfig
	logger *zap.Logger
}

// New creates a DynamoDB-backed store using credentials from config or the
// default credential chain (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY).
func New(ctx context.Context, cfg config.AWSConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
	} else {
		logger.Warn("store using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	db := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	logger.Info("store connected",
		zap.String("region", cfg.Region),
		zap.String("users_table", cfg.UsersTable),
		zap.String("orgs_table", cfg.OrgsTable),
		zap.String("transactions_table", cfg.TransactionsTable),
	)
	return &Store{db: db, cfg: cfg, logger: logger}, nil
}
