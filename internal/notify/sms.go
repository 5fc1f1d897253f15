// Package notify sends best-effort SMS notifications. Failures are logged and
// never propagated to the primary operation.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"

	"github.com/avaloyal/backend/config"
)

// SMS publishes text messages to phone numbers via SNS.
type SMS struct {
	client   *sns.Client
	senderID string
	enabled  bool
	logger   *zap.Logger
}

// NewSMS creates an SMS sender.
func NewSMS(ctx context.Context, cfg config.SMSConfig, awsCfg config.AWSConfig, logger *zap.Logger) (*SMS, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(awsCfg.Region),
	}
	if awsCfg.AccessKeyID != "" && awsCfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			awsCfg.AccessKeyID, awsCfg.SecretAccessKey, "",
		)))
	}
	loaded, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SMS{
		client:   sns.NewFromConfig(loaded),
		senderID: cfg.SenderID,
		enabled:  cfg.Enabled,
		logger:   logger,
	}, nil
}

// Send publishes one message to a phone number. Returns an error for the
// caller to log; callers must not fail their primary operation on it.
func (s *SMS) Send(ctx context.Context, phone, message string) error {
	if !s.enabled {
		return nil
	}
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	}
	if s.senderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			},
		}
	}
	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("publish sms: %w", err)
	}
	return nil
}
