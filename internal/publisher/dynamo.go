// internal/publisher/dynamo.go
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/tamzrod/ssh-relay/internal/status"
)

// itemPutter is the subset of *dynamodb.Client the sink uses.
type itemPutter interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// StatusItem is one stored publish, keyed by device_id + timestamp.
type StatusItem struct {
	DeviceID  string `dynamodbav:"device_id"`
	Timestamp int64  `dynamodbav:"timestamp"`
	Status    uint16 `dynamodbav:"status"`
	Attempts  uint64 `dynamodbav:"attempts"`
	Accepted  uint64 `dynamodbav:"accepted"`
	Rejected  uint64 `dynamodbav:"rejected"`
	LocalIP   string `dynamodbav:"local_ip"`
	PublicIP  string `dynamodbav:"public_ip"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

// DynamoConfig selects the table and retention.
type DynamoConfig struct {
	Table    string
	Region   string
	DeviceID string
	TTL      time.Duration
}

type dynamoSink struct {
	client   itemPutter
	table    string
	deviceID string
	ttl      time.Duration
	now      func() time.Time
}

// NewDynamoSink loads the default AWS credential chain and builds the sink.
func NewDynamoSink(ctx context.Context, cfg DynamoConfig) (Sink, error) {
	if cfg.Table == "" {
		return nil, errors.New("dynamodb sink: table required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("dynamodb sink: load aws config: %w", err)
	}

	return newDynamoSink(dynamodb.NewFromConfig(awsCfg), cfg), nil
}

func newDynamoSink(client itemPutter, cfg DynamoConfig) *dynamoSink {
	return &dynamoSink{
		client:   client,
		table:    cfg.Table,
		deviceID: cfg.DeviceID,
		ttl:      cfg.TTL,
		now:      time.Now,
	}
}

func (d *dynamoSink) Name() string { return "dynamodb" }

func (d *dynamoSink) Publish(ctx context.Context, b status.Batch) error {
	now := d.now()
	s := b.Source

	item := StatusItem{
		DeviceID:  d.deviceID,
		Timestamp: now.Unix(),
		Status:    uint16(s.Status),
		Attempts:  s.Attempts,
		Accepted:  s.Accepted,
		Rejected:  s.Rejected,
		LocalIP:   s.LocalIP,
		PublicIP:  s.PublicIP,
	}
	if d.ttl > 0 {
		item.ExpiresAt = now.Add(d.ttl).Unix()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal status item: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to store status in dynamodb: %w", err)
	}

	return nil
}
