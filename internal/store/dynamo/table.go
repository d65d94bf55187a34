package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/rickgao/coingecko-data/internal/config"
	"github.com/rickgao/coingecko-data/internal/store"
)

// ErrUnprocessed is returned when BatchWriteItem leaves items unwritten.
var ErrUnprocessed = errors.New("unprocessed items")

// API is the subset of *dynamodb.Client used by Table.
type API interface {
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Table implements store.Table on DynamoDB.
type Table struct {
	client API
	name   string
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Table over an existing client.
func New(client API, tableName string, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		client: client,
		name:   tableName,
		logger: logger,
		now:    time.Now,
	}
}

// Open loads AWS credentials from the default chain and creates a Table.
func Open(ctx context.Context, cfg config.DynamoDBConfig, logger *slog.Logger) (*Table, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return New(client, cfg.Table, logger), nil
}

// BatchWrite writes up to 25 items in one BatchWriteItem call. Any
// unprocessed item fails the whole call.
func (t *Table) BatchWrite(ctx context.Context, items []store.Item) error {
	if len(items) == 0 {
		return nil
	}

	reqs := make([]types.WriteRequest, 0, len(items))
	for _, it := range items {
		av, err := marshalItem(it)
		if err != nil {
			return fmt.Errorf("marshal %s/%s: %w", it.PK, it.SK, err)
		}
		reqs = append(reqs, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}

	out, err := t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{t.name: reqs},
	})
	if err != nil {
		return fmt.Errorf("batch write item: %w", err)
	}

	if n := len(out.UnprocessedItems[t.name]); n > 0 {
		return fmt.Errorf("%w: %d of %d", ErrUnprocessed, n, len(items))
	}
	return nil
}

// Put writes one item.
func (t *Table) Put(ctx context.Context, item store.Item) error {
	av, err := marshalItem(item)
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", item.PK, item.SK, err)
	}

	if _, err := t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Query reads one partition, following pagination until q.Limit unexpired
// items are collected. TTL deletion is lazy, so expired items are filtered.
func (t *Table) Query(ctx context.Context, q store.Query) ([]store.Item, error) {
	in := buildQuery(t.name, q, t.now())

	var out []store.Item
	for {
		resp, err := t.client.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}

		for _, av := range resp.Items {
			it, err := unmarshalItem(av)
			if err != nil {
				t.logger.Warn("skipping undecodable item", "pk", q.PK, "error", err)
				continue
			}
			out = append(out, it)
			if q.Limit > 0 && len(out) >= q.Limit {
				return out, nil
			}
		}

		if len(resp.LastEvaluatedKey) == 0 {
			return out, nil
		}
		in.ExclusiveStartKey = resp.LastEvaluatedKey
	}
}

// Ping checks the table is reachable.
func (t *Table) Ping(ctx context.Context) error {
	if _, err := t.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.name)}); err != nil {
		return fmt.Errorf("describe table %s: %w", t.name, err)
	}
	return nil
}

// buildQuery translates a store.Query into a QueryInput.
func buildQuery(table string, q store.Query, now time.Time) *dynamodb.QueryInput {
	values := map[string]types.AttributeValue{
		":pk":  &types.AttributeValueMemberS{Value: q.PK},
		":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
	}
	cond := "pk = :pk"
	switch {
	case q.SKFrom != "" && q.SKTo != "":
		cond += " AND sk BETWEEN :from AND :to"
		values[":from"] = &types.AttributeValueMemberS{Value: q.SKFrom}
		values[":to"] = &types.AttributeValueMemberS{Value: q.SKTo}
	case q.SKFrom != "":
		cond += " AND sk >= :from"
		values[":from"] = &types.AttributeValueMemberS{Value: q.SKFrom}
	case q.SKTo != "":
		cond += " AND sk <= :to"
		values[":to"] = &types.AttributeValueMemberS{Value: q.SKTo}
	}

	in := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    aws.String(cond),
		FilterExpression:          aws.String("attribute_not_exists(expiry) OR expiry > :now"),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(!q.Descending),
	}
	if q.Limit > 0 {
		in.Limit = aws.Int32(int32(q.Limit))
	}
	return in
}
