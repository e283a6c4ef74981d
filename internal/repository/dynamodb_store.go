package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	skValue   = "VALUE#"
	skHash    = "HASH#"
	skZPrefix = "Z#"
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStore maps the key-value operations onto a single DynamoDB table
// keyed by PK (the logical key) and SK (the value kind). Expiry relies on
// the table's TTL attribute "ttl"; reads also treat past-due items as
// missing because DynamoDB deletes expired items lazily.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
	now       func() time.Time
}

// NewDynamoStore creates a DynamoDB-backed store.
func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName, now: time.Now}, nil
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// Get returns the plain value or counter stored under key.
func (s *DynamoStore) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(key, skValue),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, fmt.Errorf("repository: Get %q: %w", key, err)
	}
	if out == nil || len(out.Item) == 0 {
		return "", false, nil
	}
	if ttl, ok := out.Item["ttl"].(*types.AttributeValueMemberN); ok {
		exp, err := strconv.ParseInt(ttl.Value, 10, 64)
		if err != nil {
			return "", false, fmt.Errorf("repository: Get %q decode ttl: %w", key, err)
		}
		if exp <= s.now().Unix() {
			return "", false, nil
		}
	}
	switch v := out.Item["value"].(type) {
	case *types.AttributeValueMemberS:
		return v.Value, true, nil
	case *types.AttributeValueMemberN:
		return v.Value, true, nil
	}
	if n, ok := out.Item["count"].(*types.AttributeValueMemberN); ok {
		return n.Value, true, nil
	}
	return "", false, fmt.Errorf("repository: Get %q: item has no value attribute", key)
}

// SetEX writes value under key, replacing any previous value and expiry.
func (s *DynamoStore) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	item := itemKey(key, skValue)
	item["value"] = &types.AttributeValueMemberS{Value: value}
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(s.now().Add(ttl).Unix(), 10)}

	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: SetEX %q: %w", key, err)
	}
	return nil
}

// Incr atomically adds one to the counter under key and returns the new value.
func (s *DynamoStore) Incr(ctx context.Context, key string) (int64, error) {
	out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       itemKey(key, skValue),
		UpdateExpression:          aws.String("ADD #count :one"),
		ExpressionAttributeNames:  map[string]string{"#count": "count"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":one": &types.AttributeValueMemberN{Value: "1"}},
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("repository: Incr %q: %w", key, err)
	}
	if out == nil {
		return 0, fmt.Errorf("repository: Incr %q: empty response", key)
	}
	n, ok := out.Attributes["count"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: Incr %q: missing count attribute", key)
	}
	v, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: Incr %q decode count: %w", key, err)
	}
	return v, nil
}

// HSet stores fields as a map attribute. The whole hash is written at once.
func (s *DynamoStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return errors.New("repository: HSet: fields are required")
	}
	m := make(map[string]types.AttributeValue, len(fields))
	for k, v := range fields {
		m[k] = &types.AttributeValueMemberS{Value: v}
	}
	item := itemKey(key, skHash)
	item["fields"] = &types.AttributeValueMemberM{Value: m}

	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: HSet %q: %w", key, err)
	}
	return nil
}

// ZAdd stores member as its own item under key so a score-sorted index
// (LSI on "score") can read the set back in order.
func (s *DynamoStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if member == "" {
		return errors.New("repository: ZAdd: member is required")
	}
	item := itemKey(key, skZPrefix+member)
	item["member"] = &types.AttributeValueMemberS{Value: member}
	item["score"] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(score, 'f', -1, 64)}

	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("repository: ZAdd %q: %w", key, err)
	}
	return nil
}
