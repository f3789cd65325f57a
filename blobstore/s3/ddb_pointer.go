package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/findergo/blobstore"
)

// ErrConcurrentModification is returned when another writer published a
// generation concurrently. The index is single-writer by contract; this
// surfaces a host violating that contract across processes.
var ErrConcurrentModification = errors.New("concurrent generation publication detected")

// DDBClient is the subset of the DynamoDB API the pointer needs.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DDBPointer implements manifest.Pointer on DynamoDB.
//
// S3 object writes are atomic per key but offer no compare-and-swap, so the
// "move the CURRENT pointer" step of publication uses a DynamoDB conditional
// write instead: each publication inserts a new (base_uri, version) item,
// and the condition fails if the version already exists.
//
// Table schema: partition key base_uri (S), sort key version (N).
type DDBPointer struct {
	client    DDBClient
	tableName string
	baseURI   string
}

// NewDDBPointer creates a DynamoDB-backed manifest pointer. baseURI is the
// partition key value, conventionally "s3://bucket/prefix".
func NewDDBPointer(client DDBClient, tableName, baseURI string) *DDBPointer {
	return &DDBPointer{client: client, tableName: tableName, baseURI: baseURI}
}

// Load returns the manifest blob name of the highest committed version.
func (p *DDBPointer) Load(ctx context.Context) (string, error) {
	_, name, err := p.latest(ctx)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", blobstore.ErrNotFound
	}
	return name, nil
}

// Store publishes name under the next version via a conditional write.
func (p *DDBPointer) Store(ctx context.Context, name string) error {
	version, _, err := p.latest(ctx)
	if err != nil {
		return err
	}

	_, err = p.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(p.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":      &types.AttributeValueMemberS{Value: p.baseURI},
			"version":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", version+1)},
			"manifest_path": &types.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("s3: commit pointer: %w", err)
	}
	return nil
}

func (p *DDBPointer) latest(ctx context.Context) (uint64, string, error) {
	resp, err := p.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(p.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: p.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: query pointer: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: malformed version attribute")
	}
	pathAttr, ok := item["manifest_path"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: malformed manifest_path attribute")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("s3: parse version: %w", err)
	}
	return version, pathAttr.Value, nil
}
