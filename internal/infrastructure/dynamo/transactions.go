package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fintrack-api/internal/domain"
)

// TransactionRepo provides typed DynamoDB operations for the transactions table.
type TransactionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTransactionRepo(client *dynamodb.Client, tableName string) *TransactionRepo {
	return &TransactionRepo{client: client, tableName: tableName}
}

func (r *TransactionRepo) Put(ctx context.Context, tx *domain.Transaction) error {
	item, err := attributevalue.MarshalMap(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *TransactionRepo) Get(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("transaction_id", transactionID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, domain.ErrNotFound)
	}
	var tx domain.Transaction
	if err := attributevalue.UnmarshalMap(out.Item, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListByOwner queries the owner_id-date-index GSI for one owner's
// transactions, newest first. startDate/endDate bound the date sort key
// (inclusive); category narrows with a filter expression.
func (r *TransactionRepo) ListByOwner(ctx context.Context, ownerID string, startDate, endDate *time.Time, category string) ([]domain.Transaction, error) {
	names := map[string]string{"#o": "owner_id"}
	values := map[string]types.AttributeValue{
		":owner": &types.AttributeValueMemberS{Value: ownerID},
	}
	keyCond := "#o = :owner"

	switch {
	case startDate != nil && endDate != nil:
		from, err := dateBound(*startDate)
		if err != nil {
			return nil, err
		}
		to, err := dateBound(*endDate)
		if err != nil {
			return nil, err
		}
		names["#d"] = "date"
		values[":from"], values[":to"] = from, to
		keyCond += " AND #d BETWEEN :from AND :to"
	case startDate != nil:
		from, err := dateBound(*startDate)
		if err != nil {
			return nil, err
		}
		names["#d"] = "date"
		values[":from"] = from
		keyCond += " AND #d >= :from"
	case endDate != nil:
		to, err := dateBound(*endDate)
		if err != nil {
			return nil, err
		}
		names["#d"] = "date"
		values[":to"] = to
		keyCond += " AND #d <= :to"
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("owner_id-date-index"),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false), // newest first
	}
	if category != "" {
		names["#c"] = "category"
		values[":cat"] = &types.AttributeValueMemberS{Value: category}
		input.FilterExpression = aws.String("#c = :cat")
	}

	var txs []domain.Transaction
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.Transaction
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		txs = append(txs, batch...)
	}
	return txs, nil
}

func (r *TransactionRepo) Update(ctx context.Context, transactionID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("transaction_id", transactionID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// dateBound marshals a range bound for the date sort key. Dates are written
// at whole-second precision, so bounds are truncated the same way; the
// serialized RFC 3339 strings then compare lexicographically in
// chronological order. A fractional bound would sort after whole-second
// values inside the same second ('Z' > '.') and silently drop rows.
func dateBound(t time.Time) (types.AttributeValue, error) {
	return attributevalue.Marshal(t.UTC().Truncate(time.Second))
}

// Delete removes the item permanently. The tracker has no soft-delete.
func (r *TransactionRepo) Delete(ctx context.Context, transactionID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("transaction_id", transactionID),
	})
	return err
}
