package dynamodb

import (
	"context"
	"time"

	"closedesk/application/ports"
	"closedesk/domain/model"
	apperrors "closedesk/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// TransactionRepository implements ports.TransactionRepository on the
// shared table. Status updates are conditional writes, so the
// optimistic check holds even across concurrent processes.
type TransactionRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

var _ ports.TransactionRepository = (*TransactionRepository)(nil)

// NewTransactionRepository creates a DynamoDB-backed transaction store.
func NewTransactionRepository(client *dynamodb.Client, tableName, indexName string, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

type transactionItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	GSI1PK        string `dynamodbav:"GSI1PK"`
	GSI1SK        string `dynamodbav:"GSI1SK"`
	EntityType    string `dynamodbav:"EntityType"`
	TransactionID string `dynamodbav:"TransactionID"`
	Status        string `dynamodbav:"Status"`
	AgentID       string `dynamodbav:"AgentID"`
	BrokerID      string `dynamodbav:"BrokerID"`
	TCID          string `dynamodbav:"TCID"`
	ClientContact string `dynamodbav:"ClientContact"`
	PropertyAddr  string `dynamodbav:"PropertyAddr,omitempty"`
	ClosingDate   string `dynamodbav:"ClosingDate"`
	CreatedAt     string `dynamodbav:"CreatedAt"`
	UpdatedAt     string `dynamodbav:"UpdatedAt"`
}

func transactionToItem(txn *model.Transaction) transactionItem {
	return transactionItem{
		PK:            pkTransactionPrefix + txn.TransactionID,
		SK:            skMetadata,
		GSI1PK:        gsiStatusPrefix + string(txn.Status),
		GSI1SK:        pkTransactionPrefix + txn.TransactionID,
		EntityType:    "TRANSACTION",
		TransactionID: txn.TransactionID,
		Status:        string(txn.Status),
		AgentID:       txn.Parties.AgentID,
		BrokerID:      txn.Parties.BrokerID,
		TCID:          txn.Parties.TCID,
		ClientContact: txn.Parties.ClientContact,
		PropertyAddr:  txn.PropertyAddr,
		ClosingDate:   txn.ClosingDate.Format(time.RFC3339),
		CreatedAt:     txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     txn.UpdatedAt.Format(time.RFC3339),
	}
}

func (i transactionItem) toModel() *model.Transaction {
	txn := &model.Transaction{
		TransactionID: i.TransactionID,
		Status:        model.TransactionStatus(i.Status),
		Parties: model.Parties{
			AgentID:       i.AgentID,
			BrokerID:      i.BrokerID,
			TCID:          i.TCID,
			ClientContact: i.ClientContact,
		},
		PropertyAddr: i.PropertyAddr,
	}
	txn.ClosingDate, _ = time.Parse(time.RFC3339, i.ClosingDate)
	txn.CreatedAt, _ = time.Parse(time.RFC3339, i.CreatedAt)
	txn.UpdatedAt, _ = time.Parse(time.RFC3339, i.UpdatedAt)
	return txn
}

// Create persists a new transaction, rejecting duplicate IDs.
func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) error {
	av, err := attributevalue.MarshalMap(transactionToItem(txn))
	if err != nil {
		return apperrors.NewDatabaseError("marshal transaction", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if asType(err, &ccf) {
			return apperrors.NewValidationError("transaction already exists")
		}
		r.logger.Error("failed to save transaction",
			zap.String("transaction_id", txn.TransactionID),
			zap.Error(err))
		return apperrors.NewDatabaseError("create transaction", err)
	}
	return nil
}

// Get loads a transaction by ID.
func (r *TransactionRepository) Get(ctx context.Context, transactionID string) (*model.Transaction, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkTransactionPrefix + transactionID},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("get transaction", err)
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError("transaction")
	}

	var item transactionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal transaction", err)
	}
	return item.toModel(), nil
}

// UpdateStatus applies the conditional status write. The persisted
// status must still equal expected or nothing changes and the caller
// gets StaleState.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, transactionID string, expected, to model.TransactionStatus, updatedAt time.Time) (*model.Transaction, error) {
	update := expression.
		Set(expression.Name("Status"), expression.Value(string(to))).
		Set(expression.Name("GSI1PK"), expression.Value(gsiStatusPrefix+string(to))).
		Set(expression.Name("UpdatedAt"), expression.Value(updatedAt.Format(time.RFC3339)))
	cond := expression.Name("Status").Equal(expression.Value(string(expected)))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("build status update", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkTransactionPrefix + transactionID},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if asType(err, &ccf) {
			return nil, r.classifyConflict(ctx, transactionID, expected)
		}
		r.logger.Error("failed to update transaction status",
			zap.String("transaction_id", transactionID),
			zap.Error(err))
		return nil, apperrors.NewDatabaseError("update transaction status", err)
	}

	var item transactionItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal transaction", err)
	}
	return item.toModel(), nil
}

// classifyConflict turns a conditional-check failure into NotFound or
// StaleState by re-reading the record.
func (r *TransactionRepository) classifyConflict(ctx context.Context, transactionID string, expected model.TransactionStatus) error {
	current, err := r.Get(ctx, transactionID)
	if err != nil {
		return err
	}
	return apperrors.NewStaleStateError(string(expected), string(current.Status))
}

// ListByStatus queries the status index.
func (r *TransactionRepository) ListByStatus(ctx context.Context, status model.TransactionStatus) ([]*model.Transaction, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(gsiStatusPrefix + string(status)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("build status query", err)
	}

	var out []*model.Transaction
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(r.indexName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, apperrors.NewDatabaseError("query transactions by status", err)
		}

		var items []transactionItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, apperrors.NewDatabaseError("unmarshal transactions", err)
		}
		for _, item := range items {
			out = append(out, item.toModel())
		}

		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

// ListOpen returns every transaction not in a terminal status. Open
// statuses are enumerated and queried individually; the status index
// keeps each query cheap.
func (r *TransactionRepository) ListOpen(ctx context.Context) ([]*model.Transaction, error) {
	var out []*model.Transaction
	for _, status := range model.AllTransactionStatuses {
		if status.Terminal() {
			continue
		}
		txns, err := r.ListByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		out = append(out, txns...)
	}
	return out, nil
}
