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

// DocumentRepository implements ports.DocumentRepository on the shared
// table. The verification-status index serves the unverified sweep.
type DocumentRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	gsi2Name  string
	logger    *zap.Logger
}

var _ ports.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a DynamoDB-backed document store.
func NewDocumentRepository(client *dynamodb.Client, tableName, indexName, gsi2Name string, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		gsi2Name:  gsi2Name,
		logger:    logger,
	}
}

type documentItem struct {
	PK            string   `dynamodbav:"PK"`
	SK            string   `dynamodbav:"SK"`
	GSI1PK        string   `dynamodbav:"GSI1PK"`
	GSI1SK        string   `dynamodbav:"GSI1SK"`
	GSI2PK        string   `dynamodbav:"GSI2PK"`
	GSI2SK        string   `dynamodbav:"GSI2SK"`
	EntityType    string   `dynamodbav:"EntityType"`
	DocumentID    string   `dynamodbav:"DocumentID"`
	TransactionID string   `dynamodbav:"TransactionID"`
	DocType       string   `dynamodbav:"DocType"`
	FileRef       string   `dynamodbav:"FileRef"`
	UploadedBy    string   `dynamodbav:"UploadedBy"`
	AIVerified    bool     `dynamodbav:"AIVerified"`
	AIScore       int      `dynamodbav:"AIScore"`
	Issues        []string `dynamodbav:"Issues,omitempty"`
	Status        string   `dynamodbav:"Status"`
	UploadedAt    string   `dynamodbav:"UploadedAt"`
	VerifiedAt    string   `dynamodbav:"VerifiedAt,omitempty"`
}

func documentToItem(doc *model.Document) documentItem {
	item := documentItem{
		PK:            pkDocumentPrefix + doc.DocumentID,
		SK:            skMetadata,
		GSI1PK:        pkTransactionPrefix + doc.TransactionID,
		GSI1SK:        pkDocumentPrefix + doc.DocumentID,
		GSI2PK:        gsiDocStatusPrefix + string(doc.Status),
		GSI2SK:        pkDocumentPrefix + doc.DocumentID,
		EntityType:    "DOCUMENT",
		DocumentID:    doc.DocumentID,
		TransactionID: doc.TransactionID,
		DocType:       doc.DocType,
		FileRef:       doc.FileRef,
		UploadedBy:    doc.UploadedBy,
		AIVerified:    doc.AIVerified,
		AIScore:       doc.AIScore,
		Issues:        doc.Issues,
		Status:        string(doc.Status),
		UploadedAt:    doc.UploadedAt.Format(time.RFC3339),
	}
	if !doc.VerifiedAt.IsZero() {
		item.VerifiedAt = doc.VerifiedAt.Format(time.RFC3339)
	}
	return item
}

func (i documentItem) toModel() *model.Document {
	doc := &model.Document{
		DocumentID:    i.DocumentID,
		TransactionID: i.TransactionID,
		DocType:       i.DocType,
		FileRef:       i.FileRef,
		UploadedBy:    i.UploadedBy,
		AIVerified:    i.AIVerified,
		AIScore:       i.AIScore,
		Issues:        i.Issues,
		Status:        model.VerificationStatus(i.Status),
	}
	doc.UploadedAt, _ = time.Parse(time.RFC3339, i.UploadedAt)
	if i.VerifiedAt != "" {
		doc.VerifiedAt, _ = time.Parse(time.RFC3339, i.VerifiedAt)
	}
	return doc
}

// Create persists a new document reference, rejecting duplicate IDs.
func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	av, err := attributevalue.MarshalMap(documentToItem(doc))
	if err != nil {
		return apperrors.NewDatabaseError("marshal document", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if asType(err, &ccf) {
			return apperrors.NewValidationError("document already exists")
		}
		r.logger.Error("failed to save document",
			zap.String("document_id", doc.DocumentID),
			zap.Error(err))
		return apperrors.NewDatabaseError("create document", err)
	}
	return nil
}

// Get loads a document by ID.
func (r *DocumentRepository) Get(ctx context.Context, documentID string) (*model.Document, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkDocumentPrefix + documentID},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("get document", err)
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError("document")
	}

	var item documentItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal document", err)
	}
	return item.toModel(), nil
}

// UpdateVerification commits a verification outcome.
func (r *DocumentRepository) UpdateVerification(ctx context.Context, documentID string, score int, issues []string, status model.VerificationStatus, verifiedAt time.Time) (*model.Document, error) {
	update := expression.
		Set(expression.Name("AIVerified"), expression.Value(true)).
		Set(expression.Name("AIScore"), expression.Value(score)).
		Set(expression.Name("Status"), expression.Value(string(status))).
		Set(expression.Name("GSI2PK"), expression.Value(gsiDocStatusPrefix+string(status))).
		Set(expression.Name("VerifiedAt"), expression.Value(verifiedAt.Format(time.RFC3339)))
	if len(issues) > 0 {
		update = update.Set(expression.Name("Issues"), expression.Value(issues))
	} else {
		update = update.Remove(expression.Name("Issues"))
	}
	cond := expression.AttributeExists(expression.Name("PK"))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("build verification update", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkDocumentPrefix + documentID},
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
			return nil, apperrors.NewNotFoundError("document")
		}
		r.logger.Error("failed to update verification",
			zap.String("document_id", documentID),
			zap.Error(err))
		return nil, apperrors.NewDatabaseError("update verification", err)
	}

	var item documentItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal document", err)
	}
	return item.toModel(), nil
}

// ListByTransaction queries the transaction index.
func (r *DocumentRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*model.Document, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(pkTransactionPrefix + transactionID)).
		And(expression.Key("GSI1SK").BeginsWith(pkDocumentPrefix))
	return r.queryDocuments(ctx, r.indexName, keyCond)
}

// ListUnverified queries the verification-status index for documents
// still in verifying.
func (r *DocumentRepository) ListUnverified(ctx context.Context) ([]*model.Document, error) {
	keyCond := expression.Key("GSI2PK").Equal(
		expression.Value(gsiDocStatusPrefix + string(model.VerificationVerifying)))
	return r.queryDocuments(ctx, r.gsi2Name, keyCond)
}

func (r *DocumentRepository) queryDocuments(ctx context.Context, index string, keyCond expression.KeyConditionBuilder) ([]*model.Document, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("build document query", err)
	}

	var out []*model.Document
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String(index),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, apperrors.NewDatabaseError("query documents", err)
		}

		var items []documentItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, apperrors.NewDatabaseError("unmarshal documents", err)
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
