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

// TaskRepository implements ports.TaskRepository on the shared table.
type TaskRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	gsi2Name  string
	logger    *zap.Logger
}

var _ ports.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a DynamoDB-backed task store.
func NewTaskRepository(client *dynamodb.Client, tableName, indexName, gsi2Name string, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		gsi2Name:  gsi2Name,
		logger:    logger,
	}
}

type taskItem struct {
	PK            string `dynamodbav:"PK"`
	SK            string `dynamodbav:"SK"`
	GSI1PK        string `dynamodbav:"GSI1PK"`
	GSI1SK        string `dynamodbav:"GSI1SK"`
	GSI2PK        string `dynamodbav:"GSI2PK,omitempty"`
	GSI2SK        string `dynamodbav:"GSI2SK,omitempty"`
	EntityType    string `dynamodbav:"EntityType"`
	TaskID        string `dynamodbav:"TaskID"`
	TransactionID string `dynamodbav:"TransactionID"`
	Title         string `dynamodbav:"Title"`
	AssignedTo    string `dynamodbav:"AssignedTo"`
	AssignedBy    string `dynamodbav:"AssignedBy"`
	DueDate       string `dynamodbav:"DueDate"`
	Priority      string `dynamodbav:"Priority"`
	Status        string `dynamodbav:"Status"`
	AIReminder    bool   `dynamodbav:"AIReminder"`
	CreatedAt     string `dynamodbav:"CreatedAt"`
	UpdatedAt     string `dynamodbav:"UpdatedAt"`
}

func taskToItem(task *model.Task) taskItem {
	item := taskItem{
		PK:            pkTaskPrefix + task.TaskID,
		SK:            skMetadata,
		GSI1PK:        pkTransactionPrefix + task.TransactionID,
		GSI1SK:        pkTaskPrefix + task.TaskID,
		EntityType:    "TASK",
		TaskID:        task.TaskID,
		TransactionID: task.TransactionID,
		Title:         task.Title,
		AssignedTo:    task.AssignedTo,
		AssignedBy:    task.AssignedBy,
		DueDate:       task.DueDate.Format(time.RFC3339),
		Priority:      string(task.Priority),
		Status:        string(task.Status),
		AIReminder:    task.AIReminder,
		CreatedAt:     task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     task.UpdatedAt.Format(time.RFC3339),
	}
	if task.AssignedTo != "" {
		item.GSI2PK = gsiUserPrefix + task.AssignedTo
		item.GSI2SK = pkTaskPrefix + task.TaskID
	}
	return item
}

func (i taskItem) toModel() *model.Task {
	task := &model.Task{
		TaskID:        i.TaskID,
		TransactionID: i.TransactionID,
		Title:         i.Title,
		AssignedTo:    i.AssignedTo,
		AssignedBy:    i.AssignedBy,
		Priority:      model.TaskPriority(i.Priority),
		Status:        model.TaskStatus(i.Status),
		AIReminder:    i.AIReminder,
	}
	task.DueDate, _ = time.Parse(time.RFC3339, i.DueDate)
	task.CreatedAt, _ = time.Parse(time.RFC3339, i.CreatedAt)
	task.UpdatedAt, _ = time.Parse(time.RFC3339, i.UpdatedAt)
	return task
}

// Create persists a new task, rejecting duplicate IDs.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	av, err := attributevalue.MarshalMap(taskToItem(task))
	if err != nil {
		return apperrors.NewDatabaseError("marshal task", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if asType(err, &ccf) {
			return apperrors.NewValidationError("task already exists")
		}
		r.logger.Error("failed to save task",
			zap.String("task_id", task.TaskID),
			zap.Error(err))
		return apperrors.NewDatabaseError("create task", err)
	}
	return nil
}

// Get loads a task by ID.
func (r *TaskRepository) Get(ctx context.Context, taskID string) (*model.Task, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkTaskPrefix + taskID},
			"SK": &types.AttributeValueMemberS{Value: skMetadata},
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("get task", err)
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError("task")
	}

	var item taskItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal task", err)
	}
	return item.toModel(), nil
}

// UpdateStatus applies the conditional status write. The persisted
// status must still equal expected or nothing changes and the caller
// gets StaleState; completed stays terminal even under racing writers.
func (r *TaskRepository) UpdateStatus(ctx context.Context, taskID string, expected, to model.TaskStatus, updatedAt time.Time) (*model.Task, error) {
	update := expression.
		Set(expression.Name("Status"), expression.Value(string(to))).
		Set(expression.Name("UpdatedAt"), expression.Value(updatedAt.Format(time.RFC3339)))
	cond := expression.Name("Status").Equal(expression.Value(string(expected)))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("build task update", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pkTaskPrefix + taskID},
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
			return nil, r.classifyConflict(ctx, taskID, expected)
		}
		r.logger.Error("failed to update task status",
			zap.String("task_id", taskID),
			zap.Error(err))
		return nil, apperrors.NewDatabaseError("update task status", err)
	}

	var item taskItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal task", err)
	}
	return item.toModel(), nil
}

// classifyConflict turns a conditional-check failure into NotFound or
// StaleState by re-reading the record.
func (r *TaskRepository) classifyConflict(ctx context.Context, taskID string, expected model.TaskStatus) error {
	current, err := r.Get(ctx, taskID)
	if err != nil {
		return err
	}
	return apperrors.NewStaleStateError(string(expected), string(current.Status))
}

// ListByTransaction queries the transaction index.
func (r *TaskRepository) ListByTransaction(ctx context.Context, transactionID string) ([]*model.Task, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(pkTransactionPrefix + transactionID)).
		And(expression.Key("GSI1SK").BeginsWith(pkTaskPrefix))
	return r.queryTasks(ctx, r.indexName, keyCond)
}

// ListByAssignee queries the assignee index.
func (r *TaskRepository) ListByAssignee(ctx context.Context, userID string) ([]*model.Task, error) {
	keyCond := expression.Key("GSI2PK").Equal(expression.Value(gsiUserPrefix + userID)).
		And(expression.Key("GSI2SK").BeginsWith(pkTaskPrefix))
	return r.queryTasks(ctx, r.gsi2Name, keyCond)
}

func (r *TaskRepository) queryTasks(ctx context.Context, index string, keyCond expression.KeyConditionBuilder) ([]*model.Task, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("build task query", err)
	}

	var out []*model.Task
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
			return nil, apperrors.NewDatabaseError("query tasks", err)
		}

		var items []taskItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, apperrors.NewDatabaseError("unmarshal tasks", err)
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
