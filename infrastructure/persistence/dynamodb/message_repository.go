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

// MessageRepository implements ports.MessageRepository on the shared
// table. Messages live under their task's partition with ULID sort
// keys, so ListByTask reads the log in insert order with one query.
type MessageRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a DynamoDB-backed message log.
func NewMessageRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *MessageRepository {
	return &MessageRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

type messageItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	MessageID  string `dynamodbav:"MessageID"`
	TaskID     string `dynamodbav:"TaskID"`
	SenderID   string `dynamodbav:"SenderID"`
	SenderRole string `dynamodbav:"SenderRole"`
	Body       string `dynamodbav:"Body"`
	IsRead     bool   `dynamodbav:"IsRead"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

func messageToItem(msg *model.Message) messageItem {
	return messageItem{
		PK:         pkTaskPrefix + msg.TaskID,
		SK:         skMessagePrefix + msg.MessageID,
		EntityType: "MESSAGE",
		MessageID:  msg.MessageID,
		TaskID:     msg.TaskID,
		SenderID:   msg.SenderID,
		SenderRole: msg.SenderRole,
		Body:       msg.Body,
		IsRead:     msg.Read,
		CreatedAt:  msg.CreatedAt.Format(time.RFC3339Nano),
	}
}

func (i messageItem) toModel() *model.Message {
	msg := &model.Message{
		MessageID:  i.MessageID,
		TaskID:     i.TaskID,
		SenderID:   i.SenderID,
		SenderRole: i.SenderRole,
		Body:       i.Body,
		Read:       i.IsRead,
	}
	msg.CreatedAt, _ = time.Parse(time.RFC3339Nano, i.CreatedAt)
	return msg
}

// Append writes a message to the task's log.
func (r *MessageRepository) Append(ctx context.Context, msg *model.Message) error {
	av, err := attributevalue.MarshalMap(messageToItem(msg))
	if err != nil {
		return apperrors.NewDatabaseError("marshal message", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		r.logger.Error("failed to append message",
			zap.String("task_id", msg.TaskID),
			zap.Error(err))
		return apperrors.NewDatabaseError("append message", err)
	}
	return nil
}

// ListByTask returns the task's message log in insert order.
func (r *MessageRepository) ListByTask(ctx context.Context, taskID string) ([]*model.Message, error) {
	items, err := r.queryMessages(ctx, taskID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Message, 0, len(items))
	for _, item := range items {
		out = append(out, item.toModel())
	}
	return out, nil
}

// MarkRead flips every unread message not sent by recipientRole and
// returns the marked messages. Each flip is a conditional write keyed
// on IsRead, so a concurrent sweep marks any given message only once.
func (r *MessageRepository) MarkRead(ctx context.Context, taskID, recipientRole string) ([]*model.Message, error) {
	items, err := r.queryMessages(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var marked []*model.Message
	for _, item := range items {
		if item.IsRead || item.SenderRole == recipientRole {
			continue
		}

		update := expression.Set(expression.Name("IsRead"), expression.Value(true))
		cond := expression.Name("IsRead").Equal(expression.Value(false))
		expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
		if err != nil {
			return marked, apperrors.NewDatabaseError("build read update", err)
		}

		_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: item.PK},
				"SK": &types.AttributeValueMemberS{Value: item.SK},
			},
			UpdateExpression:          expr.Update(),
			ConditionExpression:       expr.Condition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if err != nil {
			var ccf *types.ConditionalCheckFailedException
			if asType(err, &ccf) {
				// Already marked by a concurrent sweep.
				continue
			}
			return marked, apperrors.NewDatabaseError("mark message read", err)
		}

		msg := item.toModel()
		msg.Read = true
		marked = append(marked, msg)
	}
	return marked, nil
}

// CountUnread counts messages in the task not sent by recipientRole and
// not yet read.
func (r *MessageRepository) CountUnread(ctx context.Context, taskID, recipientRole string) (int, error) {
	items, err := r.queryMessages(ctx, taskID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, item := range items {
		if !item.IsRead && item.SenderRole != recipientRole {
			count++
		}
	}
	return count, nil
}

func (r *MessageRepository) queryMessages(ctx context.Context, taskID string) ([]messageItem, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(pkTaskPrefix + taskID)).
		And(expression.Key("SK").BeginsWith(skMessagePrefix))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("build message query", err)
	}

	var out []messageItem
	var startKey map[string]types.AttributeValue
	for {
		page, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, apperrors.NewDatabaseError("query messages", err)
		}

		var items []messageItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, apperrors.NewDatabaseError("unmarshal messages", err)
		}
		out = append(out, items...)

		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}
