package repository

import (
	"context"
	"fmt"
	"time"

	"despesas_bot/internal/ledger/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const expensesCollection = "expenses"

// MongoExpenseRepository 支出记录数据访问层（MongoDB 实现）
type MongoExpenseRepository struct {
	collection *mongo.Collection
}

// NewMongoExpenseRepository 创建支出 Repository
func NewMongoExpenseRepository(db *mongo.Database) ExpenseRepository {
	return &MongoExpenseRepository{
		collection: db.Collection(expensesCollection),
	}
}

// CreateRecord 创建支出记录
// 单文档插入，失败时不会留下任何可见数据
func (r *MongoExpenseRepository) CreateRecord(ctx context.Context, record *models.ExpenseRecord) error {
	now := time.Now()
	record.CreatedAt = now

	if record.RecordedAt.IsZero() {
		record.RecordedAt = now
	}

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to create expense record: %w", err)
	}

	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		record.ID = id
	}
	return nil
}

// SumByUser 汇总用户支出总额
func (r *MongoExpenseRepository) SumByUser(ctx context.Context, user string, since time.Time) (decimal.Decimal, error) {
	pipeline := []bson.M{
		{"$match": userFilter(user, since)},
		{
			"$group": bson.M{
				"_id":   nil,
				"total": bson.M{"$sum": "$amount"},
			},
		},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}
	defer cursor.Close(ctx)

	// 没有记录时 $group 不产生任何文档，按 0 处理
	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return decimal.Zero, fmt.Errorf("cursor error: %w", err)
		}
		return decimal.Zero, nil
	}

	var doc struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.Decode(&doc); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode expense sum: %w", err)
	}

	return decimal.NewFromFloat(doc.Total), nil
}

// SumByCategory 按分类汇总用户支出
func (r *MongoExpenseRepository) SumByCategory(ctx context.Context, user string, since time.Time) ([]models.CategoryTotal, error) {
	pipeline := []bson.M{
		{"$match": userFilter(user, since)},
		{
			"$group": bson.M{
				"_id":   "$category",
				"total": bson.M{"$sum": "$amount"},
			},
		},
		{"$sort": bson.D{{Key: "_id", Value: 1}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to sum expenses by category: %w", err)
	}
	defer cursor.Close(ctx)

	totals := make([]models.CategoryTotal, 0)
	for cursor.Next(ctx) {
		var doc struct {
			Category string  `bson:"_id"`
			Total    float64 `bson:"total"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode category total: %w", err)
		}
		totals = append(totals, models.CategoryTotal{
			Category: doc.Category,
			Total:    decimal.NewFromFloat(doc.Total),
		})
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return totals, nil
}

// EnsureIndexes 确保索引存在
func (r *MongoExpenseRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		// 复合索引：user + recorded_at（余额与按时间过滤）
		{
			Keys: bson.D{
				{Key: "user", Value: 1},
				{Key: "recorded_at", Value: -1},
			},
		},
		// 复合索引：user + category（分类报表）
		{
			Keys: bson.D{
				{Key: "user", Value: 1},
				{Key: "category", Value: 1},
			},
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create expense indexes: %w", err)
	}

	return nil
}

func userFilter(user string, since time.Time) bson.M {
	filter := bson.M{"user": user}
	if !since.IsZero() {
		filter["recorded_at"] = bson.M{"$gte": since}
	}
	return filter
}
