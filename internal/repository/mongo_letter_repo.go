package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hitoshi/letterbox/internal/model"
)

// lettersCollection はレターを保存するコレクション名。
const lettersCollection = "letters"

// MongoLetterRepo はMongoDBを使用したレターリポジトリ。
type MongoLetterRepo struct {
	coll *mongo.Collection
}

// NewMongoLetterRepo はMongoLetterRepoを生成する。
func NewMongoLetterRepo(db *mongo.Database) *MongoLetterRepo {
	return &MongoLetterRepo{coll: db.Collection(lettersCollection)}
}

// List は全レターを挿入順で取得する。
// クエリにソート指定を付けないため、順序はストアのナチュラル順になる。
func (r *MongoLetterRepo) List(ctx context.Context) ([]*model.Letter, error) {
	cur, err := r.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list letters: %w", err)
	}
	defer cur.Close(ctx)

	letters := []*model.Letter{}
	if err := cur.All(ctx, &letters); err != nil {
		return nil, fmt.Errorf("failed to decode letters: %w", err)
	}

	return letters, nil
}

// FindByID は指定IDのレターを取得する。見つからない場合はnilを返す。
func (r *MongoLetterRepo) FindByID(ctx context.Context, id string) (*model.Letter, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// 形式不正なIDは「存在しない」と同じ扱い
		return nil, nil
	}

	letter := &model.Letter{}
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(letter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find letter by ID: %w", err)
	}

	return letter, nil
}

// Create はレターを作成する。IDはストアが採番する。
func (r *MongoLetterRepo) Create(ctx context.Context, title, content string) (*model.Letter, error) {
	letter := &model.Letter{
		Title:     title,
		Content:   content,
		CreatedAt: time.Now(),
	}

	res, err := r.coll.InsertOne(ctx, letter)
	if err != nil {
		return nil, fmt.Errorf("failed to insert letter: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted ID type: %T", res.InsertedID)
	}
	letter.ID = oid

	return letter, nil
}

// Update は指定IDのレターのタイトルと本文を上書きし、更新後の状態を返す。
// 見つからない場合はnilを返す。
func (r *MongoLetterRepo) Update(ctx context.Context, id, title, content string) (*model.Letter, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	letter := &model.Letter{}
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"title": title, "content": content}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(letter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update letter: %w", err)
	}

	return letter, nil
}

// Delete は指定IDのレターを削除する。
// 削除件数は確認しない。存在しないIDへの削除も成功として扱う（冪等削除）。
func (r *MongoLetterRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}

	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("failed to delete letter: %w", err)
	}

	return nil
}

// compile-time interface check
var _ LetterRepository = (*MongoLetterRepo)(nil)
