// Package database はMongoDB接続の確立と解放を提供する。
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// connectTimeout は初期接続確立のタイムアウト。
const connectTimeout = 10 * time.Second

// Connect はMongoDBへのクライアント接続を確立する。
// mongoURIはMongoDBの接続URIを指定する（例: "mongodb://localhost:27017"）。
// 接続の疎通確認にはPing()を使用すること。
func Connect(ctx context.Context, mongoURI string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	return client, nil
}

// Ping はプライマリノードへの疎通を確認する。
func Ping(ctx context.Context, client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return nil
}

// Disconnect はクライアント接続を解放する。シャットダウン時に呼び出す。
func Disconnect(ctx context.Context, client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	return nil
}
