// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Letter はユーザーが作成したレター下書きを表す。
// lettersコレクションに保存される。本文はサニタイズ済みのリッチテキストHTML。
type Letter struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title     string             `bson:"title" json:"title"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// DriveFile はGoogle Driveにホストされたドキュメントを表す。
// IDはDrive側が採番する不透明なファイルIDで、ローカルのLetter.IDとは無関係。
// アップロード後のLetterとDriveFileは独立した複製であり、相互のリンクは保持しない。
type DriveFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WebViewLink string `json:"webViewLink"`
}
