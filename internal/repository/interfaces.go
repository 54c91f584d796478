// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/letterbox/internal/model"
)

// LetterRepository はレターデータの永続化インターフェース。
type LetterRepository interface {
	// List は全レターを挿入順で取得する。フィルタ・ページネーションは行わない。
	List(ctx context.Context) ([]*model.Letter, error)

	// FindByID は指定IDのレターを取得する。
	// 見つからない場合およびIDの形式が不正な場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Letter, error)

	// Create はレターを作成する。IDはストアが採番し、CreatedAtは現在時刻になる。
	Create(ctx context.Context, title, content string) (*model.Letter, error)

	// Update は指定IDのレターのタイトルと本文を上書きし、更新後の状態を返す。
	// バージョニングは行わない。見つからない場合はnilを返す。
	Update(ctx context.Context, id, title, content string) (*model.Letter, error)

	// Delete は指定IDのレターを削除する。
	// 存在しないIDや形式不正なIDに対しても成功を返す（冪等削除）。
	Delete(ctx context.Context, id string) error
}
