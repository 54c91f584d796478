// Package logger はアプリケーション共通のJSON構造化ロガーを提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// serviceName は全ログレコードに付与されるservice属性の値。
// 集約基盤で他サービスのログと区別するために使用する。
const serviceName = "letterbox"

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// 全レコードにservice=letterbox属性を付与する。
// ログレベルはLevelInfo固定。レベルを変えたい場合はSetupWithLevelを使用する。
func Setup(w io.Writer) *slog.Logger {
	return SetupWithLevel(w, slog.LevelInfo)
}

// SetupWithLevel は指定した最小レベルでログを出力するslog.Loggerを生成して返す。
func SetupWithLevel(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(slog.String("service", serviceName))
}

// ParseLevel はLOG_LEVEL環境変数の値をslog.Levelに変換する。
// debug / info / warn / error を受け付け（大文字小文字を区別しない）、
// 未知の値はLevelInfoにフォールバックする。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// ログレベルはLOG_LEVEL環境変数から決定する（未設定時はinfo）。
// writerが指定された場合はそのwriterに出力する。
// 本番ではos.Stdoutを渡すことを想定している。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	logger := SetupWithLevel(w, ParseLevel(os.Getenv("LOG_LEVEL")))
	slog.SetDefault(logger)
}
