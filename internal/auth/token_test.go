package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/letterbox/internal/model"
)

const testSecret = "test-token-secret-32bytes-long!!"

func TestTokenCodec_IssueAndVerify_RoundTrip(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	identity := &model.Identity{
		ID:    "google-sub-12345",
		Name:  "Test User",
		Email: "user@gmail.com",
	}

	token, err := codec.Issue(identity)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	got, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.ID != identity.ID {
		t.Errorf("ID = %q, want %q", got.ID, identity.ID)
	}
	if got.Name != identity.Name {
		t.Errorf("Name = %q, want %q", got.Name, identity.Name)
	}
	if got.Email != identity.Email {
		t.Errorf("Email = %q, want %q", got.Email, identity.Email)
	}
}

func TestTokenCodec_Verify_ExpiredToken(t *testing.T) {
	// 有効期間を負にして発行時点で期限切れのトークンを作る
	codec := NewTokenCodec(testSecret, -time.Minute)

	token, err := codec.Issue(&model.Identity{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = codec.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(expired) error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenCodec_Verify_WrongSecret(t *testing.T) {
	issuer := NewTokenCodec(testSecret, time.Hour)
	verifier := NewTokenCodec("another-secret-32bytes-long!!!!!", time.Hour)

	token, err := issuer.Issue(&model.Identity{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	_, err = verifier.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(wrong secret) error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenCodec_Verify_TamperedToken(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	token, err := codec.Issue(&model.Identity{ID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// ペイロード部分を改ざんする
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %q", token)
	}
	tampered := parts[0] + ".eyJzdWIiOiJhdHRhY2tlciJ9." + parts[2]

	_, err = codec.Verify(tampered)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(tampered) error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenCodec_Verify_MalformedToken(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"missing parts", "abc.def"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", tt.token, err)
			}
		})
	}
}

func TestTokenCodec_MaxAge(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)
	if codec.MaxAge() != time.Hour {
		t.Errorf("MaxAge() = %v, want %v", codec.MaxAge(), time.Hour)
	}
}
