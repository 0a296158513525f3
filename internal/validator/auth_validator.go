package validator

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"storebackend/internal/repository"
	"storebackend/internal/usecase"
)

var (
	// 入力が不正
	ErrInvalidInput = errors.New("invalid input")

	// emailが既に使用済み
	ErrEmailAlreadyUsed = errors.New("email already used")

	// refresh tokenが不正
	ErrInvalidRefresh = errors.New("invalid refresh")
)

type authValidator struct {
	users repository.UserRepository
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string, phoneNumber string) error {
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		return ErrInvalidInput
	}
	if !isEmailLike(email) {
		return ErrInvalidInput
	}

	// パスワード最低文字数: 8
	if len(password) < 8 {
		return ErrInvalidInput
	}

	// 電話番号は任意入力
	if phoneNumber != "" && !isPhoneLike(phoneNumber) {
		return ErrInvalidInput
	}

	// email重複チェック
	u, err := v.users.FindByEmail(ctx, email)
	if err == nil && u != nil {
		return ErrEmailAlreadyUsed
	}

	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(ctx context.Context, email string, password string) error {
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		return ErrInvalidInput
	}
	if !isEmailLike(email) {
		return ErrInvalidInput
	}

	return nil
}

// refresh 入力を検証
func (v *authValidator) ValidateRefresh(ctx context.Context, refreshToken string, userAgent string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return ErrInvalidRefresh
	}
	return nil
}

// 強制ログアウトの入力を検証
func (v *authValidator) ValidateForceLogout(ctx context.Context, targetUserID int64) error {
	if targetUserID <= 0 {
		return ErrInvalidInput
	}
	return nil
}

// プロフィール更新（マージ後の値）を検証
func (v *authValidator) ValidateUpdateProfile(ctx context.Context, email string, phoneNumber string) error {
	if !isEmailLike(strings.TrimSpace(email)) {
		return ErrInvalidInput
	}
	if phoneNumber != "" && !isPhoneLike(phoneNumber) {
		return ErrInvalidInput
	}
	return nil
}

// パスワード変更の入力を検証
func (v *authValidator) ValidateChangePassword(ctx context.Context, oldPassword string, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return ErrInvalidInput
	}
	if len(newPassword) < 8 {
		return ErrInvalidInput
	}
	return nil
}

// 簡易メール形式をチェック
func isEmailLike(s string) bool {
	re := regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	return re.MatchString(s)
}

// 電話番号（国際表記まで許容）
func isPhoneLike(s string) bool {
	re := regexp.MustCompile(`^\+?\d{7,15}$`)
	return re.MatchString(s)
}
