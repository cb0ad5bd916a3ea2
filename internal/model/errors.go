// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はAPIエラーの分類を表す。HTTPステータスへの対応はhandler層が行う。
type ErrorKind int

const (
	// KindInternal は内部エラー（500）。
	KindInternal ErrorKind = iota
	// KindAuth は認証・認可失敗（401）。原因に関わらず同一のメッセージを返す。
	KindAuth
	// KindNotFound は対象リソースが存在しない（404）。
	KindNotFound
	// KindBadRequest はリクエスト不正（400）。
	KindBadRequest
	// KindValidation は入力値検証エラー（400）。
	KindValidation
	// KindUserExists はメールアドレス重複（409）。
	KindUserExists
)

// String はログ出力用の分類名を返す。
func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindValidation:
		return "validation"
	case KindUserExists:
		return "user_exists"
	default:
		return "internal"
	}
}

// クライアントへ返す固定メッセージ。
const (
	MsgAuthFailed   = "Authentication failed"
	MsgInternal     = "Internal server error"
	MsgNotFound     = "Resource not found"
	MsgUserExists   = "User already exists"
	MsgGoogleOnly   = "This account uses Google Sign-In. Please use the 'Sign in with Google' button."
	MsgNoPassword   = "This account uses Google Sign-In and doesn't have a password."
	MsgNoAvatarFile = "No avatar file provided"
)

// APIError は統一エラーフォーマットを表す。
// Messageはレスポンスボディ {"message": ...} に入り、Errはサーバーログにのみ出力する。
type APIError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// AsAPIError はerrチェーンからAPIErrorを取り出す。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// NewAuthError は認証失敗エラーを生成する。
// ヘッダ欠如・署名不正・期限切れ・権限不足のいずれも同じ形になる。
func NewAuthError() *APIError {
	return &APIError{Kind: KindAuth, Message: MsgAuthFailed}
}

// NewInternalError は内部エラーを生成する。errはログにのみ出力される。
func NewInternalError(err error) *APIError {
	return &APIError{Kind: KindInternal, Message: MsgInternal, Err: err}
}

// NewNotFoundError はリソース未検出エラーを生成する。
func NewNotFoundError() *APIError {
	return &APIError{Kind: KindNotFound, Message: MsgNotFound}
}

// NewBadRequestError はリクエスト不正エラーを生成する。
func NewBadRequestError(msg string) *APIError {
	return &APIError{Kind: KindBadRequest, Message: msg}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(msg string) *APIError {
	return &APIError{Kind: KindValidation, Message: msg}
}

// NewUserExistsError はメールアドレス重複エラーを生成する。
func NewUserExistsError() *APIError {
	return &APIError{Kind: KindUserExists, Message: MsgUserExists}
}
