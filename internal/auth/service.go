// Package auth はパスワード認証、Googleアカウント連携、トークン発行を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"

	"github.com/hitoshi/aiclub/internal/model"
	"github.com/hitoshi/aiclub/internal/repository"
)

// OAuth解決の分岐。メトリクスのラベルとして使用する。
const (
	ResolutionLinkedExisting = "linked_existing"
	ResolutionLinkedByEmail  = "linked_by_email"
	ResolutionCreated        = "created"
)

const minPasswordLength = 8

// OAuthProvider は外部IdPの認可コードフローのインターフェース。
type OAuthProvider interface {
	// LoginURL は認可画面のURLを生成する。
	LoginURL(state string) string
	// Exchange は認可コードをトークンに交換し、本人情報を取得する。
	Exchange(ctx context.Context, code string) (*model.ExternalIdentity, error)
}

// TokenIssuer はユーザーIDに対するBearerトークンを発行する。
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// ResolutionObserver はOAuthユーザー解決の分岐を記録する。nilの場合は記録しない。
type ResolutionObserver interface {
	RecordOAuthResolution(branch string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	FrontendURL        string
	BcryptCost         int
	PhoneDefaultRegion string
}

// SignupInput は新規登録の入力。
type SignupInput struct {
	FullName string `json:"fullName"`
	PhoneNum string `json:"phoneNum"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Result はトークン発行を伴う認証結果。
type Result struct {
	Token string
	User  *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	userRepo repository.UserRepository
	tokens   TokenIssuer
	observer ResolutionObserver
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	tokens TokenIssuer,
	observer ResolutionObserver,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:    oauth,
		userRepo: userRepo,
		tokens:   tokens,
		observer: observer,
		config:   config,
	}
}

// Signup はパスワードアカウントを作成し、トークンを発行する。
// ユーザーと統計行は同一トランザクションで作成する。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*Result, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.PhoneNum = strings.TrimSpace(in.PhoneNum)

	err := validation.ValidateStruct(&in,
		validation.Field(&in.FullName, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(minPasswordLength, 72)),
	)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}

	phone, err := NormalizePhone(in.PhoneNum, s.config.PhoneDefaultRegion)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if existing != nil {
		return nil, model.NewUserExistsError()
	}

	hash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	user := &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FullName:     in.FullName,
		PhoneNum:     phone,
	}
	if err := s.userRepo.CreateWithStats(ctx, user); err != nil {
		if repository.IsUniqueViolation(err, repository.ConstraintUsersEmail) {
			return nil, model.NewUserExistsError()
		}
		return nil, model.NewInternalError(err)
	}

	slog.Info("user signed up", slog.String("user_id", user.ID))
	return s.issue(user)
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
// 未登録のメールアドレスと誤ったパスワードは同一のAuthErrorになる。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if user == nil {
		return nil, model.NewAuthError()
	}
	if !user.HasPassword() {
		return nil, model.NewBadRequestError(model.MsgGoogleOnly)
	}

	ok, err := ComparePassword(user.PasswordHash, password)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if !ok {
		return nil, model.NewAuthError()
	}

	return s.issue(user)
}

// LoginURL はランダムなstateを付与したGoogle認可画面URLを返す。
func (s *Service) LoginURL() (string, error) {
	state, err := generateState()
	if err != nil {
		return "", model.NewInternalError(fmt.Errorf("failed to generate state: %w", err))
	}
	return s.oauth.LoginURL(state), nil
}

// HandleGoogleCallback はGoogleからのコールバックを処理し、フロントエンドへのリダイレクトURLを返す。
//
// ユーザーの解決は次の順に行い、最初に一致したものを採用する。
//  1. google_idが一致するユーザー: email、氏名、画像をGoogleの値で更新する
//  2. emailが一致するユーザー: google_idを紐付け、画像は未設定の場合のみ設定する
//  3. いずれも無い: パスワード無しのユーザーと統計行を作成する
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (string, error) {
	identity, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return "", model.NewInternalError(fmt.Errorf("failed to exchange oauth code: %w", err))
	}

	user, branch, err := s.resolveUser(ctx, identity)
	if err != nil {
		return "", model.NewInternalError(err)
	}
	if s.observer != nil {
		s.observer.RecordOAuthResolution(branch)
	}
	slog.Info("google sign-in resolved",
		slog.String("user_id", user.ID),
		slog.String("resolution", branch),
	)

	needsCompletion, err := s.userRepo.NeedsProfileCompletion(ctx, user.ID)
	if err != nil {
		return "", model.NewInternalError(err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", model.NewInternalError(err)
	}

	return s.callbackURL(token, user, needsCompletion)
}

// CompleteProfile は大学と専攻を保存し、プロフィール入力完了とする。
func (s *Service) CompleteProfile(ctx context.Context, userID, university, major string) error {
	university = strings.TrimSpace(university)
	major = strings.TrimSpace(major)
	err := validation.Errors{
		"university": validation.Validate(university, validation.Required, validation.Length(1, 255)),
		"major":      validation.Validate(major, validation.Required, validation.Length(1, 255)),
	}.Filter()
	if err != nil {
		return model.NewValidationError(err.Error())
	}

	if err := s.userRepo.CompleteProfile(ctx, userID, university, major); err != nil {
		return model.NewInternalError(err)
	}
	return nil
}

func (s *Service) resolveUser(ctx context.Context, identity *model.ExternalIdentity) (*model.User, string, error) {
	linked, err := s.userRepo.FindByGoogleID(ctx, identity.Subject)
	if err != nil {
		return nil, "", err
	}
	if linked != nil {
		user, err := s.userRepo.RefreshGoogleProfile(ctx, identity.Subject, *identity)
		if err != nil {
			return nil, "", err
		}
		if user == nil {
			return nil, "", fmt.Errorf("linked user disappeared during refresh: %s", linked.ID)
		}
		return user, ResolutionLinkedExisting, nil
	}

	byEmail, err := s.userRepo.FindByEmail(ctx, identity.Email)
	if err != nil {
		return nil, "", err
	}
	if byEmail != nil {
		user, err := s.userRepo.LinkGoogleAccount(ctx, byEmail.ID, identity.Subject, identity.AvatarURL)
		if err != nil {
			return nil, "", err
		}
		if user == nil {
			return nil, "", fmt.Errorf("user disappeared during link: %s", byEmail.ID)
		}
		return user, ResolutionLinkedByEmail, nil
	}

	fullName := identity.Name
	if fullName == "" {
		fullName = identity.Email
	}
	user := &model.User{
		Email:    identity.Email,
		FullName: fullName,
		Image:    identity.AvatarURL,
		GoogleID: identity.Subject,
	}
	if err := s.userRepo.CreateWithStats(ctx, user); err != nil {
		return nil, "", err
	}
	return user, ResolutionCreated, nil
}

func (s *Service) issue(user *model.User) (*Result, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	return &Result{Token: token, User: user}, nil
}

// callbackURL は {FrontendURL}/auth/callback?token=..&user=..[&needs_profile_completion=true] を組み立てる。
func (s *Service) callbackURL(token string, user *model.User, needsCompletion bool) (string, error) {
	userJSON, err := json.Marshal(user.Summary())
	if err != nil {
		return "", model.NewInternalError(fmt.Errorf("failed to encode user: %w", err))
	}

	u := fmt.Sprintf("%s/auth/callback?token=%s&user=%s",
		strings.TrimRight(s.config.FrontendURL, "/"),
		url.QueryEscape(token),
		url.QueryEscape(string(userJSON)),
	)
	if needsCompletion {
		u += "&needs_profile_completion=true"
	}
	return u, nil
}

// NormalizePhone は電話番号をE.164形式に正規化する。空文字はそのまま返す。
func NormalizePhone(raw, defaultRegion string) (string, error) {
	if raw == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil {
		return "", fmt.Errorf("phoneNum: invalid phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("phoneNum: invalid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// generateState はOAuthのstateパラメータ用のランダム値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
