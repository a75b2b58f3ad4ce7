package handler

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// パスワードの最小文字数。
const minPasswordLength = 6

// FieldError は入力検証エラーの1フィールド分を表す。
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validateRegisterRequest は登録リクエストを検証し、フィールドごとのエラーを返す。
// エラーがない場合は空スライスを返す。
func validateRegisterRequest(req *registerRequest) []FieldError {
	var errs []FieldError

	errs = appendEmailErrors(errs, req.Email)
	errs = appendPasswordErrors(errs, req.PasswordHash)
	errs = appendRequiredError(errs, "first_name", req.FirstName, "名を入力してください。")
	errs = appendRequiredError(errs, "last_name", req.LastName, "姓を入力してください。")
	errs = appendRequiredError(errs, "user_type", req.UserType, "ユーザー種別を入力してください。")
	errs = appendRequiredError(errs, "business_name", req.BusinessName, "事業者名を入力してください。")
	errs = appendRequiredError(errs, "nit", req.NIT, "税務登録番号（NIT）を入力してください。")
	// business_typeは任意項目

	return errs
}

// validateLoginRequest はログインリクエストを検証し、フィールドごとのエラーを返す。
func validateLoginRequest(req *loginRequest) []FieldError {
	var errs []FieldError

	errs = appendEmailErrors(errs, req.Email)
	errs = appendPasswordErrors(errs, req.PasswordHash)

	return errs
}

func appendEmailErrors(errs []FieldError, email string) []FieldError {
	if strings.TrimSpace(email) == "" {
		return append(errs, FieldError{Field: "email", Message: "メールアドレスを入力してください。"})
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return append(errs, FieldError{Field: "email", Message: "メールアドレスの形式が正しくありません。"})
	}
	return errs
}

func appendPasswordErrors(errs []FieldError, password string) []FieldError {
	if password == "" {
		return append(errs, FieldError{Field: "password_hash", Message: "パスワードを入力してください。"})
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return append(errs, FieldError{Field: "password_hash", Message: "パスワードは6文字以上で入力してください。"})
	}
	return errs
}

func appendRequiredError(errs []FieldError, field, value, message string) []FieldError {
	if strings.TrimSpace(value) == "" {
		return append(errs, FieldError{Field: field, Message: message})
	}
	return errs
}
