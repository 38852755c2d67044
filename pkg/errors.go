// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Sabit error değişkenleri sayesinde karşılaştırma string yerine referans ile yapılır:
//
//	if errors.Is(err, pkg.ErrNotJoined) { ... }
package pkg

import "errors"

// Domain-level error'lar.
// HTTP handler'lar bunları status code'a, WebSocket client'ı ise
// error event'indeki code alanına map'ler.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrInternal     = errors.New("internal error")

	// ErrValidation, boş veya hatalı mesaj payload'ı. Broadcast yapılmaz.
	ErrValidation = errors.New("validation error")
	// ErrNotJoined, session'ın katılmadığı takıma gönderim.
	ErrNotJoined = errors.New("not joined")
	// ErrStorage, kalıcı katman hatası. Mesaj yayınlanmaz, client tekrar deneyebilir.
	ErrStorage = errors.New("storage error")
	// ErrRateLimited, mesaj spam koruması devrede.
	ErrRateLimited = errors.New("rate limited")
)

// Error code'ları. WebSocket error event'inde client'a giden sabit değerler.
const (
	CodeValidation   = "validation_error"
	CodeNotJoined    = "not_joined"
	CodeStorage      = "storage_error"
	CodeForbidden    = "forbidden"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeRateLimited  = "rate_limited"
	CodeBadRequest   = "bad_request"
	CodeInternal     = "internal_error"
)

// ErrorCode, error chain'ini tarayıp client'a gidecek sabit code'u döner.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotJoined):
		return CodeNotJoined
	case errors.Is(err, ErrStorage):
		return CodeStorage
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case errors.Is(err, ErrBadRequest):
		return CodeBadRequest
	default:
		return CodeInternal
	}
}

// IsRetryable, aynı isteğin tekrar denenmesinin anlamlı olup olmadığını döner.
// Storage ve rate limit hataları geçicidir; validation ve yetki hataları değildir.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage) || errors.Is(err, ErrRateLimited)
}
