package idempotency

import "time"

const (
	MaxKeyLength = 255
	DefaultTTL   = 24 * time.Hour
	HeaderKey    = "Idempotency-Key"
)

// Record - закешированный ответ на мутирующий запрос, уникален по (UserID, Key)
type Record struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	Key          string    `json:"idempotency_key" db:"idempotency_key"`
	RequestHash  string    `json:"request_hash" db:"request_hash"`
	ResponseBody []byte    `json:"-" db:"response_body"`
	StatusCode   int       `json:"status_code" db:"status_code"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

type CachedResponse struct {
	StatusCode  int
	Body        []byte
	RequestHash string
}
