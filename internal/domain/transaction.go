package domain

import "time"

// Transaction types. Amounts are stored as positive magnitudes; the sign
// is derived from Type at aggregation time.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

type Transaction struct {
	TransactionID string    `json:"id" dynamodbav:"transaction_id"`
	OwnerID       string    `json:"owner_id" dynamodbav:"owner_id"`
	Title         string    `json:"title" dynamodbav:"title"`
	Amount        float64   `json:"amount" dynamodbav:"amount"`
	Type          string    `json:"type" dynamodbav:"type"` // "income" | "expense"
	Date          time.Time `json:"date" dynamodbav:"date"`
	Category      string    `json:"category" dynamodbav:"category"`
	Notes         string    `json:"notes,omitempty" dynamodbav:"notes"`
	CreatedAt     time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateTransactionRequest struct {
	Title    string  `json:"title" validate:"required"`
	Amount   float64 `json:"amount" validate:"required,gt=0"`
	Type     string  `json:"type" validate:"required,oneof=income expense"`
	Date     *string `json:"date"` // RFC 3339 or YYYY-MM-DD; defaults to now
	Category string  `json:"category" validate:"required"`
	Notes    string  `json:"notes"`
}

type UpdateTransactionRequest struct {
	Title    *string  `json:"title"`
	Amount   *float64 `json:"amount" validate:"omitempty,gt=0"`
	Type     *string  `json:"type" validate:"omitempty,oneof=income expense"`
	Date     *string  `json:"date"`
	Category *string  `json:"category"`
	Notes    *string  `json:"notes"`
}
