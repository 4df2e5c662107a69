package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"fitpass_backend/internal/models"
)

// PaymentRepository stores invoice outcomes received from the payment processor.
type PaymentRepository interface {
	RecordPayment(executor SQLExecutor, payment *models.Payment) (bool, error) // false when already recorded
	GetPaymentsByUser(userID int64, page, pageSize int) ([]models.Payment, int, error)
}

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// RecordPayment is idempotent on (invoice_id, status) so webhook retries do not duplicate rows.
func (r *paymentRepository) RecordPayment(executor SQLExecutor, payment *models.Payment) (bool, error) {
	query := `INSERT INTO payments (user_id, invoice_id, subscription_id, amount, currency, status, invoice_url, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	          ON CONFLICT ON CONSTRAINT payments_invoice_status_key DO NOTHING
	          RETURNING id, created_at`
	err := executor.QueryRow(query, payment.UserID, payment.InvoiceID, payment.SubscriptionID, payment.Amount,
		payment.Currency, payment.Status, payment.InvoiceURL).Scan(&payment.ID, &payment.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(err, "recording payment")
	}
	return true, nil
}

func (r *paymentRepository) GetPaymentsByUser(userID int64, page, pageSize int) ([]models.Payment, int, error) {
	query, args := paginate(`SELECT id, user_id, invoice_id, subscription_id, amount, currency, status, invoice_url, created_at,
	                                COUNT(*) OVER() AS total_count
	                         FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, []interface{}{userID}, 2, page, pageSize)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying payments: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	total := 0
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.InvoiceID, &p.SubscriptionID, &p.Amount, &p.Currency, &p.Status,
			&p.InvoiceURL, &p.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning payment: %v", ErrDatabaseError, err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating payments: %v", ErrDatabaseError, err)
	}
	return payments, total, nil
}
