package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// QuestionOrderRepository reads persisted shuffled question orders.
type QuestionOrderRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionOrderRepository creates a new QuestionOrderRepository.
func NewQuestionOrderRepository(pool *pgxpool.Pool) *QuestionOrderRepository {
	return &QuestionOrderRepository{pool: pool}
}

// GetLatest returns the most recent order stored for a student in a session,
// or (nil, nil) if none exists.
func (r *QuestionOrderRepository) GetLatest(ctx context.Context, sessionID, regNo string) ([]model.Question, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT questions
		 FROM attempt_question_orders
		 WHERE session_id = $1 AND reg_no = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		sessionID, normalizeRegNo(regNo),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var qs []model.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, fmt.Errorf("decode question order: %w", err)
	}
	return qs, nil
}
