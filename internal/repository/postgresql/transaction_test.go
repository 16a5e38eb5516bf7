package postgresql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cloudincsa/leave-plugin-sub004/internal/domain/leave"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"wrapped deadlock", fmt.Errorf("add pending: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"foreign key violation", fmt.Errorf("create request: %w", &pgconn.PgError{Code: "23503"}), false},
		{"domain error", leave.ErrOverlappingLeave, false},
		{"plain error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestNewTransactor_MinimumOneAttempt(t *testing.T) {
	assert.Equal(t, 1, NewTransactor(nil, 0).maxAttempts)
	assert.Equal(t, 3, NewTransactor(nil, 3).maxAttempts)
}
