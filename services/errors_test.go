package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestDescribeStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"record not found", gorm.ErrRecordNotFound, "not_found"},
		{"link not found", fmt.Errorf("wrap: %w", ErrLinkNotFound), "not_found"},
		{"lock timeout", fmt.Errorf("lock link: %w", &pgconn.PgError{Code: "55P03"}), "lock_timeout"},
		{"serialization", &pgconn.PgError{Code: "40001"}, "serialization_failure"},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, "deadlock"},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, "statement_timeout"},
		{"other pg", &pgconn.PgError{Code: "23505"}, "pg_23505"},
		{"plain", errors.New("connection refused"), "store_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DescribeStoreError(tt.err))
		})
	}
}
