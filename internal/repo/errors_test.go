package repo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapError(t *testing.T) {
	plain := errors.New("connection refused")

	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"nil", nil, nil},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), ErrNotFound},
		{"foreign key", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, Message: "fk"}, ErrInvalidState},
		{"restrict", &pgconn.PgError{Code: pgerrcode.RestrictViolation, Message: "restrict"}, ErrInvalidState},
		{"unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "dup"}, ErrAlreadyExists},
		{"wrapped unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation}), ErrAlreadyExists},
		{"other pg error", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, nil},
		{"plain", plain, plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)

			switch {
			case tt.err == nil:
				if got != nil {
					t.Errorf("expected nil, got %v", got)
				}
			case tt.expected == nil:
				// неизвестный код возвращается как есть
				if got != tt.err {
					t.Errorf("expected original error, got %v", got)
				}
			default:
				if !errors.Is(got, tt.expected) {
					t.Errorf("expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}

func TestMapError_KeepsPgMessage(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, Message: "duplicate key natural_key"})
	if err.Error() != "already exists: duplicate key natural_key" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}
