package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "pgconn", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: tenants.schema_name"), want: true},
		{name: "mysql", err: errors.New("Error 1062: Duplicate entry"), want: true},
		{name: "other", err: errors.New("connection refused"), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsDuplicateKeyErr(tc.err))
		})
	}
}

func TestNewTestIsolated(t *testing.T) {
	a, err := NewTest()
	assert.NoError(t, err)
	b, err := NewTest()
	assert.NoError(t, err)

	type probe struct {
		ID int64 `gorm:"primaryKey"`
	}
	assert.NoError(t, a.AutoMigrate(&probe{}))
	assert.NoError(t, a.Create(&probe{ID: 1}).Error)

	assert.False(t, b.Migrator().HasTable(&probe{}))
}
