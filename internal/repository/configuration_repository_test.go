package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
)

func TestConfigurationRepositoryListByKeys(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	now := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"key", "value", "type", "description", "updated_by", "updated_at"}).
		AddRow("late_threshold_minutes", "15", "INTEGER", nil, nil, now).
		AddRow("work_start_time", "07:00", "STRING", nil, nil, now)

	mock.ExpectQuery("SELECT (.+) FROM configurations WHERE key IN").
		WithArgs("work_start_time", "late_threshold_minutes").
		WillReturnRows(rows)

	configs, err := repo.ListByKeys(context.Background(), []string{"work_start_time", "late_threshold_minutes"})
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "late_threshold_minutes", configs[0].Key)
	assert.Equal(t, "07:00", configs[1].Value)
}

func TestConfigurationRepositoryListByKeysEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	configs, err := repo.ListByKeys(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, configs)
}

func TestConfigurationRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM configurations WHERE key").
		WithArgs("work_start_time").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "work_start_time")
	assert.Equal(t, sql.ErrNoRows, err)
}

func TestConfigurationRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)

	mock.ExpectExec("INSERT INTO configurations").
		WillReturnResult(sqlmock.NewResult(0, 1))

	cfg := &models.Configuration{
		Key:   "work_start_time",
		Value: "07:30",
		Type:  models.ConfigurationTypeString,
	}
	require.NoError(t, repo.Upsert(context.Background(), cfg))
	assert.False(t, cfg.UpdatedAt.IsZero())
}
