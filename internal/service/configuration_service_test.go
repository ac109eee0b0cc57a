package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
	appErrors "github.com/noah-isme/sma-kiosk-api/pkg/errors"
)

type configurationRepoStub struct {
	items map[string]models.Configuration
	err   error
}

func (s *configurationRepoStub) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	if s.err != nil {
		return nil, s.err
	}
	result := []models.Configuration{}
	for _, key := range keys {
		if cfg, ok := s.items[key]; ok {
			result = append(result, cfg)
		}
	}
	return result, nil
}

func (s *configurationRepoStub) Get(ctx context.Context, key string) (*models.Configuration, error) {
	if s.err != nil {
		return nil, s.err
	}
	if cfg, ok := s.items[key]; ok {
		return &cfg, nil
	}
	return nil, sql.ErrNoRows
}

func (s *configurationRepoStub) Upsert(ctx context.Context, cfg *models.Configuration) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = make(map[string]models.Configuration)
	}
	s.items[cfg.Key] = *cfg
	return nil
}

func newTestConfigurationService(repo *configurationRepoStub) (*ConfigurationService, *auditStub) {
	audit := &auditStub{}
	svc := NewConfigurationService(repo, audit, nil, ConfigurationServiceConfig{
		DefaultWorkStartTime:        "07:00",
		DefaultLateThresholdMinutes: 15,
	})
	return svc, audit
}

func TestConfigurationServiceUpdateWorkStart(t *testing.T) {
	repo := &configurationRepoStub{}
	svc, audit := newTestConfigurationService(repo)

	item, err := svc.Update(context.Background(), ConfigKeyWorkStartTime, "07:30", &models.JWTClaims{UserID: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "07:30", item.Value)
	assert.Equal(t, "STRING", item.Type)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionConfigUpdate, audit.logs[0].Action)
}

func TestConfigurationServiceUpdateRejectsBadWorkStart(t *testing.T) {
	svc, _ := newTestConfigurationService(&configurationRepoStub{})
	_, err := svc.Update(context.Background(), ConfigKeyWorkStartTime, "7am", &models.JWTClaims{UserID: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidConfiguration.Code, appErrors.FromError(err).Code)
}

func TestConfigurationServiceUpdateRejectsNegativeThreshold(t *testing.T) {
	svc, _ := newTestConfigurationService(&configurationRepoStub{})
	_, err := svc.Update(context.Background(), ConfigKeyLateThresholdMinutes, "-5", &models.JWTClaims{UserID: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidConfiguration.Code, appErrors.FromError(err).Code)
}

func TestConfigurationServiceUpdateUnknownKey(t *testing.T) {
	svc, _ := newTestConfigurationService(&configurationRepoStub{})
	_, err := svc.Update(context.Background(), "unknown_key", "value", &models.JWTClaims{UserID: "admin"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidConfiguration.Code, appErrors.FromError(err).Code)
}

func TestAttendanceConfigurationFallsBackToDefaults(t *testing.T) {
	svc, _ := newTestConfigurationService(&configurationRepoStub{})
	cfg, err := svc.AttendanceConfiguration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "07:00", cfg.WorkStartTime)
	assert.Equal(t, 15, cfg.LateThresholdMinutes)
}

func TestAttendanceConfigurationUsesStoredValues(t *testing.T) {
	repo := &configurationRepoStub{items: map[string]models.Configuration{
		ConfigKeyWorkStartTime:        {Key: ConfigKeyWorkStartTime, Value: "08:00", Type: models.ConfigurationTypeString},
		ConfigKeyLateThresholdMinutes: {Key: ConfigKeyLateThresholdMinutes, Value: "5", Type: models.ConfigurationTypeInteger},
	}}
	svc, _ := newTestConfigurationService(repo)
	cfg, err := svc.AttendanceConfiguration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "08:00", cfg.WorkStartTime)
	assert.Equal(t, 5, cfg.LateThresholdMinutes)
}

func TestConfigurationServiceGetReturnsDefaultWhenMissing(t *testing.T) {
	svc, _ := newTestConfigurationService(&configurationRepoStub{})
	item, err := svc.Get(context.Background(), ConfigKeyLateThresholdMinutes)
	require.NoError(t, err)
	assert.Equal(t, "15", item.Value)
}

func TestConfigurationServiceListMergesStoredAndDefaults(t *testing.T) {
	repo := &configurationRepoStub{items: map[string]models.Configuration{
		ConfigKeyWorkStartTime: {Key: ConfigKeyWorkStartTime, Value: "06:45", Type: models.ConfigurationTypeString},
	}}
	svc, _ := newTestConfigurationService(repo)
	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	byKey := map[string]string{}
	for _, item := range items {
		byKey[item.Key] = item.Value
	}
	assert.Equal(t, "06:45", byKey[ConfigKeyWorkStartTime])
	assert.Equal(t, "15", byKey[ConfigKeyLateThresholdMinutes])
}
