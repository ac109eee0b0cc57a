package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-kiosk-api/internal/models"
	appErrors "github.com/noah-isme/sma-kiosk-api/pkg/errors"
)

const (
	ConfigKeyWorkStartTime        = "work_start_time"
	ConfigKeyLateThresholdMinutes = "late_threshold_minutes"
)

type configurationRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
	Get(ctx context.Context, key string) (*models.Configuration, error)
	Upsert(ctx context.Context, cfg *models.Configuration) error
}

type allowedConfiguration struct {
	Key         string
	Type        models.ConfigurationType
	Description string
}

var allowedConfigurationKeys = []string{
	ConfigKeyWorkStartTime,
	ConfigKeyLateThresholdMinutes,
}

var allowedConfigurations = map[string]allowedConfiguration{
	ConfigKeyWorkStartTime: {
		Key:         ConfigKeyWorkStartTime,
		Type:        models.ConfigurationTypeString,
		Description: "Daily work start time in HH:mm used to classify check-ins",
	},
	ConfigKeyLateThresholdMinutes: {
		Key:         ConfigKeyLateThresholdMinutes,
		Type:        models.ConfigurationTypeInteger,
		Description: "Grace period in minutes after work start before a check-in counts as late",
	},
}

// ConfigurationItem is the API view of one configuration entry.
type ConfigurationItem struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ConfigurationServiceConfig carries fallback values used until an admin has
// stored explicit ones.
type ConfigurationServiceConfig struct {
	DefaultWorkStartTime        string
	DefaultLateThresholdMinutes int
}

// ConfigurationService manages the attendance parameters. Values are read
// from storage on every check-in, so updates apply to subsequent calls only
// and never rewrite past classifications.
type ConfigurationService struct {
	repo     configurationRepository
	audit    auditRecorder
	logger   *zap.Logger
	defaults map[string]string
}

// NewConfigurationService constructs a ConfigurationService.
func NewConfigurationService(repo configurationRepository, audit auditRecorder, logger *zap.Logger, cfg ConfigurationServiceConfig) *ConfigurationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	workStart := cfg.DefaultWorkStartTime
	if workStart == "" {
		workStart = "07:00"
	}
	threshold := cfg.DefaultLateThresholdMinutes
	if threshold < 0 {
		threshold = 0
	}
	defaults := map[string]string{
		ConfigKeyWorkStartTime:        workStart,
		ConfigKeyLateThresholdMinutes: strconv.Itoa(threshold),
	}
	return &ConfigurationService{repo: repo, audit: audit, logger: logger, defaults: defaults}
}

// List returns all attendance configuration entries, falling back to defaults
// for keys never stored.
func (s *ConfigurationService) List(ctx context.Context) ([]ConfigurationItem, error) {
	rows, err := s.repo.ListByKeys(ctx, allowedKeys())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to list configurations")
	}
	existing := make(map[string]models.Configuration, len(rows))
	for _, row := range rows {
		existing[row.Key] = row
	}

	items := make([]ConfigurationItem, 0, len(allowedConfigurationKeys))
	for _, key := range allowedConfigurationKeys {
		meta := allowedConfigurations[key]
		item := ConfigurationItem{Key: key, Type: string(meta.Type), Description: meta.Description, Value: s.defaults[key]}
		if row, ok := existing[key]; ok {
			item.Value = row.Value
		}
		items = append(items, item)
	}
	return items, nil
}

// Get retrieves a single configuration entry by key.
func (s *ConfigurationService) Get(ctx context.Context, key string) (*ConfigurationItem, error) {
	meta, err := s.requireAllowedKey(key)
	if err != nil {
		return nil, err
	}
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return &ConfigurationItem{Key: key, Value: s.defaults[key], Type: string(meta.Type), Description: meta.Description}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to get configuration")
	}
	return &ConfigurationItem{Key: cfg.Key, Value: cfg.Value, Type: string(cfg.Type), Description: meta.Description}, nil
}

// Update validates and upserts a configuration entry.
func (s *ConfigurationService) Update(ctx context.Context, key, value string, actor *models.JWTClaims) (*ConfigurationItem, error) {
	meta, err := s.requireAllowedKey(key)
	if err != nil {
		return nil, err
	}
	value, err = validateConfigurationValue(meta, value)
	if err != nil {
		return nil, err
	}

	prev, err := s.repo.Get(ctx, key)
	if err != nil && err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to fetch configuration")
	}

	cfg := &models.Configuration{
		Key:         key,
		Value:       value,
		Type:        meta.Type,
		Description: strPtr(meta.Description),
		UpdatedBy:   userIDPtr(actor),
	}
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to update configuration")
	}

	s.emitAudit(actor, key, prevValue(prev), value)
	return &ConfigurationItem{Key: key, Value: value, Type: string(meta.Type), Description: meta.Description}, nil
}

// AttendanceConfiguration returns the check-in window parameters currently in
// effect. Called once per check-in.
func (s *ConfigurationService) AttendanceConfiguration(ctx context.Context) (*models.AttendanceConfiguration, error) {
	rows, err := s.repo.ListByKeys(ctx, allowedKeys())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, "failed to load attendance configuration")
	}
	values := map[string]string{
		ConfigKeyWorkStartTime:        s.defaults[ConfigKeyWorkStartTime],
		ConfigKeyLateThresholdMinutes: s.defaults[ConfigKeyLateThresholdMinutes],
	}
	for _, row := range rows {
		values[row.Key] = row.Value
	}

	threshold, err := strconv.Atoi(values[ConfigKeyLateThresholdMinutes])
	if err != nil || threshold < 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfiguration, "late_threshold_minutes must be a non-negative integer")
	}
	workStart := values[ConfigKeyWorkStartTime]
	if _, err := time.Parse("15:04", workStart); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfiguration, fmt.Sprintf("invalid work_start_time %q, expected HH:mm", workStart))
	}

	return &models.AttendanceConfiguration{WorkStartTime: workStart, LateThresholdMinutes: threshold}, nil
}

func (s *ConfigurationService) requireAllowedKey(key string) (allowedConfiguration, error) {
	meta, ok := allowedConfigurations[key]
	if !ok {
		return allowedConfiguration{}, appErrors.Clone(appErrors.ErrInvalidConfiguration, "unsupported configuration key")
	}
	return meta, nil
}

func validateConfigurationValue(meta allowedConfiguration, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch meta.Key {
	case ConfigKeyWorkStartTime:
		if _, err := time.Parse("15:04", value); err != nil {
			return "", appErrors.Clone(appErrors.ErrInvalidConfiguration, "work_start_time expects HH:mm")
		}
		return value, nil
	case ConfigKeyLateThresholdMinutes:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return "", appErrors.Clone(appErrors.ErrInvalidConfiguration, "late_threshold_minutes expects a non-negative integer")
		}
		return strconv.Itoa(n), nil
	default:
		return "", appErrors.Clone(appErrors.ErrInvalidConfiguration, "unsupported configuration key")
	}
}

func (s *ConfigurationService) emitAudit(actor *models.JWTClaims, key, oldValue, newValue string) {
	if s.audit == nil {
		return
	}
	oldBytes, _ := json.Marshal(map[string]string{"key": key, "value": oldValue})
	newBytes, _ := json.Marshal(map[string]string{"key": key, "value": newValue})
	s.audit.Enqueue(&models.AuditLog{
		UserID:     userIDPtr(actor),
		Action:     models.AuditActionConfigUpdate,
		Resource:   "configuration",
		ResourceID: &key,
		OldValues:  oldBytes,
		NewValues:  newBytes,
		IPAddress:  "system",
		UserAgent:  "configuration-service",
	})
}

func allowedKeys() []string {
	keys := make([]string, len(allowedConfigurationKeys))
	copy(keys, allowedConfigurationKeys)
	return keys
}

func prevValue(cfg *models.Configuration) string {
	if cfg == nil {
		return ""
	}
	return cfg.Value
}

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	return &actor.UserID
}

func strPtr(value string) *string {
	if value == "" {
		return nil
	}
	result := value
	return &result
}
