package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// TaskConfig holds the schedule and budget parameters of one task.
// Threshold, FundAmount and Upload only apply to budget tasks.
type TaskConfig struct {
	Enabled    bool            `mapstructure:"enabled"`
	Cron       string          `mapstructure:"cron"`
	Timezone   string          `mapstructure:"timezone"`
	Threshold  decimal.Decimal `mapstructure:"threshold"`
	FundAmount decimal.Decimal `mapstructure:"fund_amount"`
	Upload     bool            `mapstructure:"upload"`
}

type TasksConfig struct {
	BudgetCheck  TaskConfig `mapstructure:"budget_check"`
	BudgetUpload TaskConfig `mapstructure:"budget_upload"`
	MintStats    TaskConfig `mapstructure:"mint_stats"`
}

func (t TasksConfig) byKey() map[string]TaskConfig {
	return map[string]TaskConfig{
		"budget_check":  t.BudgetCheck,
		"budget_upload": t.BudgetUpload,
		"mint_stats":    t.MintStats,
	}
}

// validate checks an enabled task. Budget tasks always fund by a fixed
// positive amount.
func (t TaskConfig) validate(budget bool) error {
	if !t.Enabled {
		return nil
	}
	if strings.TrimSpace(t.Cron) == "" {
		return errors.New("cron is required")
	}
	if !budget {
		return nil
	}
	if t.Threshold.IsNegative() {
		return fmt.Errorf("threshold must not be negative, got %s", t.Threshold)
	}
	if !t.FundAmount.IsPositive() {
		return fmt.Errorf("fund_amount must be positive, got %s", t.FundAmount)
	}
	return nil
}

func setTaskDefaults(v *viper.Viper) {
	v.SetDefault("tasks.budget_check.enabled", true)
	v.SetDefault("tasks.budget_check.cron", "0 * * * *")
	v.SetDefault("tasks.budget_check.timezone", "Asia/Tokyo")
	v.SetDefault("tasks.budget_check.threshold", "0.1")
	v.SetDefault("tasks.budget_check.fund_amount", "1")
	v.SetDefault("tasks.budget_check.upload", false)

	v.SetDefault("tasks.budget_upload.enabled", true)
	v.SetDefault("tasks.budget_upload.cron", "0 * * * *")
	v.SetDefault("tasks.budget_upload.timezone", "Asia/Tokyo")
	v.SetDefault("tasks.budget_upload.threshold", "1.1")
	v.SetDefault("tasks.budget_upload.fund_amount", "1")
	v.SetDefault("tasks.budget_upload.upload", true)

	v.SetDefault("tasks.mint_stats.enabled", true)
	v.SetDefault("tasks.mint_stats.cron", "0 * * * *")
	v.SetDefault("tasks.mint_stats.timezone", "UTC")
}

// decodeHook accepts decimals written as strings or numbers and durations
// written as Go duration strings.
func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		decimalHook,
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

func decimalHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid decimal %q", v)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case decimal.Decimal:
		return v, nil
	}
	return nil, fmt.Errorf("cannot decode %s into decimal", from)
}
