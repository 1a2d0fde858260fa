package jobs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("run failed: %w", FetchError("balance", errors.New("timeout")))

	assert.Equal(t, KindFetch, KindOf(err))
	assert.True(t, IsKind(err, KindFetch))
	assert.False(t, IsKind(err, KindDelivery))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(FetchError("query", errors.New("conn reset"))))
	assert.True(t, IsRetryable(DeliveryError("notify", errors.New("502"))))
	assert.True(t, IsRetryable(errors.New("unclassified")))
	assert.False(t, IsRetryable(MissingSecretsError("IRYS_PRIVATE_KEY")))
	assert.False(t, IsRetryable(nil))
}

func TestDescribeError(t *testing.T) {
	assert.Equal(t, "insufficient funds", DescribeError(ActionError("fund", errors.New("insufficient funds"))))
	assert.Equal(t, "boom", DescribeError(errors.New(" boom ")))
	assert.Equal(t, "Unknown error", DescribeError(nil))
	assert.Equal(t, "Unknown error", DescribeError(errors.New("")))
}

func TestMissingSecretsError(t *testing.T) {
	err := MissingSecretsError("IRYS_PRIVATE_KEY", "DISCORD_WEBHOOK_URL")

	assert.Equal(t, KindConfiguration, KindOf(err))
	assert.EqualError(t, err, "config: missing required environment variables: IRYS_PRIVATE_KEY, DISCORD_WEBHOOK_URL")
}

func TestRunContext_LocalTime(t *testing.T) {
	rc := RunContext{Timezone: "Asia/Tokyo"}
	rc.Timestamp = mustUTC(t, "2026-10-17T00:00:00Z")

	assert.Equal(t, "10/17/2026, 9:00:00 AM", rc.LocalTime())
	assert.Equal(t, "UTC", RunContext{Timezone: "Not/AZone"}.Location().String())
}
