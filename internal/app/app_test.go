package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mateforge/mateauth/internal/config"
	"github.com/mateforge/mateauth/internal/logging"
)

func TestNonZeroDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, nonZeroDuration(0, 5*time.Second))
	assert.Equal(t, 5*time.Second, nonZeroDuration(-time.Second, 5*time.Second))
	assert.Equal(t, time.Second, nonZeroDuration(time.Second, 5*time.Second))
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()).Err())

	_, err = NewRedis(context.Background(), "://bad")
	assert.ErrorContains(t, err, "parse redis url")

	mr.SetError("LOADING server is loading")
	_, err = NewRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	assert.ErrorContains(t, err, "ping redis")
}

func TestNewDBPoolRejectsBadURL(t *testing.T) {
	_, err := NewDBPool(context.Background(), "postgres://%zz")
	assert.ErrorContains(t, err, "parse database url")
}

func TestNewRejectsInvalidEngineConfig(t *testing.T) {
	cfg := config.Config{JWTSecret: "short", LoginMaxAttempts: 5, LoginWindow: time.Minute}
	_, err := New(context.Background(), cfg, logging.Discard())
	assert.ErrorContains(t, err, "engine config")
}

func TestNewReleasesRedisOnDatabaseFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Config{
		JWTSecret:        "0123456789abcdef0123456789abcdef",
		AuthTokenTTL:     30 * time.Minute,
		VerifyTokenTTL:   12 * time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
		LoginMaxAttempts: 5,
		LoginWindow:      time.Minute,
		RedisURL:         "redis://" + mr.Addr() + "/0",
		DatabaseURL:      "postgres://%zz",
	}

	a, err := New(context.Background(), cfg, logging.Discard())
	assert.Nil(t, a)
	assert.ErrorContains(t, err, "parse database url")
}
