package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumeoai/lumeo/pkg/logger"
)

func TestGroup(t *testing.T) {
	t.Parallel()

	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	assert.Len(t, attr.Value.Group(), 2)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	attr := logger.Errors(errors.New("first"), nil, errors.New("third"))
	require.Equal(t, "errors", attr.Key)
	assert.Len(t, attr.Value.Group(), 2)

	assert.Equal(t, slog.Attr{}, logger.Errors(nil, nil))
}

func TestError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))

	attr := logger.Error(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
}

func TestUserID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.UserID(""))

	attr := logger.UserID("u-1")
	assert.Equal(t, "user_id", attr.Key)
	assert.Equal(t, "u-1", attr.Value.String())
}

func TestDomainAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tier", logger.Tier("pro").Key)
	assert.Equal(t, int64(50), logger.Credits(50).Value.Int64())
	assert.Equal(t, "component", logger.Component("renewer").Key)
}
