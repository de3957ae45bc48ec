package types_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zakazai/flatdb/internal/types"
)

func TestInitLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := types.InitLogger(types.LogLevelWarning, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "table", "people")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "table=people")
}

func TestParseLogLevel(t *testing.T) {
	l, err := types.ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, types.LogLevelDebug, l)

	l, err = types.ParseLogLevel("none")
	require.NoError(t, err)
	buf := bytes.Buffer{}
	types.InitLogger(l, &buf).Error("nope")
	assert.Empty(t, buf.String())

	_, err = types.ParseLogLevel("loud")
	assert.Error(t, err)
}
