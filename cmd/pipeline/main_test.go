package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/sumo-flow-backend/internal/middleware"
)

func TestPrintToken(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printToken(&buf, "cli-secret", "ops", time.Hour))

	tok := strings.TrimSpace(buf.String())
	claims, err := middleware.ParseToken("cli-secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, "operator", claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	_, err = middleware.ParseToken("other-secret", tok)
	assert.Error(t, err)
}

func TestPrintTokenRejectsNonPositiveTTL(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, printToken(&buf, "cli-secret", "ops", 0))
	assert.Empty(t, buf.String())
}
