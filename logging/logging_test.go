// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()
	l := NewText(&buf, slog.LevelInfo).With("component", "test")

	l.Debug(ctx, "hidden")
	l.Info(ctx, "keypair generated", "attempts", 2, Redacted("forwards"))

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "component=test")
	require.Contains(t, out, "attempts=2")
	require.Contains(t, out, "forwards=")
	require.Contains(t, out, Placeholder())
}

func TestNop(t *testing.T) {
	ctx := context.Background()
	require.NotPanics(t, func() {
		l := OrNop(nil)
		l.Error(ctx, "dropped")
		l.With("k", "v").Warn(ctx, "dropped")
	})
}
