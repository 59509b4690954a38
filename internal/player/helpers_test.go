// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marquee Contributors

package player_test

import (
	"testing"

	"github.com/marquee-player/marquee/internal/fileio"
)

func fileioRoots(t *testing.T) fileio.Roots {
	t.Helper()
	return fileio.Roots{Data: t.TempDir(), Tmp: t.TempDir(), Plugin: t.TempDir()}
}
