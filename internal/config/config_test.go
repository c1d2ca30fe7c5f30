/*
 * Copyright The pg2arrow Authors
 * SPDX-License-Identifier: Apache-2.0
 */

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaultSegmentSize(t *testing.T) {
	c, err := New("out.arrow", 0, false)
	require.NoError(t, err)
	require.Equal(t, DefaultSegmentSize, c.SegmentSize)
}

func TestNewRejectsSegmentBelowMinimum(t *testing.T) {
	_, err := New("out.arrow", MinSegmentSize-1, false)
	require.ErrorIs(t, err, ErrSegmentTooSmall)
}

func TestNewRejectsEmptyOutputPath(t *testing.T) {
	_, err := New("", DefaultSegmentSize, false)
	require.ErrorIs(t, err, ErrNoOutputPath)
}
