package datalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrolab/ph_node/internal/reading"
)

func TestCreateAndAppend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	start := time.Date(2017, 9, 1, 14, 30, 5, 0, time.UTC)

	l, err := Create(dir, start)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, filepath.Join(dir, "data_20170901_14_30_05.txt"), l.Path())

	r := reading.Reading{TemperatureC: 24, HumidityPct: 55, RefMillivolts: 612.5625, PHMillivolts: 1875.0}
	require.NoError(t, l.Append(r, 6.87))
	require.NoError(t, l.Append(r, 6.88))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 6)

	assert.Equal(t, "# wireless pH sensor data log", lines[0])
	assert.Equal(t, "# Date: 20170901_14_30_05", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "# Temperature (C)"))
	assert.Equal(t, "# ", lines[3])
	assert.Equal(t, "24    55    612.5625    1875.0000    1262.4375    6.87", lines[4])
	assert.Equal(t, "24    55    612.5625    1875.0000    1262.4375    6.88", lines[5])
}

func TestCreateMakesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	l, err := Create(dir, time.Now())
	require.NoError(t, err)
	defer l.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
