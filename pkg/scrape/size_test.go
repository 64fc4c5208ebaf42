package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSizeDecimalSIAndBinaryBothUse1024(t *testing.T) {
	require.Equal(t, int64(1024), parseSize("1 KB"))
	require.Equal(t, int64(1024), parseSize("1 KiB"))
	require.Equal(t, int64(0), parseSize("not a size"))
}

func TestParseSeedersExtractsFirstNumber(t *testing.T) {
	n, ok := parseSeeders(" 87 ")
	require.True(t, ok)
	require.Equal(t, 87, n)
}

func TestParseSeedersReportsUnparseable(t *testing.T) {
	n, ok := parseSeeders("")
	require.False(t, ok)
	require.Equal(t, 0, n)
}
