package disk

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ABS-leo/bustub-lab/common"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, uuid.New().String()+".db")
}

func TestFileManager_RoundTrip(t *testing.T) {
	path := tempDBPath(t)
	d, err := NewFileManager(path)
	require.NoError(t, err)
	defer d.Close()

	buf := make([]byte, common.PageSize)
	copy(buf, "page zero payload")
	require.NoError(t, d.WritePage(0, buf))

	buf2 := make([]byte, common.PageSize)
	copy(buf2, "page three payload")
	require.NoError(t, d.WritePage(3, buf2))

	got := make([]byte, common.PageSize)
	require.NoError(t, d.ReadPage(0, got))
	require.Equal(t, buf, got)

	got3 := make([]byte, common.PageSize)
	require.NoError(t, d.ReadPage(3, got3))
	require.Equal(t, buf2, got3)
}

func TestFileManager_RejectsWrongSizedBuffers(t *testing.T) {
	path := tempDBPath(t)
	d, err := NewFileManager(path)
	require.NoError(t, err)
	defer d.Close()

	require.Error(t, d.WritePage(0, make([]byte, 10)))
	require.Error(t, d.ReadPage(0, make([]byte, 10)))
}

func TestMemManager_RecordsWrites(t *testing.T) {
	m := NewMemManager()
	buf := make([]byte, common.PageSize)
	require.NoError(t, m.WritePage(5, buf))
	require.NoError(t, m.WritePage(2, buf))
	require.Equal(t, []int32{5, 2}, m.Writes)
}

func TestMemManager_UnwrittenPageReadsZero(t *testing.T) {
	m := NewMemManager()
	got := make([]byte, common.PageSize)
	for i := range got {
		got[i] = 0xFF
	}
	require.NoError(t, m.ReadPage(42, got))
	for _, b := range got {
		require.Equal(t, byte(0), b)
	}
}
