package inference

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cppla/pneumoscan/models"
)

func TestLocalArchiveSaveDelete(t *testing.T) {
	dir := t.TempDir()
	archive := NewLocalArchive(dir)
	archive.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	ctx := context.Background()

	loc, err := archive.Save(ctx, "abc", "png", "image/png", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024", "05", "06", "abc.png"), loc)

	b, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))

	_, err = archive.Save(ctx, "abc", "png", "image/png", []byte("other"))
	assert.Error(t, err, "keys are never overwritten")

	require.NoError(t, archive.Delete(ctx, loc))
	_, err = os.Stat(loc)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, archive.Delete(ctx, loc), "deleting twice is fine")
}

func TestSweepExpired(t *testing.T) {
	db := newTestDB(t)
	archive := NewLocalArchive(t.TempDir())
	ctx := context.Background()
	now := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)

	oldLoc, err := archive.Save(ctx, "old", "png", "image/png", []byte("a"))
	require.NoError(t, err)
	freshLoc, err := archive.Save(ctx, "fresh", "png", "image/png", []byte("b"))
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Scan{Key: "old", Label: LabelNormal, Location: oldLoc, ExpireAt: now.Add(-time.Minute)}).Error)
	require.NoError(t, db.Create(&models.Scan{Key: "fresh", Label: LabelPneumonia, Location: freshLoc, ExpireAt: now.Add(time.Hour)}).Error)
	require.NoError(t, db.Create(&models.Scan{Key: "gone", Label: LabelNormal, Location: filepath.Join(t.TempDir(), "missing.png"), ExpireAt: now.Add(-time.Hour)}).Error)

	n, err := SweepExpired(ctx, db, archive, now, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var left []models.Scan
	require.NoError(t, db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, "fresh", left[0].Key)

	_, err = os.Stat(oldLoc)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshLoc)
	assert.NoError(t, err)
}
