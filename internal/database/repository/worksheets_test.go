package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/notebook/internal/database"
	"github.com/jask/notebook/internal/worksheet"
)

func openRepo(t *testing.T) *WorksheetRepo {
	t.Helper()
	db, err := database.OpenMigrated(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWorksheetRepo(db)
}

func TestSaveAndLoadWorksheet(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	repo := openRepo(t)

	ws := worksheet.NewDefault()
	first, err := ws.At(0)
	require.NoError(t, err)
	first.SetBusy(true)
	require.NoError(t, first.AccumulateStdout("123\n"))
	first.SetBusy(false)
	first.SetIndex(1)

	busy, err := ws.At(1)
	require.NoError(t, err)
	busy.SetBusy(true)
	require.NoError(t, busy.AccumulateStdout("partial"))

	require.NoError(t, repo.Save(ctx, "default", ws))

	loaded, err := repo.Load(ctx, "default")
	require.NoError(t, err)
	require.Equal(t, ws.Len(), loaded.Len())

	orig := ws.Cells()
	for i, c := range loaded.Cells() {
		require.Equal(t, orig[i].ID(), c.ID())
		require.Equal(t, orig[i].Input(), c.Input())
		require.False(t, c.Busy())
	}

	got, err := loaded.Cell(first.ID())
	require.NoError(t, err)
	require.Equal(t, "123\n", got.Stdout())
	n, ok := got.Index()
	require.True(t, ok)
	require.Equal(t, 1, n)

	got, err = loaded.Cell(busy.ID())
	require.NoError(t, err)
	require.Empty(t, got.Stdout())
	_, ok = got.Index()
	require.False(t, ok)
}

func TestSaveReplacesCells(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := openRepo(t)

	ws := worksheet.NewDefault()
	require.NoError(t, repo.Save(ctx, "w", ws))

	for _, c := range ws.Cells()[1:] {
		_, err := ws.Delete(c)
		require.NoError(t, err)
	}
	require.NoError(t, repo.Save(ctx, "w", ws))

	loaded, err := repo.Load(ctx, "w")
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())

	infos, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "w", infos[0].Name)
	require.Equal(t, 1, infos[0].Cells)
}

func TestLoadMissingWorksheet(t *testing.T) {
	t.Parallel()

	repo := openRepo(t)
	_, err := repo.Load(context.Background(), "nope")
	require.ErrorIs(t, err, ErrWorksheetNotFound)
	require.ErrorIs(t, repo.Delete(context.Background(), "nope"), ErrWorksheetNotFound)
}

func TestDeleteWorksheetCascades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := openRepo(t)
	require.NoError(t, repo.Save(ctx, "gone", worksheet.NewDefault()))
	require.NoError(t, repo.Delete(ctx, "gone"))

	var count int
	require.NoError(t, repo.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cells").Scan(&count))
	require.Zero(t, count)
}

func TestSaveWithCancelledContextStoresNothing(t *testing.T) {
	t.Parallel()

	repo := openRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, repo.Save(ctx, "cancelled", worksheet.NewDefault()), context.Canceled)

	_, err := repo.Load(context.Background(), "cancelled")
	require.ErrorIs(t, err, ErrWorksheetNotFound)
	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, list)
}
