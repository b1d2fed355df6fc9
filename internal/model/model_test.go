package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/notebook/internal/compute"
	"github.com/jask/notebook/internal/config"
	"github.com/jask/notebook/internal/logging"
	"github.com/jask/notebook/internal/worksheet"
)

type fakeOwner struct{ ws *worksheet.Worksheet }

func (o fakeOwner) Worksheet() *worksheet.Worksheet { return o.ws }

func TestNewWithoutStorage(t *testing.T) {
	t.Parallel()

	owner := fakeOwner{ws: worksheet.New()}
	m, err := New(owner, config.Config{}, logging.Discard())
	require.NoError(t, err)
	require.Nil(t, m.Worksheets())
	require.Equal(t, owner, m.Owner())

	clients := m.RPCClients()
	require.Len(t, clients, 1)
	require.Same(t, m.Compute().Client(), clients[0])
	require.NoError(t, m.Terminate())
}

func TestNewWithStorage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", "nb.db")
	cfg := config.Config{Database: config.DatabaseConfig{Path: path}}
	m, err := New(fakeOwner{}, cfg, logging.Discard())
	require.NoError(t, err)
	require.NotNil(t, m.Worksheets())

	ctx := context.Background()
	require.NoError(t, m.Worksheets().Save(ctx, "default", worksheet.NewDefault()))
	m.Start(ctx)
	require.NoError(t, m.Terminate())

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestNewRejectsUnknownEngine(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Compute: config.ComputeConfig{Engine: "nope"}}
	_, err := New(fakeOwner{}, cfg, logging.Discard())
	require.Error(t, err)
}

func TestSageInstallation(t *testing.T) {
	t.Parallel()

	m, err := New(fakeOwner{}, config.Config{}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Terminate() })

	_, err = m.SageInstallation(t.TempDir())
	require.ErrorIs(t, err, compute.ErrInstallationNotFound)
}
