package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/config"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
	"github.com/parisxmas/OxiDB/OxiForms/internal/token"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCmd(t *testing.T) {
	out, err := execute(t, "", "token", "--base-url", "https://forms.example.com")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, token.IsValid(lines[0]))
	assert.Equal(t, "https://forms.example.com/form/"+lines[0], lines[1])
}

func TestHashPasswordCmd(t *testing.T) {
	out, err := execute(t, "", "hash-password", "s3cret!")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("s3cret!", strings.TrimSpace(out)))

	out, err = execute(t, "from-stdin\n", "hash-password")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("from-stdin", strings.TrimSpace(out)))

	_, err = execute(t, "", "hash-password", "short")
	assert.Error(t, err)
}

func TestConfigCmd_MasksSecrets(t *testing.T) {
	t.Setenv("OXIFORMS_JWT__SECRET", "super-secret-value")
	out, err := execute(t, "", "config")
	require.NoError(t, err)

	assert.Contains(t, out, "driver: sqlite")
	assert.Contains(t, out, "shutdown_timeout: 10s")
	assert.NotContains(t, out, "super-secret-value")
	assert.NotContains(t, out, "admin123")
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "oxiforms dev\n", out)
}

func TestOpenStorage(t *testing.T) {
	for _, driver := range []string{config.DriverSQLite, config.DriverBadger} {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "store")
			st, err := openStorage(context.Background(), config.StorageConfig{Driver: driver, Path: path, PoolSize: 1}, zap.NewNop())
			require.NoError(t, err)
			defer st.close()

			ctx := context.Background()
			title := "T"
			form := models.BuildForm(models.FormDefinition{Title: &title, Sections: []models.SectionDefinition{
				{Name: "S", Fields: []models.FieldDefinition{{Label: "F", Type: "text"}}},
			}}, strings.Repeat("b", 64), uuid.NewString, time.Now().UTC())
			require.NoError(t, st.forms.CreateForm(ctx, form))

			got, err := st.forms.FindByToken(ctx, form.Token)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "T", got.Title)

			n, err := st.subs.CountByFormID(ctx, form.ID)
			require.NoError(t, err)
			assert.Zero(t, n)
			assert.True(t, st.health.Healthy())
		})
	}

	_, err := openStorage(context.Background(), config.StorageConfig{Driver: "postgres"}, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenStorage_LogsSQLitePathAndFormCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forms.db")
	core, logs := observer.New(zap.InfoLevel)

	st, err := openStorage(context.Background(), config.StorageConfig{Driver: config.DriverSQLite, Path: path, PoolSize: 1}, zap.New(core))
	require.NoError(t, err)
	defer st.close()

	opened := logs.FilterMessage("sqlite database opened").All()
	require.Len(t, opened, 1)
	fields := opened[0].ContextMap()
	assert.Equal(t, path, fields["path"])
	assert.EqualValues(t, 0, fields["forms"])
}
