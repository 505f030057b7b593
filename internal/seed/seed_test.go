package seed_test

import (
	"context"
	"eofficeTracker/internal/repository/inmemory"
	"eofficeTracker/internal/seed"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `
actors:
  - id: 6f1c2a4e-8d3b-4c7a-9e21-0b5d7f3a9c11
    username: boss
    email: boss@example.com
    profile:
      is_manager: true
  - id: 0d9e8f7a-6b5c-4d3e-8f21-a1b2c3d4e5f6
    username: officer
    email: officer@example.com
    profile:
      phone_number: "+15550001"
  - id: 3a4b5c6d-7e8f-4a1b-9c2d-3e4f5a6b7c8d
    username: root
    is_superuser: true
`

// TestParse тестирует разбор YAML
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "success - three actors", input: fixture, want: 3},
		{name: "success - empty file", input: "", want: 0},
		{name: "error - bad id", input: "actors:\n  - id: nope\n    username: x\n", wantErr: true},
		{name: "error - missing username", input: "actors:\n  - id: 6f1c2a4e-8d3b-4c7a-9e21-0b5d7f3a9c11\n", wantErr: true},
		{name: "error - unknown field", input: "actors:\n  - id: 6f1c2a4e-8d3b-4c7a-9e21-0b5d7f3a9c11\n    username: x\n    role: admin\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actors, err := seed.Parse(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, actors, tt.want)
		})
	}

	actors, err := seed.Parse(strings.NewReader(fixture))
	require.NoError(t, err)
	require.NotNil(t, actors[0].Profile)
	assert.True(t, actors[0].Profile.IsManager)
	assert.Equal(t, "+15550001", actors[1].PhoneNumber())
	assert.Nil(t, actors[2].Profile)
	assert.True(t, actors[2].IsSuperuser)
}

// TestLoadFile тестирует загрузку в хранилище
func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "actors.yml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))

	store := inmemory.NewActorStorage()
	n, err := seed.LoadFile(ctx, path, store)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	a, err := store.GetByUsername(ctx, "OFFICER")
	require.NoError(t, err)
	assert.Equal(t, "officer@example.com", a.Email)

	_, err = seed.LoadFile(ctx, filepath.Join(t.TempDir(), "missing.yml"), store)
	assert.Error(t, err)
}
