package repository

import (
	"context"
	"path/filepath"
	"testing"

	"transporter-onboarding/internal/config"
	"transporter-onboarding/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	store, err := NewStore(&config.Config{StoreDriver: "file", StorePath: "x.csv"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileRepository{}, store)

	_, err = NewStore(&config.Config{StoreDriver: "mysql"}, nil)
	assert.Error(t, err)

	_, err = NewStore(&config.Config{StoreDriver: "mongo"}, nil)
	assert.Error(t, err)
}

func TestSnapshot(t *testing.T) {
	s := NewSnapshot([]models.Transporter{{TaxID: " T1 "}, {TaxID: ""}, {TaxID: "T2"}, {TaxID: "T2"}})

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.ContainsIdentifier("T1"))
	assert.True(t, s.ContainsIdentifier(" T2"))
	assert.False(t, s.ContainsIdentifier("t1"))
	assert.False(t, s.ContainsIdentifier(""))

	var empty *Snapshot
	assert.False(t, empty.ContainsIdentifier("T1"))
}

func TestFindPageInMemory(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "transporters.csv"))
	ctx := context.Background()
	require.NoError(t, repo.Append(ctx, []models.Transporter{
		transporter("Sharma Roadways", "27AAPFU0939F1ZV"),
		transporter("Konkan Freight", "AAECK1234M"),
		transporter("Sharma Logistics", "29AAACS1111A1Z5"),
	}))

	rows, total, err := FindPage(ctx, repo, "sharma", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "Sharma Logistics", rows[0].CompanyName)

	rows, total, err = FindPage(ctx, repo, "aaeck", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Konkan Freight", rows[0].CompanyName)

	rows, total, err = FindPage(ctx, repo, "", 10, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, rows)
}
