// ABOUTME: Tests for the pipeline stage model
// ABOUTME: Verifies transitions, stage membership ordering and potential aggregation
package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/advisor-crm/models"
)

func sampleClients() []models.Client {
	return []models.Client{
		{ID: 3, LastName: "Svoboda", WorkflowStage: models.StageZpracovani},
		{ID: 1, LastName: "Novák", WorkflowStage: models.StageZpracovani},
		{ID: 2, LastName: "Dvořák", WorkflowStage: models.StagePodpis},
		{ID: 4, LastName: "Novák", WorkflowStage: models.StageZpracovani},
	}
}

func TestDisplayNames(t *testing.T) {
	assert.Equal(t, "Navolání", DisplayName(models.StageNavolani))
	assert.Equal(t, "Prodejní schůzka", DisplayName(models.StageProdejniSchuzka))
	assert.Equal(t, "Servis", DisplayName(models.StageServis))
}

func TestNextPrevious(t *testing.T) {
	next, ok := Next(models.StageNavolani)
	require.True(t, ok)
	assert.Equal(t, models.StageAnalyzaPotreb, next)

	_, ok = Next(models.StageServis)
	assert.False(t, ok)

	prev, ok := Previous(models.StagePodpis)
	require.True(t, ok)
	assert.Equal(t, models.StageProdejniSchuzka, prev)

	_, ok = Previous(models.StageNavolani)
	assert.False(t, ok)
}

func TestTransition(t *testing.T) {
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)
	c := models.Client{WorkflowStage: models.StageNavolani, UpdatedAt: created}

	assert.False(t, Transition(&c, models.StageNavolani, now))
	assert.Equal(t, created, c.UpdatedAt, "no-op transition keeps updatedAt")

	assert.True(t, Transition(&c, models.StageServis, now))
	assert.Equal(t, models.StageServis, c.WorkflowStage)
	assert.Equal(t, now, c.UpdatedAt)

	// Any stage may move to any other, including backwards.
	assert.True(t, Transition(&c, models.StageAnalyzaPotreb, now))
	assert.Equal(t, models.StageAnalyzaPotreb, c.WorkflowStage)
}

func TestClientsInStageSorted(t *testing.T) {
	got := ClientsInStage(sampleClients(), models.StageZpracovani)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 4, 3}, []int64{got[0].ID, got[1].ID, got[2].ID})

	assert.Empty(t, ClientsInStage(sampleClients(), models.StageServis))
}

func TestStageTotalPotential(t *testing.T) {
	idx := NewPotentialIndex([]models.ClientPotential{
		{ClientID: 1, TotalExpectedCommission: 30000},
		{ClientID: 3, TotalExpectedCommission: 25000},
		{ClientID: 2, TotalExpectedCommission: 99999},
	})

	// Client 4 has no potential and contributes zero.
	assert.Equal(t, 55000.0, StageTotalPotential(sampleClients(), models.StageZpracovani, idx))
	assert.Equal(t, 0.0, StageTotalPotential(sampleClients(), models.StageNavolani, idx))
}

func TestBoard(t *testing.T) {
	idx := NewPotentialIndex([]models.ClientPotential{{ClientID: 2, TotalExpectedCommission: 12000}})
	board := Board(sampleClients(), idx)

	require.Len(t, board, 6)
	for i, col := range board {
		assert.Equal(t, models.Stages[i], col.Stage)
		assert.NotNil(t, col.Clients)
	}
	assert.Equal(t, 3, board[2].Count)
	assert.Equal(t, "Podpis", board[4].Name)
	assert.Equal(t, 12000.0, board[4].TotalPotential)
}
