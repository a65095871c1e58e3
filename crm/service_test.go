// ABOUTME: Tests for the application service
// ABOUTME: Uses a temp badger store and an in-memory mirror remote
package crm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/advisor-crm/charm"
	"github.com/harperreed/advisor-crm/logging"
	"github.com/harperreed/advisor-crm/mirror"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/potential"
	"github.com/harperreed/advisor-crm/store"
)

func newTestService(t *testing.T) (*Service, *mirror.MemoryRemote, store.Session) {
	t.Helper()
	st, err := store.Open(charm.NewTestBackend(t), store.WithLogger(logging.Discard()))
	require.NoError(t, err)
	remote := mirror.NewMemoryRemote()
	svc := New(st, mirror.New(remote, logging.Discard()), WithLogger(logging.Discard()), WithPushTimeout(time.Second))
	sess, err := st.SessionFor("poradce")
	require.NoError(t, err)
	return svc, remote, sess
}

func TestCreateClientPushesToMirror(t *testing.T) {
	svc, remote, sess := newTestService(t)

	var events []Event
	svc.Subscribe(func(e Event) { events = append(events, e) })

	c, err := svc.CreateClient(sess, models.Client{FirstName: "Karel", LastName: "Malý"})
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, models.StageNavolani, c.WorkflowStage)
	assert.Equal(t, int64(2), c.AdvisorID)
	_, ok := remote.Content(mirror.Clients.Path(c.ID))
	assert.True(t, ok)
	assert.Equal(t, []string{"Update client: Karel Malý"}, remote.Puts())
	require.Len(t, events, 1)
	assert.Equal(t, EventClientSaved, events[0].Type)
}

func TestCreateClientValidation(t *testing.T) {
	svc, remote, sess := newTestService(t)

	_, err := svc.CreateClient(sess, models.Client{FirstName: " ", LastName: "X"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateClient(sess, models.Client{FirstName: "A", LastName: "B", WorkflowStage: "UNKNOWN"})
	assert.ErrorIs(t, err, ErrValidation)

	svc.Wait()
	assert.Empty(t, remote.Puts())
}

func TestMoveClient(t *testing.T) {
	svc, remote, _ := newTestService(t)

	var events []Event
	svc.Subscribe(func(e Event) { events = append(events, e) })

	before, err := svc.Store().Client(1)
	require.NoError(t, err)

	same, changed, err := svc.MoveClient(1, before.WorkflowStage)
	require.NoError(t, err)
	svc.Wait()
	assert.False(t, changed)
	assert.Equal(t, before.UpdatedAt, same.UpdatedAt)
	assert.Empty(t, remote.Puts())
	assert.Empty(t, events)

	moved, changed, err := svc.MoveClient(1, models.StagePodpis)
	require.NoError(t, err)
	svc.Wait()
	assert.True(t, changed)
	assert.Equal(t, models.StagePodpis, moved.WorkflowStage)
	assert.Len(t, remote.Puts(), 1)
	require.Len(t, events, 1)
	assert.Equal(t, EventStageChanged, events[0].Type)
	assert.Equal(t, before.WorkflowStage, events[0].From)
	assert.Equal(t, models.StagePodpis, events[0].To)

	_, _, err = svc.MoveClient(999, models.StagePodpis)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, _, err = svc.MoveClient(1, "NOPE")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAdvanceAndRetreat(t *testing.T) {
	svc, _, _ := newTestService(t)

	c, changed, err := svc.Advance(1)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StageZpracovani, c.WorkflowStage)

	c, changed, err = svc.Retreat(1)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StageAnalyzaPotreb, c.WorkflowStage)

	_, _, err = svc.MoveClient(1, models.StageServis)
	require.NoError(t, err)
	c, changed, err = svc.Advance(1)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, models.StageServis, c.WorkflowStage)
}

func TestEditPotentialRecomputesAndPushes(t *testing.T) {
	svc, remote, sess := newTestService(t)

	p, err := svc.EditPotential(1,
		potential.SetInterest{Category: potential.LifeInsurance, Interested: true},
		potential.SetCommission{Category: potential.LifeInsurance, Amount: 30000},
		potential.SetInterest{Category: potential.Mortgage, Interested: true},
		potential.SetCommission{Category: potential.Mortgage, Amount: 25000},
	)
	require.NoError(t, err)
	svc.Wait()

	assert.Equal(t, 55000.0, p.TotalExpectedCommission)
	assert.Equal(t, models.PotentialHigh, p.Priority)
	_, ok := remote.Content(mirror.Potentials.Path(p.ID))
	assert.True(t, ok)

	assert.Equal(t, 55000.0, svc.StageTotalPotential(sess, models.StageAnalyzaPotreb))
	assert.Equal(t, 0.0, svc.StageTotalPotential(sess, models.StageProdejniSchuzka))

	p, err = svc.EditPotential(1, potential.SetInterest{Category: potential.Mortgage, Interested: false})
	require.NoError(t, err)
	assert.Equal(t, 30000.0, p.TotalExpectedCommission)
	assert.Equal(t, models.PotentialMedium, p.Priority)

	_, err = svc.EditPotential(1, potential.SetCommission{Category: potential.Auto, Amount: -1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.EditPotential(404, potential.SetInterest{Category: potential.Auto, Interested: true})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPotentialWithoutRecordIsEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)

	p := svc.Potential(2)
	assert.Zero(t, p.ID)
	assert.Equal(t, 0.0, p.TotalExpectedCommission)
	assert.Equal(t, models.PotentialLow, p.Priority)
}

func TestBoardRespectsVisibility(t *testing.T) {
	svc, _, sess := newTestService(t)

	assistant, err := svc.Store().SessionFor("asistent")
	require.NoError(t, err)

	board := svc.Board(sess)
	require.Len(t, board, len(models.Stages))
	total := 0
	for _, col := range board {
		total += col.Count
	}
	assert.Equal(t, 2, total)

	for _, col := range svc.Board(assistant) {
		assert.Zero(t, col.Count)
	}
	assert.Empty(t, svc.ClientsInStage(assistant, models.StageAnalyzaPotreb))
	assert.Len(t, svc.ClientsInStage(sess, models.StageAnalyzaPotreb), 1)
}

func TestFailedPushNotifiesAndKeepsLocalState(t *testing.T) {
	svc, remote, sess := newTestService(t)
	remote.SetFailing(true)

	c, err := svc.CreateClient(sess, models.Client{FirstName: "Jana", LastName: "Bílá"})
	require.NoError(t, err)
	svc.Wait()

	got, err := svc.Store().Client(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jana", got.FirstName)

	notes := svc.Notifier().Recent()
	require.Len(t, notes, 1)
	assert.Equal(t, LevelWarning, notes[0].Level)
	assert.Contains(t, notes[0].Message, "Failed to sync")
	assert.Len(t, notes[0].ID, 26)
}

func TestLocalOnlyMode(t *testing.T) {
	st, err := store.Open(charm.NewTestBackend(t), store.WithLogger(logging.Discard()))
	require.NoError(t, err)
	svc := New(st, mirror.New(nil, logging.Discard()), WithLogger(logging.Discard()))
	sess, err := st.SessionFor("poradce")
	require.NoError(t, err)

	_, err = svc.CreateClient(sess, models.Client{FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	svc.Wait()

	assert.False(t, svc.MirrorEnabled())
	assert.Empty(t, svc.Notifier().Recent())

	_, err = svc.PushAll(context.Background())
	assert.True(t, errors.Is(err, mirror.ErrDisabled))
	_, err = svc.Pull(context.Background())
	assert.ErrorIs(t, err, mirror.ErrDisabled)
}

func TestPushAllAndPull(t *testing.T) {
	svc, remote, sess := newTestService(t)

	_, err := svc.CreateTask(sess, models.Task{Title: "Zavolat klientovi"})
	require.NoError(t, err)
	svc.Wait()

	n, err := svc.PushAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Remote now holds a renamed client; pulling overwrites the local copy.
	c, err := svc.Store().Client(1)
	require.NoError(t, err)
	c.FirstName = "Renamed"
	content, err := marshalForTest(c)
	require.NoError(t, err)
	remote.Seed(mirror.Clients.Path(1), content)

	res, err := svc.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res[store.ClientsCollection])
	assert.Equal(t, 1, res[store.TasksCollection])
	_, pulledMeetings := res[store.MeetingsCollection]
	assert.False(t, pulledMeetings)

	got, err := svc.Store().Client(1)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.FirstName)
}

func TestInitMirror(t *testing.T) {
	svc, remote, _ := newTestService(t)

	created, err := svc.InitMirror(context.Background())
	require.NoError(t, err)
	assert.Len(t, created, len(mirror.Dirs))

	created, err = svc.InitMirror(context.Background())
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Len(t, remote.Paths(), len(mirror.Dirs))
}

func TestTaskLifecycle(t *testing.T) {
	svc, remote, sess := newTestService(t)

	_, err := svc.CreateTask(sess, models.Task{Title: ""})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateTask(sess, models.Task{Title: "X", DueDate: "15.5.2024"})
	assert.ErrorIs(t, err, ErrValidation)

	task, err := svc.CreateTask(sess, models.Task{Title: "Připravit nabídku", Priority: "high", DueDate: "2024-05-20"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskHigh, task.Priority)
	assert.Equal(t, int64(2), task.AssignedToID)

	done, changed, err := svc.CompleteTask(task.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, done.Completed)

	_, changed, err = svc.CompleteTask(task.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	svc.Wait()
	assert.Len(t, remote.Puts(), 2)

	removed, err := svc.DeleteTask(task.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	svc.Wait()
	_, ok := remote.Content(mirror.Tasks.Path(task.ID))
	assert.False(t, ok)
}

func TestMeetingValidation(t *testing.T) {
	svc, _, sess := newTestService(t)
	start := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

	_, err := svc.CreateMeeting(sess, models.Meeting{Title: "Schůzka", StartTime: start, EndTime: start})
	assert.ErrorIs(t, err, ErrValidation)

	clientID := int64(404)
	_, err = svc.CreateMeeting(sess, models.Meeting{Title: "Schůzka", StartTime: start, EndTime: start.Add(time.Hour), ClientID: &clientID})
	assert.ErrorIs(t, err, store.ErrNotFound)

	m, err := svc.CreateMeeting(sess, models.Meeting{Title: "Schůzka", StartTime: start, EndTime: start.Add(time.Hour)})
	require.NoError(t, err)

	earlier := start.Add(-time.Hour)
	_, err = svc.UpdateMeeting(m.ID, store.MeetingPatch{EndTime: &earlier})
	assert.ErrorIs(t, err, ErrValidation)

	later := start.Add(2 * time.Hour)
	m, err = svc.UpdateMeeting(m.ID, store.MeetingPatch{EndTime: &later})
	require.NoError(t, err)
	assert.Equal(t, later, m.EndTime)
}

func TestSaveImportedMeetingUpserts(t *testing.T) {
	svc, _, sess := newTestService(t)
	start := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

	m, created, err := svc.SaveImportedMeeting(sess, models.Meeting{Title: "Google", StartTime: start, EndTime: start.Add(time.Hour), GoogleEventID: "evt-1"})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.SaveImportedMeeting(sess, models.Meeting{Title: "Google renamed", StartTime: start, EndTime: start.Add(time.Hour), GoogleEventID: "evt-1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m.ID, again.ID)
	assert.Equal(t, "Google renamed", again.Title)
	assert.Equal(t, 1, svc.Store().Meetings.Len())
}

func TestAnalysisFlow(t *testing.T) {
	svc, remote, _ := newTestService(t)

	_, err := svc.Analysis(1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	a, err := svc.UpdateSection(1, models.CashFlowUpdate{CashFlow: models.CashFlow{OfficialIncome: 40000}})
	require.NoError(t, err)
	assert.False(t, a.IsComplete)

	a, err = svc.UpdateSection(1, models.GoalsUpdate{})
	require.NoError(t, err)
	assert.True(t, a.IsComplete)
	assert.Equal(t, 33, a.CompletionPercentage())

	c, err := svc.Store().Client(1)
	require.NoError(t, err)
	assert.True(t, c.HasNeedsAnalysis)

	svc.Wait()
	_, ok := remote.Content(mirror.Analyses.Path(a.ID))
	assert.True(t, ok)

	removed, err := svc.DeleteAnalysis(a.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	c, err = svc.Store().Client(1)
	require.NoError(t, err)
	assert.False(t, c.HasNeedsAnalysis)
}

func TestDeleteClientCascades(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.EditPotential(1, potential.SetInterest{Category: potential.Investments, Interested: true})
	require.NoError(t, err)
	_, err = svc.StartAnalysis(1)
	require.NoError(t, err)

	removed, err := svc.DeleteClient(1)
	require.NoError(t, err)
	assert.True(t, removed)
	svc.Wait()

	_, ok := svc.Store().PotentialForClient(1)
	assert.False(t, ok)
	_, ok = svc.Store().AnalysisForClient(1)
	assert.False(t, ok)

	removed, err = svc.DeleteClient(1)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPullRecomputesStalePotential(t *testing.T) {
	svc, remote, _ := newTestService(t)

	stale := models.ClientPotential{
		ID:          77,
		ClientID:    1,
		Investments: models.CommissionLine{Interested: true, ExpectedCommission: 60000},
		Priority:    models.PotentialMedium,
	}
	content, err := marshalForTest(stale)
	require.NoError(t, err)
	remote.Seed(mirror.Potentials.Path(77), content)

	res, err := svc.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res[store.PotentialsCollection])

	got, ok := svc.Store().PotentialForClient(1)
	require.True(t, ok)
	assert.Equal(t, 60000.0, got.TotalExpectedCommission)
	assert.Equal(t, models.PotentialHigh, got.Priority)
	assert.Len(t, svc.Store().PotentialsByPriority(models.PotentialHigh), 1)
}
