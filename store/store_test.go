// ABOUTME: Tests for the entity store
// ABOUTME: Covers seeding, ids, visibility, CRUD round trips, sessions and derived potentials
package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/advisor-crm/charm"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/potential"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)}
	s, err := Open(charm.NewTestBackend(t), WithClock(clock.now))
	require.NoError(t, err)
	return s, clock
}

func session(t *testing.T, s *Store, username string) Session {
	t.Helper()
	sess, err := s.SessionFor(username)
	require.NoError(t, err)
	return sess
}

func TestOpenSeedsDemoData(t *testing.T) {
	s, _ := newTestStore(t)

	users := s.AllUsers()
	require.Len(t, users, 3)
	assert.Equal(t, "vedouci", users[0].Username)
	assert.Equal(t, models.RoleLead, users[0].Role)
	assert.Equal(t, "Petr Svoboda", users[1].FullName())
	assert.Equal(t, models.RoleAssistant, users[2].Role)

	eva, err := s.Client(2)
	require.NoError(t, err)
	assert.Equal(t, models.StageProdejniSchuzka, eva.WorkflowStage)
	assert.True(t, eva.HasNeedsAnalysis)
	assert.Equal(t, 3, eva.MeetingsCount)
}

func TestReopenKeepsDataWithoutReseeding(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	backend, err := charm.OpenLocal(dir)
	require.NoError(t, err)
	s, err := Open(backend)
	require.NoError(t, err)

	sess := session(t, s, "poradce")
	created, err := s.CreateClient(sess, models.Client{FirstName: "Jana", LastName: "Malá"})
	require.NoError(t, err)
	_, err = s.DeleteClient(1)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	backend, err = charm.OpenLocal(dir)
	require.NoError(t, err)
	s, err = Open(backend)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.Client(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Malá", got.LastName)

	_, err = s.Client(1)
	assert.ErrorIs(t, err, ErrNotFound, "deleted seed client must not come back")
	assert.Equal(t, 2, s.Clients.Len())
}

func TestIDsRedrawnOnCollision(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	draws := []int64{5, 5, 7}
	randN := func(n int64) int64 {
		v := draws[0]
		draws = draws[1:]
		return v
	}
	s, err := Open(charm.NewTestBackend(t), WithClock(clock.now), WithRand(randN))
	require.NoError(t, err)
	sess := session(t, s, "poradce")

	a, err := s.CreateTask(sess, models.Task{Title: "a"})
	require.NoError(t, err)
	b, err := s.CreateTask(sess, models.Task{Title: "b"})
	require.NoError(t, err)

	assert.Equal(t, int64(1_700_000_000_005), a.ID)
	assert.Equal(t, int64(1_700_000_000_007), b.ID)
	assert.Empty(t, draws)
}

func TestClientVisibility(t *testing.T) {
	s, _ := newTestStore(t)

	assert.Len(t, s.VisibleClients(session(t, s, "vedouci")), 2)
	assert.Len(t, s.VisibleClients(session(t, s, "poradce")), 2)
	assert.Empty(t, s.VisibleClients(session(t, s, "asistent")))
	assert.Empty(t, s.VisibleClients(Session{}), "anonymous sees nothing")
}

func TestCreateClientDefaults(t *testing.T) {
	s, clock := newTestStore(t)
	sess := session(t, s, "asistent")

	c, err := s.CreateClient(sess, models.Client{
		FirstName:      "Karel",
		LastName:       "Dvořák",
		Email:          "karel@example.cz",
		MeetingsCount:  9,
		DocumentsCount: 4,
	})
	require.NoError(t, err)

	assert.NotZero(t, c.ID)
	assert.Equal(t, models.StageNavolani, c.WorkflowStage)
	assert.Equal(t, int64(3), c.AdvisorID)
	assert.Equal(t, "Marie Dvořáková", c.AdvisorName)
	assert.Zero(t, c.MeetingsCount)
	assert.Zero(t, c.DocumentsCount)
	assert.Equal(t, clock.t, c.CreatedAt)
	assert.Equal(t, clock.t, c.UpdatedAt)

	got, err := s.Client(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = s.CreateClient(sess, models.Client{WorkflowStage: "WON"})
	assert.Error(t, err)
}

func TestUpdateClient(t *testing.T) {
	s, clock := newTestStore(t)
	before, err := s.Client(1)
	require.NoError(t, err)

	clock.advance(time.Minute)
	city := "Ostrava"
	updated, err := s.UpdateClient(1, ClientPatch{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Ostrava", updated.City)
	assert.Equal(t, before.FirstName, updated.FirstName, "unset fields survive the merge")
	assert.Equal(t, clock.t, updated.UpdatedAt)
	assert.Equal(t, before.CreatedAt, updated.CreatedAt)

	_, err = s.UpdateClient(424242, ClientPatch{City: &city})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDeleteClient(t *testing.T) {
	s, _ := newTestStore(t)

	removed, err := s.DeleteClient(1)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.DeleteClient(1)
	require.NoError(t, err)
	assert.False(t, removed)

	remaining := s.VisibleClients(session(t, s, "vedouci"))
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(2), remaining[0].ID)
}

func TestSearchClients(t *testing.T) {
	s, _ := newTestStore(t)
	lead := session(t, s, "vedouci")

	got := s.SearchClients(lead, "NOVÁK")
	require.Len(t, got, 1)
	assert.Equal(t, "Eva", got[0].FirstName)

	assert.Len(t, s.SearchClients(lead, "email.cz"), 2)
	assert.Len(t, s.SearchClients(lead, "111 222"), 1)
	assert.Empty(t, s.SearchClients(session(t, s, "asistent"), "eva"))
}

func TestTransitionClient(t *testing.T) {
	s, clock := newTestStore(t)
	before, err := s.Client(1)
	require.NoError(t, err)

	clock.advance(time.Hour)
	c, changed, err := s.TransitionClient(1, models.StageAnalyzaPotreb)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before.UpdatedAt, c.UpdatedAt)

	c, changed, err = s.TransitionClient(1, models.StagePodpis)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.StagePodpis, c.WorkflowStage)
	assert.Equal(t, clock.t, c.UpdatedAt)

	_, _, err = s.TransitionClient(999, models.StagePodpis)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTasks(t *testing.T) {
	s, clock := newTestStore(t)
	advisor := session(t, s, "poradce")
	assistant := session(t, s, "asistent")

	own, err := s.CreateTask(advisor, models.Task{Title: "Zavolat klientovi", DueDate: "2024-05-14"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskMedium, own.Priority)
	assert.Equal(t, int64(2), own.CreatedByID)
	assert.Equal(t, int64(2), own.AssignedToID)
	assert.False(t, own.Completed)

	delegated, err := s.CreateTask(advisor, models.Task{Title: "Připravit smlouvu", Priority: models.TaskUrgent, AssignedToID: 3})
	require.NoError(t, err)

	assert.Len(t, s.VisibleTasks(advisor), 2)
	got := s.VisibleTasks(assistant)
	require.Len(t, got, 1)
	assert.Equal(t, delegated.ID, got[0].ID)
	assert.Len(t, s.VisibleTasks(session(t, s, "vedouci")), 2)

	overdue := s.OverdueTasks(advisor)
	require.Len(t, overdue, 1)
	assert.Equal(t, own.ID, overdue[0].ID)

	clock.advance(time.Minute)
	done, changed, err := s.CompleteTask(own.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, clock.t, *done.CompletedAt)

	clock.advance(time.Minute)
	again, changed, err := s.CompleteTask(own.ID)
	require.NoError(t, err)
	assert.False(t, changed, "completion happens once")
	assert.Equal(t, done.CompletedAt, again.CompletedAt)

	assert.Empty(t, s.OverdueTasks(advisor))
	assert.Len(t, s.CompletedTasks(advisor), 1)
	pending := s.PendingTasks(advisor)
	require.Len(t, pending, 1)
	assert.Equal(t, delegated.ID, pending[0].ID)

	_, err = s.CreateTask(advisor, models.Task{Title: "x", Priority: "SOMEDAY"})
	assert.Error(t, err)
}

func TestMeetingsCalendar(t *testing.T) {
	s, _ := newTestStore(t)
	advisor := session(t, s, "poradce")
	clientID := int64(1)

	// 2024-05-15 is a Wednesday.
	late, err := s.CreateMeeting(advisor, models.Meeting{
		Title:     "Podpis smlouvy",
		StartTime: time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 5, 15, 15, 0, 0, 0, time.UTC),
		ClientID:  &clientID,
	})
	require.NoError(t, err)
	early, err := s.CreateMeeting(advisor, models.Meeting{
		Title:     "Analýza",
		StartTime: time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = s.CreateMeeting(advisor, models.Meeting{
		Title:     "Servis",
		StartTime: time.Date(2024, 5, 19, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 5, 19, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	day := s.MeetingsOn(advisor, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC))
	require.Len(t, day, 2)
	assert.Equal(t, early.ID, day[0].ID)
	assert.Equal(t, late.ID, day[1].ID)

	week := s.Week(advisor, time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC))
	require.Len(t, week, 7)
	assert.Equal(t, time.Monday, week[0].Date.Weekday())
	assert.Equal(t, 13, week[0].Date.Day())
	assert.Len(t, week[2].Meetings, 2)
	assert.Len(t, week[6].Meetings, 1, "Sunday closes the week")

	assert.Empty(t, s.VisibleMeetings(session(t, s, "asistent")))
	assert.Len(t, s.MeetingsForClient(clientID), 1)
}

func TestStartOfWeek(t *testing.T) {
	sunday := time.Date(2024, 5, 19, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), StartOfWeek(sunday))

	monday := time.Date(2024, 5, 13, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), StartOfWeek(monday))
}

func TestPotentials(t *testing.T) {
	s, _ := newTestStore(t)

	p, err := s.CreatePotential(1)
	require.NoError(t, err)
	assert.Equal(t, models.PotentialLow, p.Priority)
	assert.Zero(t, p.TotalExpectedCommission)

	again, err := s.CreatePotential(1)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID, "create returns the existing potential")
	assert.Equal(t, 1, s.Potentials.Len())

	p, err = s.EditPotential(p.ID,
		potential.SetInterest{Category: potential.LifeInsurance, Interested: true},
		potential.SetCommission{Category: potential.LifeInsurance, Amount: 30000},
		potential.SetInterest{Category: potential.Mortgage, Interested: true},
		potential.SetCommission{Category: potential.Mortgage, Amount: 25000},
	)
	require.NoError(t, err)
	assert.Equal(t, 55000.0, p.TotalExpectedCommission)
	assert.Equal(t, models.PotentialHigh, p.Priority)

	stored, ok := s.PotentialForClient(1)
	require.True(t, ok)
	assert.Equal(t, p, stored)

	_, err = s.EditPotential(p.ID, potential.SetNotes{Category: "boats"})
	assert.Error(t, err)

	_, err = s.EditPotential(12345, potential.SetNotes{Category: potential.Mortgage})
	assert.ErrorIs(t, err, ErrNotFound)

	other, err := s.CreatePotential(2)
	require.NoError(t, err)
	_, err = s.EditPotential(other.ID,
		potential.SetInterest{Category: potential.Auto, Interested: true},
		potential.SetCommission{Category: potential.Auto, Amount: 21000},
	)
	require.NoError(t, err)

	assert.Len(t, s.PotentialsByPriority(models.PotentialHigh), 1)
	assert.Len(t, s.PotentialsByPriority(models.PotentialMedium), 1)
	top := s.TopPotentials(1)
	require.Len(t, top, 1)
	assert.Equal(t, int64(1), top[0].ClientID)
}

func TestNeedsAnalysis(t *testing.T) {
	s, _ := newTestStore(t)

	a, err := s.CreateAnalysis(1)
	require.NoError(t, err)
	assert.False(t, a.IsComplete)

	c, err := s.Client(1)
	require.NoError(t, err)
	assert.True(t, c.HasNeedsAnalysis)

	again, err := s.CreateAnalysis(1)
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)

	a, err = s.UpdateSection(a.ID, models.GoalsUpdate{Goals: models.NeedsAnalysisGoals{
		Pension: models.PensionGoal{Interested: true, DesiredSolution: "DIP"},
	}})
	require.NoError(t, err)
	assert.False(t, a.IsComplete)
	assert.True(t, a.Goals.Pension.Interested)

	products := []models.ExistingProduct{{Type: "životní pojištění", Company: "Kooperativa"}}
	a, err = s.UpdateSection(a.ID, models.ExistingProductsUpdate{Products: products})
	require.NoError(t, err)
	require.Len(t, a.ExistingProducts, 1)
	assert.NotEmpty(t, a.ExistingProducts[0].ID)
	assert.Empty(t, products[0].ID, "caller slice untouched")

	a, err = s.UpdateSection(a.ID, models.CashFlowUpdate{CashFlow: models.CashFlow{OfficialIncome: 45000, EmploymentType: models.EmploymentSelfEmployed}})
	require.NoError(t, err)
	assert.True(t, a.IsComplete)
	assert.Equal(t, 50, a.CompletionPercentage())

	_, err = s.UpdateSection(777, models.CashFlowUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)

	removed, err := s.DeleteAnalysis(a.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	_, ok := s.AnalysisForClient(1)
	assert.False(t, ok)
}

func TestLoginLogout(t *testing.T) {
	s, _ := newTestStore(t)

	sess, err := s.CurrentSession()
	require.NoError(t, err)
	assert.Nil(t, sess.User)

	_, err = s.Login("poradce", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login("nobody", DefaultDemoPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err = s.Login("poradce", DefaultDemoPassword)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sess.UserID())

	current, err := s.CurrentSession()
	require.NoError(t, err)
	require.NotNil(t, current.User)
	assert.Equal(t, "poradce", current.User.Username)
	assert.False(t, current.IsLead())

	require.NoError(t, s.Logout())
	current, err = s.CurrentSession()
	require.NoError(t, err)
	assert.Nil(t, current.User)
}

func TestConfiguredDemoPassword(t *testing.T) {
	s, err := Open(charm.NewTestBackend(t), WithDemoPassword("tajne"))
	require.NoError(t, err)

	_, err = s.Login("vedouci", DefaultDemoPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := s.Login("vedouci", "tajne")
	require.NoError(t, err)
	assert.True(t, sess.IsLead())
}

func TestReplaceAll(t *testing.T) {
	s, _ := newTestStore(t)

	remote := []models.Client{
		{ID: 2, FirstName: "Eva", LastName: "Nováková", WorkflowStage: models.StagePodpis, AdvisorID: 2},
		{ID: 50, FirstName: "Ota", LastName: "Rychlý", WorkflowStage: models.StageServis, AdvisorID: 2},
	}
	require.NoError(t, s.Clients.ReplaceAll(remote))

	assert.Equal(t, 2, s.Clients.Len())
	_, err := s.Client(1)
	assert.ErrorIs(t, err, ErrNotFound)
	eva, err := s.Client(2)
	require.NoError(t, err)
	assert.Equal(t, models.StagePodpis, eva.WorkflowStage)
	_, err = s.Client(50)
	assert.NoError(t, err)
}

func TestSyncState(t *testing.T) {
	s, clock := newTestStore(t)

	st, err := s.SyncState("calendar")
	require.NoError(t, err)
	assert.Nil(t, st)

	require.NoError(t, s.UpdateSyncStatus("calendar", SyncRunning, ""))
	st, err = s.SyncState("calendar")
	require.NoError(t, err)
	assert.Equal(t, SyncRunning, st.Status)
	assert.Nil(t, st.LastSyncTime)

	require.NoError(t, s.MarkSynced("calendar", "tok"))
	st, err = s.SyncState("calendar")
	require.NoError(t, err)
	assert.Equal(t, SyncIdle, st.Status)
	require.NotNil(t, st.LastSyncTime)
	assert.True(t, clock.t.Equal(*st.LastSyncTime))
	assert.Equal(t, "tok", st.LastSyncToken)
}
