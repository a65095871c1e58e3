// ABOUTME: Entity store over a pluggable key-value backend
// ABOUTME: Opens all collections, seeds demo data and resolves the current session
package store

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/potential"
)

var (
	// ErrNotFound is returned (wrapped) when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned by Login for an unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// DefaultDemoPassword is accepted for every seeded user unless configured otherwise.
const DefaultDemoPassword = "heslo123"

// Store is the CRM's local source of truth.
type Store struct {
	backend      Backend
	now          func() time.Time
	randN        func(int64) int64
	demoPassword string
	logger       *log.Logger

	Users      *Collection[models.User, *models.User]
	Clients    *Collection[models.Client, *models.Client]
	Meetings   *Collection[models.Meeting, *models.Meeting]
	Tasks      *Collection[models.Task, *models.Task]
	Potentials *Collection[models.ClientPotential, *models.ClientPotential]
	Analyses   *Collection[models.NeedsAnalysis, *models.NeedsAnalysis]
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRand replaces the id jitter source. randN must return a value in [0,n).
func WithRand(randN func(n int64) int64) Option {
	return func(s *Store) { s.randN = randN }
}

// WithDemoPassword sets the password accepted by Login.
func WithDemoPassword(password string) Option {
	return func(s *Store) {
		if password != "" {
			s.demoPassword = password
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open loads every collection from backend and seeds demo data into an
// empty store.
func Open(backend Backend, opts ...Option) (*Store, error) {
	s := &Store{
		backend:      backend,
		now:          time.Now,
		randN:        rand.Int64N,
		demoPassword: DefaultDemoPassword,
		logger:       log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.Users = newCollection[models.User](UsersCollection, backend, s.now, s.randN)
	s.Clients = newCollection[models.Client](ClientsCollection, backend, s.now, s.randN)
	s.Meetings = newCollection[models.Meeting](MeetingsCollection, backend, s.now, s.randN)
	s.Tasks = newCollection[models.Task](TasksCollection, backend, s.now, s.randN)
	s.Potentials = newCollection[models.ClientPotential](PotentialsCollection, backend, s.now, s.randN)
	s.Analyses = newCollection[models.NeedsAnalysis](AnalysesCollection, backend, s.now, s.randN)
	s.Potentials.normalize(potential.Recompute)

	loaders := []interface{ load() error }{s.Users, s.Clients, s.Meetings, s.Tasks, s.Potentials, s.Analyses}
	for _, l := range loaders {
		if err := l.load(); err != nil {
			return nil, err
		}
	}

	if s.Users.Len() == 0 {
		if err := s.seed(); err != nil {
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
		s.logger.Info("seeded demo data", "users", s.Users.Len(), "clients", s.Clients.Len())
	}
	return s, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) seed() error {
	now := s.now()
	users := []models.User{
		{ID: 1, Username: "vedouci", FirstName: "Jan", LastName: "Novák", Email: "vedouci@crm.cz", Phone: "+420 123 456 789", Role: models.RoleLead, Active: true},
		{ID: 2, Username: "poradce", FirstName: "Petr", LastName: "Svoboda", Email: "poradce@crm.cz", Phone: "+420 987 654 321", Role: models.RoleAdvisor, Active: true},
		{ID: 3, Username: "asistent", FirstName: "Marie", LastName: "Dvořáková", Email: "asistent@crm.cz", Phone: "+420 555 666 777", Role: models.RoleAssistant, Active: true},
	}
	for _, u := range users {
		u.Stamp(now, true)
		if err := s.Users.Put(u); err != nil {
			return err
		}
	}

	clients := []models.Client{
		{
			ID:            1,
			FirstName:     "Tomáš",
			LastName:      "Procházka",
			Email:         "tomas.prochazka@email.cz",
			Phone:         "+420 111 222 333",
			DateOfBirth:   "1985-05-15",
			Address:       "Hlavní 123",
			City:          "Praha",
			PostalCode:    "11000",
			Notes:         "Zájem o investiční produkty",
			WorkflowStage: models.StageAnalyzaPotreb,
			AdvisorID:     2,
			AdvisorName:   "Petr Svoboda",
			MeetingsCount: 1,
		},
		{
			ID:               2,
			FirstName:        "Eva",
			LastName:         "Nováková",
			Email:            "eva.novakova@email.cz",
			Phone:            "+420 444 555 666",
			DateOfBirth:      "1990-08-20",
			Address:          "Vedlejší 456",
			City:             "Brno",
			PostalCode:       "60200",
			Notes:            "Řeší životní pojištění",
			WorkflowStage:    models.StageProdejniSchuzka,
			AdvisorID:        2,
			AdvisorName:      "Petr Svoboda",
			HasNeedsAnalysis: true,
			DocumentsCount:   2,
			MeetingsCount:    3,
		},
	}
	for _, c := range clients {
		c.Stamp(now, true)
		if err := s.Clients.Put(c); err != nil {
			return err
		}
	}
	return nil
}
