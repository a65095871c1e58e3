// ABOUTME: HTTP server exposing the CRM as a JSON API
// ABOUTME: Board, clients, potentials, analyses, tasks and meetings plus a live websocket feed
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/potential"
	"github.com/harperreed/advisor-crm/store"
	"github.com/harperreed/advisor-crm/viz"
)

// UserHeader selects the acting user by username; without it requests act
// as the server's default session.
const UserHeader = "X-Advisor-User"

type Server struct {
	svc    *crm.Service
	sess   store.Session
	hub    *Hub
	logger *log.Logger
	mux    *http.ServeMux
}

// NewServer wires the routes and subscribes the websocket hub to service
// events.
func NewServer(svc *crm.Service, sess store.Session, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		svc:    svc,
		sess:   sess,
		hub:    NewHub(logger),
		logger: logger,
		mux:    http.NewServeMux(),
	}
	svc.Subscribe(s.hub.Listener())

	s.mux.HandleFunc("GET /api/board", s.handleBoard)
	s.mux.HandleFunc("GET /api/clients", s.handleListClients)
	s.mux.HandleFunc("POST /api/clients", s.handleCreateClient)
	s.mux.HandleFunc("GET /api/clients/{id}", s.handleGetClient)
	s.mux.HandleFunc("PATCH /api/clients/{id}", s.handleUpdateClient)
	s.mux.HandleFunc("DELETE /api/clients/{id}", s.handleDeleteClient)
	s.mux.HandleFunc("POST /api/clients/{id}/stage", s.handleMoveClient)
	s.mux.HandleFunc("GET /api/clients/{id}/potential", s.handleGetPotential)
	s.mux.HandleFunc("PATCH /api/clients/{id}/potential", s.handleEditPotential)
	s.mux.HandleFunc("GET /api/clients/{id}/analysis", s.handleGetAnalysis)
	s.mux.HandleFunc("PUT /api/clients/{id}/analysis/{section}", s.handleUpdateSection)
	s.mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	s.mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	s.mux.HandleFunc("POST /api/tasks/{id}/complete", s.handleCompleteTask)
	s.mux.HandleFunc("GET /api/meetings", s.handleListMeetings)
	s.mux.HandleFunc("POST /api/meetings", s.handleCreateMeeting)
	s.mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	s.mux.HandleFunc("GET /dashboard", s.handleDashboard)
	s.mux.HandleFunc("GET /ws", s.hub.ServeWS)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", "addr", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) session(r *http.Request) (store.Session, error) {
	username := r.Header.Get(UserHeader)
	if username == "" {
		return s.sess, nil
	}
	return s.svc.Store().SessionFor(username)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, crm.ErrValidation), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, badRequest("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// visibleClient resolves the session and the path client it may see.
func (s *Server) visibleClient(r *http.Request) (store.Session, models.Client, error) {
	sess, err := s.session(r)
	if err != nil {
		return store.Session{}, models.Client{}, err
	}
	id, err := pathID(r)
	if err != nil {
		return sess, models.Client{}, err
	}
	c, err := s.svc.Client(sess, id)
	return sess, c, err
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.Board(sess))
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var clients []models.Client
	if q := r.URL.Query().Get("q"); q != "" {
		clients = s.svc.SearchClients(sess, q)
	} else {
		clients = s.svc.Clients(sess)
	}
	if clients == nil {
		clients = []models.Client{}
	}
	s.writeJSON(w, http.StatusOK, clients)
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var c models.Client
	if err := decode(r, &c); err != nil {
		s.writeError(w, err)
		return
	}
	created, err := s.svc.CreateClient(sess, c)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetClient(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.visibleClient(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

type clientPatchRequest struct {
	FirstName   *string `json:"firstName"`
	LastName    *string `json:"lastName"`
	DateOfBirth *string `json:"dateOfBirth"`
	Email       *string `json:"email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	City        *string `json:"city"`
	PostalCode  *string `json:"postalCode"`
	Notes       *string `json:"notes"`
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.visibleClient(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req clientPatchRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	updated, err := s.svc.UpdateClient(c.ID, store.ClientPatch{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: req.DateOfBirth,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		City:        req.City,
		PostalCode:  req.PostalCode,
		Notes:       req.Notes,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteClient(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.visibleClient(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := s.svc.DeleteClient(c.ID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMoveClient(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.visibleClient(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Stage string `json:"stage"`
	}
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	stage, err := models.ParseStage(req.Stage)
	if err != nil {
		s.writeError(w, badRequest("%v", err))
		return
	}
	moved, changed, err := s.svc.MoveClient(c.ID, stage)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"client": moved, "changed": changed})
}

func (s *Server) handleGetPotential(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.visibleClient(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.Potential(c.ID))
}

type potentialEditRequest struct {
	Category   string   `json:"category"`
	Interested *bool    `json:"interested"`
	Commission *float64 `json:"expectedCommission"`
	Notes      *string  `json:"notes"`
}

func (s *Server) handleEditPotential(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.visibleClient(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req []potentialEditRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var edits []potential.Edit
	for _, e := range req {
		cat, err := potential.ParseCategory(e.Category)
		if err != nil {
			s.writeError(w, badRequest("%v", err))
			return
		}
		if e.Interested != nil {
			edits = append(edits, potential.SetInterest{Category: cat, Interested: *e.Interested})
		}
		if e.Commission != nil {
			edits = append(edits, potential.SetCommission{Category: cat, Amount: *e.Commission})
		}
		if e.Notes != nil {
			edits = append(edits, potential.SetNotes{Category: cat, Text: *e.Notes})
		}
	}

	p, err := s.svc.EditPotential(c.ID, edits...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.visibleClient(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	a, err := s.svc.Analysis(c.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"analysis":             a,
		"completionPercentage": a.CompletionPercentage(),
	})
}

func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	_, c, err := s.visibleClient(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	section, err := models.ParseSection(r.PathValue("section"))
	if err != nil {
		s.writeError(w, badRequest("%v", err))
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.writeError(w, badRequest("failed to read body: %v", err))
		return
	}
	upd, err := models.DecodeSection(section, body)
	if err != nil {
		s.writeError(w, badRequest("%v", err))
		return
	}
	a, err := s.svc.UpdateSection(c.ID, upd)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	st := s.svc.Store()
	var tasks []models.Task
	switch r.URL.Query().Get("filter") {
	case "", "pending":
		tasks = st.PendingTasks(sess)
	case "completed":
		tasks = st.CompletedTasks(sess)
	case "overdue":
		tasks = st.OverdueTasks(sess)
	case "all":
		tasks = st.VisibleTasks(sess)
	default:
		s.writeError(w, badRequest("invalid filter %q", r.URL.Query().Get("filter")))
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	s.writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var t models.Task
	if err := decode(r, &t); err != nil {
		s.writeError(w, err)
		return
	}
	created, err := s.svc.CreateTask(sess, t)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	t, err := s.svc.Store().Task(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !sess.CanSeeTask(t) {
		s.writeError(w, fmt.Errorf("task %d: %w", id, store.ErrNotFound))
		return
	}
	done, _, err := s.svc.CompleteTask(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, done)
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	st := s.svc.Store()
	day := st.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.ParseInLocation(models.DateLayout, raw, day.Location())
		if err != nil {
			s.writeError(w, badRequest("invalid date %q", raw))
			return
		}
		day = d
	}
	if r.URL.Query().Get("week") == "true" {
		s.writeJSON(w, http.StatusOK, st.Week(sess, day))
		return
	}
	meetings := st.MeetingsOn(sess, day)
	if meetings == nil {
		meetings = []models.Meeting{}
	}
	s.writeJSON(w, http.StatusOK, meetings)
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var m models.Meeting
	if err := decode(r, &m); err != nil {
		s.writeError(w, err)
		return
	}
	created, err := s.svc.CreateMeeting(sess, m)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	notes := s.svc.Notifier().Recent()
	if notes == nil {
		notes = []crm.Notification{}
	}
	s.writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	st := s.svc.Store()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, viz.RenderDashboard(viz.GenerateDashboardStats(st, sess, st.Now()))); err != nil {
		s.logger.Warn("failed to write dashboard", "err", err)
	}
}
