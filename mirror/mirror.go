// ABOUTME: Best-effort mirror of CRM records to a remote file store
// ABOUTME: One pretty-printed JSON file per record at {collection}/{prefix}-{id}.json
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/store"
)

// ErrDisabled is returned by every operation in local-only mode.
var ErrDisabled = errors.New("remote mirror disabled: no token configured")

// Kind describes how one entity type is laid out in the mirror.
type Kind[T any] struct {
	Dir     string
	Prefix  string
	ID      func(T) int64
	Message func(T) string
}

// Path returns the file path of the record with id.
func (k Kind[T]) Path(id int64) string {
	return fmt.Sprintf("%s/%s-%d.json", k.Dir, k.Prefix, id)
}

var (
	Clients = Kind[models.Client]{
		Dir:     store.ClientsCollection,
		Prefix:  "client",
		ID:      func(c models.Client) int64 { return c.ID },
		Message: func(c models.Client) string { return "Update client: " + c.FirstName + " " + c.LastName },
	}
	Meetings = Kind[models.Meeting]{
		Dir:     store.MeetingsCollection,
		Prefix:  "meeting",
		ID:      func(m models.Meeting) int64 { return m.ID },
		Message: func(m models.Meeting) string { return "Update meeting: " + m.Title },
	}
	Tasks = Kind[models.Task]{
		Dir:     store.TasksCollection,
		Prefix:  "task",
		ID:      func(t models.Task) int64 { return t.ID },
		Message: func(t models.Task) string { return "Update task: " + t.Title },
	}
	Potentials = Kind[models.ClientPotential]{
		Dir:     store.PotentialsCollection,
		Prefix:  "potential",
		ID:      func(p models.ClientPotential) int64 { return p.ID },
		Message: func(p models.ClientPotential) string { return fmt.Sprintf("Update potential: client %d", p.ClientID) },
	}
	Analyses = Kind[models.NeedsAnalysis]{
		Dir:     store.AnalysesCollection,
		Prefix:  "analysis",
		ID:      func(a models.NeedsAnalysis) int64 { return a.ID },
		Message: func(a models.NeedsAnalysis) string { return fmt.Sprintf("Update needs analysis: client %d", a.ClientID) },
	}
)

// Dirs lists the mirrored directories.
var Dirs = []string{
	store.ClientsCollection,
	store.MeetingsCollection,
	store.TasksCollection,
	store.PotentialsCollection,
	store.AnalysesCollection,
}

// Mirror pushes and pulls records. A Mirror without a remote is disabled.
type Mirror struct {
	remote Remote
	logger *log.Logger
}

// New wraps remote. A nil remote yields a disabled mirror.
func New(remote Remote, logger *log.Logger) *Mirror {
	if logger == nil {
		logger = log.Default()
	}
	return &Mirror{remote: remote, logger: logger}
}

// Enabled reports whether a remote is configured.
func (m *Mirror) Enabled() bool {
	return m != nil && m.remote != nil
}

// Save writes v to its path, replacing whatever is there.
func Save[T any](ctx context.Context, m *Mirror, k Kind[T], v T) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	path := k.Path(k.ID(v))
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	sha := ""
	existing, err := m.remote.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", path, err)
	}
	if existing != nil {
		sha = existing.SHA
	}

	if err := m.remote.Put(ctx, path, content, k.Message(v), sha); err != nil {
		return fmt.Errorf("failed to push %s: %w", path, err)
	}
	m.logger.Debug("mirrored record", "path", path)
	return nil
}

// Delete removes the file of record id. A missing file counts as deleted.
func Delete[T any](ctx context.Context, m *Mirror, k Kind[T], id int64) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	path := k.Path(id)
	existing, err := m.remote.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", path, err)
	}
	if existing == nil {
		return nil
	}
	msg := fmt.Sprintf("Delete %s %d", k.Prefix, id)
	if err := m.remote.Delete(ctx, path, msg, existing.SHA); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	m.logger.Debug("deleted mirrored record", "path", path)
	return nil
}

// GetAll loads every JSON file of the kind's directory. Files that cannot be
// read or decoded are skipped.
func GetAll[T any](ctx context.Context, m *Mirror, k Kind[T]) ([]T, error) {
	if !m.Enabled() {
		return nil, ErrDisabled
	}
	entries, err := m.remote.List(ctx, k.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", k.Dir, err)
	}

	var out []T
	for _, e := range entries {
		if e.Type != "file" || !strings.HasSuffix(e.Name, ".json") {
			continue
		}
		path := k.Dir + "/" + e.Name
		f, err := m.remote.Get(ctx, path)
		if err != nil || f == nil {
			m.logger.Warn("skipping unreadable mirror file", "path", path, "err", err)
			continue
		}
		var v T
		if err := json.Unmarshal(f.Content, &v); err != nil {
			m.logger.Warn("skipping undecodable mirror file", "path", path, "err", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Init creates a README.md in every mirrored directory that lacks one and
// returns the paths it created.
func (m *Mirror) Init(ctx context.Context) ([]string, error) {
	if !m.Enabled() {
		return nil, ErrDisabled
	}
	var created []string
	for _, dir := range Dirs {
		path := dir + "/README.md"
		existing, err := m.remote.Get(ctx, path)
		if err != nil {
			return created, fmt.Errorf("failed to look up %s: %w", path, err)
		}
		if existing != nil {
			continue
		}
		if err := m.remote.Put(ctx, path, []byte(readme(dir)), "Initialize "+dir+" directory", ""); err != nil {
			return created, fmt.Errorf("failed to create %s: %w", path, err)
		}
		created = append(created, path)
	}
	return created, nil
}

func readme(dir string) string {
	title := strings.ToUpper(dir[:1]) + dir[1:]
	return fmt.Sprintf("# %s Data\n\nThis directory contains %s data.", title, dir)
}
