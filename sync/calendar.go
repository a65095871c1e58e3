// ABOUTME: Google Calendar importer turning timed events into CRM meetings
// ABOUTME: Handles pagination, sync tokens with 410 fallback and sync state bookkeeping
package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/store"
)

const (
	// CalendarService keys the sync state of the calendar importer.
	CalendarService = "calendar"
	maxResults      = 250
	initialWindow   = 6 // months
	untitledMeeting = "(bez názvu)"
)

// EventSource lists one page of calendar events. Exactly one of syncToken
// and timeMin is used.
type EventSource interface {
	ListEvents(ctx context.Context, syncToken string, timeMin time.Time, pageToken string) (*calendar.Events, error)
}

// GoogleSource lists events of one calendar through the Calendar API.
type GoogleSource struct {
	svc        *calendar.Service
	calendarID string
}

// NewGoogleSource builds an authenticated Calendar API source.
func NewGoogleSource(ctx context.Context, conf *oauth2.Config, token *oauth2.Token, calendarID string) (*GoogleSource, error) {
	if token == nil {
		return nil, errors.New("token cannot be nil")
	}
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleSource{svc: svc, calendarID: calendarID}, nil
}

func (g *GoogleSource) ListEvents(ctx context.Context, syncToken string, timeMin time.Time, pageToken string) (*calendar.Events, error) {
	call := g.svc.Events.List(g.calendarID).
		MaxResults(maxResults).
		SingleEvents(true).
		Context(ctx)
	if syncToken != "" {
		call = call.SyncToken(syncToken)
	} else {
		call = call.TimeMin(timeMin.Format(time.RFC3339))
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Do()
}

// ImportResult summarizes one import run.
type ImportResult struct {
	Fetched int
	Created int
	Updated int
	Skipped map[string]int
}

// Importer copies calendar events into the session user's meetings.
type Importer struct {
	svc    *crm.Service
	sess   store.Session
	source EventSource
	logger *log.Logger
}

func NewImporter(svc *crm.Service, sess store.Session, source EventSource, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.Default()
	}
	return &Importer{svc: svc, sess: sess, source: source, logger: logger}
}

// Import fetches events and upserts meetings keyed by event id. An initial
// import, or one without a stored sync token, covers the last six months;
// later imports are incremental. A rejected sync token falls back to the
// last sync time.
func (im *Importer) Import(ctx context.Context, initial bool) (ImportResult, error) {
	st := im.svc.Store()
	result := ImportResult{Skipped: make(map[string]int)}

	if err := st.UpdateSyncStatus(CalendarService, store.SyncRunning, ""); err != nil {
		return result, fmt.Errorf("failed to update sync status: %w", err)
	}
	fail := func(err error) (ImportResult, error) {
		_ = st.UpdateSyncStatus(CalendarService, store.SyncError, err.Error())
		return result, err
	}

	state, err := st.SyncState(CalendarService)
	if err != nil {
		return fail(err)
	}

	timeMin := st.Now().AddDate(0, -initialWindow, 0)
	syncToken := ""
	if !initial && state != nil && state.LastSyncToken != "" {
		syncToken = state.LastSyncToken
		im.logger.Info("incremental calendar sync")
	} else {
		im.logger.Info("calendar sync", "since", timeMin.Format(models.DateLayout))
	}

	matcher := NewClientMatcher(im.svc.Clients(im.sess))
	pageToken := ""
	nextSyncToken := ""
	for {
		events, err := im.source.ListEvents(ctx, syncToken, timeMin, pageToken)
		if err != nil && syncToken != "" && isGone(err) {
			im.logger.Warn("sync token rejected, falling back to time-based sync")
			syncToken, pageToken = "", ""
			if state != nil && state.LastSyncTime != nil {
				timeMin = *state.LastSyncTime
			}
			events, err = im.source.ListEvents(ctx, syncToken, timeMin, pageToken)
		}
		if err != nil {
			return fail(fmt.Errorf("failed to fetch calendar events: %w", err))
		}

		result.Fetched += len(events.Items)
		for _, event := range events.Items {
			if skip, reason := shouldSkipEvent(event); skip {
				result.Skipped[reason]++
				continue
			}
			m, err := EventToMeeting(event)
			if err != nil {
				im.logger.Warn("skipping unreadable event", "id", event.Id, "err", err)
				result.Skipped["unreadable"]++
				continue
			}
			if id, ok := matcher.Match(attendeeEmails(event)...); ok {
				m.ClientID = &id
			}
			_, created, err := im.svc.SaveImportedMeeting(im.sess, m)
			if err != nil {
				return fail(fmt.Errorf("failed to save meeting for event %s: %w", event.Id, err))
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}

		pageToken = events.NextPageToken
		if pageToken == "" {
			nextSyncToken = events.NextSyncToken
			break
		}
	}

	if err := st.MarkSynced(CalendarService, nextSyncToken); err != nil {
		return result, fmt.Errorf("failed to record sync: %w", err)
	}
	im.logger.Info("calendar sync finished",
		"fetched", result.Fetched, "created", result.Created, "updated", result.Updated)
	return result, nil
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusGone
}

// shouldSkipEvent reports whether event cannot become a meeting, and why.
func shouldSkipEvent(event *calendar.Event) (bool, string) {
	switch {
	case event == nil:
		return true, "nil event"
	case event.Status == "cancelled":
		return true, "cancelled"
	case event.Start == nil:
		return true, "missing start time"
	case event.Start.Date != "":
		return true, "all-day"
	}
	for _, a := range event.Attendees {
		if a.Self && a.ResponseStatus == "declined" {
			return true, "declined"
		}
	}
	return false, ""
}

// EventToMeeting converts a timed event. A missing end means one hour.
func EventToMeeting(event *calendar.Event) (models.Meeting, error) {
	start, err := time.Parse(time.RFC3339, event.Start.DateTime)
	if err != nil {
		return models.Meeting{}, fmt.Errorf("invalid start time %q: %w", event.Start.DateTime, err)
	}
	end := start.Add(time.Hour)
	if event.End != nil && event.End.DateTime != "" {
		end, err = time.Parse(time.RFC3339, event.End.DateTime)
		if err != nil {
			return models.Meeting{}, fmt.Errorf("invalid end time %q: %w", event.End.DateTime, err)
		}
	}
	if !end.After(start) {
		end = start.Add(time.Hour)
	}

	title := event.Summary
	if title == "" {
		title = untitledMeeting
	}
	return models.Meeting{
		Title:         title,
		Description:   event.Description,
		StartTime:     start,
		EndTime:       end,
		Location:      event.Location,
		MeetingType:   "google",
		GoogleEventID: event.Id,
	}, nil
}

func attendeeEmails(event *calendar.Event) []string {
	var emails []string
	for _, a := range event.Attendees {
		if !a.Self && a.Email != "" {
			emails = append(emails, a.Email)
		}
	}
	return emails
}
