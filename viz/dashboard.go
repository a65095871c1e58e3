// ABOUTME: Terminal dashboard statistics and rendering
// ABOUTME: Clients and potential per stage, open tasks, today's meetings and top potentials
package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/store"
	"github.com/harperreed/advisor-crm/workflow"
)

// TopPotentialLimit is how many potentials the dashboard lists.
const TopPotentialLimit = 5

type DashboardStats struct {
	// Pipeline overview, in stage order
	Stages []StageStats

	TotalClients   int
	TotalPotential float64
	OpenTasks      int
	OverdueTasks   int

	TodayMeetings []models.Meeting
	TopPotentials []TopPotential
}

type StageStats struct {
	Stage     models.WorkflowStage
	Name      string
	Count     int
	Potential float64
}

type TopPotential struct {
	ClientName string
	Total      float64
	Priority   models.PotentialPriority
}

// GenerateDashboardStats gathers the dashboard for what sess may see.
func GenerateDashboardStats(st *store.Store, sess store.Session, now time.Time) *DashboardStats {
	clients := st.VisibleClients(sess)
	visible := make(map[int64]models.Client, len(clients))
	for _, c := range clients {
		visible[c.ID] = c
	}
	potentials := st.Potentials.All()

	stats := &DashboardStats{TotalClients: len(clients)}
	for _, col := range workflow.Board(clients, workflow.NewPotentialIndex(potentials)) {
		stats.Stages = append(stats.Stages, StageStats{
			Stage:     col.Stage,
			Name:      col.Name,
			Count:     col.Count,
			Potential: col.TotalPotential,
		})
		stats.TotalPotential += col.TotalPotential
	}

	stats.OpenTasks = len(st.PendingTasks(sess))
	stats.OverdueTasks = len(st.OverdueTasks(sess))
	stats.TodayMeetings = st.MeetingsOn(sess, now)

	for _, p := range st.TopPotentials(len(potentials)) {
		c, ok := visible[p.ClientID]
		if !ok {
			continue
		}
		stats.TopPotentials = append(stats.TopPotentials, TopPotential{
			ClientName: c.FullName(),
			Total:      p.TotalExpectedCommission,
			Priority:   p.Priority,
		})
		if len(stats.TopPotentials) == TopPotentialLimit {
			break
		}
	}
	return stats
}

func RenderDashboard(stats *DashboardStats) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  ADVISOR CRM DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("PIPELINE\n")
	renderPipeline(&out, stats.Stages)
	out.WriteString("\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  %d clients  %d open tasks  %d overdue  %s potential\n\n",
		stats.TotalClients, stats.OpenTasks, stats.OverdueTasks, FormatCZK(stats.TotalPotential)))

	out.WriteString("TODAY\n")
	if len(stats.TodayMeetings) == 0 {
		out.WriteString("  No meetings today\n")
	}
	for _, m := range stats.TodayMeetings {
		out.WriteString(fmt.Sprintf("  %s-%s  %s\n", m.StartTime.Format("15:04"), m.EndTime.Format("15:04"), m.Title))
	}

	if len(stats.TopPotentials) > 0 {
		out.WriteString("\nTOP POTENTIAL\n")
		for i, p := range stats.TopPotentials {
			out.WriteString(fmt.Sprintf("  %d. %-20s %-8s %s\n", i+1, p.ClientName, p.Priority, FormatCZK(p.Total)))
		}
	}

	return out.String()
}

func renderPipeline(out *strings.Builder, stages []StageStats) {
	maxCount := 0
	for _, s := range stages {
		if s.Count > maxCount {
			maxCount = s.Count
		}
	}
	if maxCount == 0 {
		maxCount = 1
	}

	for _, s := range stages {
		// 0-10 blocks
		barLength := (s.Count * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-17s %s  %2d  %s\n", s.Name, bar, s.Count, FormatCZK(s.Potential)))
	}
}

// FormatCZK renders an amount as whole crowns with space-grouped thousands,
// e.g. "55 000 Kč".
func FormatCZK(amount float64) string {
	n := int64(math.Round(amount))
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := fmt.Sprintf("%d", n)
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte(' ')
		}
		grouped.WriteRune(d)
	}
	return sign + grouped.String() + " Kč"
}
