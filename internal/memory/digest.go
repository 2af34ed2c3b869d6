package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/starford/maxwell/internal/extract"
)

// CommsPhrases mark date-entity observations written by messaging integrations.
var CommsPhrases = []string{"replied to", "unsubscribed from", "created draft", "reacted in", "acknowledged"}

const digestItemsPerSection = 10

// ActivityDigest is a bounded summary of recent comms and code activity.
type ActivityDigest struct {
	Summary           string `json:"summary"`
	CommsCount        int    `json:"comms_count"`
	CodeCount         int    `json:"code_count"`
	TotalObservations int    `json:"total_observations"`
}

type dayActivity struct {
	comms []string
	code  []string
}

// BuildActivityDigest summarises the last opts.Days days of comms actions
// (from daily notes) and code actions (from integration events).
func (s *Service) BuildActivityDigest(opts DigestOptions) (*ActivityDigest, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	cutoff := s.now().AddDate(0, 0, -opts.Days).Format(time.DateOnly)

	days := make(map[string]*dayActivity)
	day := func(date string) *dayActivity {
		if len(date) > 10 {
			date = date[:10]
		}
		d, ok := days[date]
		if !ok {
			d = &dayActivity{}
			days[date] = d
		}
		return d
	}

	var res ActivityDigest
	if opts.IncludeCode {
		events, err := s.db.IntegrationEventsSince(cutoff, opts.Limit)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			d := day(ev.Date)
			d.code = append(d.code, extract.StripComments(ev.Line))
			res.CodeCount++
		}
	}
	if opts.IncludeComms {
		obs, err := s.db.DateObservationsContaining(cutoff, CommsPhrases, opts.Limit)
		if err != nil {
			return nil, err
		}
		for _, o := range obs {
			d := day(o.CreatedAt)
			d.comms = append(d.comms, o.Content)
			res.CommsCount++
		}
	}
	res.TotalObservations = res.CommsCount + res.CodeCount

	if len(days) == 0 {
		res.Summary = "No recent activity found."
		return &res, nil
	}

	dates := make([]string, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	dates = truncate(dates, opts.Days)

	var lines []string
	for _, date := range dates {
		d := days[date]
		lines = append(lines, "## "+date)
		lines = appendSection(lines, "Comms", d.comms)
		lines = appendSection(lines, "Code", d.code)
		lines = append(lines, "")
	}
	res.Summary = strings.Join(lines, "\n")
	return &res, nil
}

func appendSection(lines []string, title string, items []string) []string {
	if len(items) == 0 {
		return lines
	}
	lines = append(lines, fmt.Sprintf("\n**%s (%d):**", title, len(items)))
	for _, it := range truncate(items, digestItemsPerSection) {
		lines = append(lines, "- "+it)
	}
	if extra := len(items) - digestItemsPerSection; extra > 0 {
		lines = append(lines, fmt.Sprintf("- ... and %d more", extra))
	}
	return lines
}
