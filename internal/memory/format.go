package memory

import (
	"sort"
	"strings"

	"github.com/starford/maxwell/internal/models"
)

// FormatContext renders observations as markdown: one "##" section per
// owning entity (first-appearance order) with "###" date subsections, then
// "Pending Tasks" and, when more than one entity is present, "Related
// Entities". names maps entity ids to display names; observations whose
// owner has no name are left out.
func FormatContext(entities []models.Entity, obs []models.Observation, names map[string]string) string {
	var lines []string

	var order []string
	byEntity := make(map[string][]models.Observation)
	for _, o := range obs {
		if _, ok := byEntity[o.EntityID]; !ok {
			order = append(order, o.EntityID)
		}
		byEntity[o.EntityID] = append(byEntity[o.EntityID], o)
	}

	for _, id := range order {
		name, ok := names[id]
		if !ok {
			continue
		}
		lines = append(lines, "## "+name, "")

		byDate := make(map[string][]models.Observation)
		var dates []string
		for _, o := range byEntity[id] {
			if _, ok := byDate[o.CreatedAt]; !ok {
				dates = append(dates, o.CreatedAt)
			}
			byDate[o.CreatedAt] = append(byDate[o.CreatedAt], o)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(dates)))

		for _, d := range dates {
			lines = append(lines, "### "+d)
			for _, o := range byDate[d] {
				lines = append(lines, bullet(o)+" "+o.Content)
			}
			lines = append(lines, "")
		}
	}

	var pending []models.Observation
	for _, o := range obs {
		if o.IsPendingTask() {
			pending = append(pending, o)
		}
	}
	if len(pending) > 0 {
		lines = append(lines, "## Pending Tasks", "")
		for _, t := range truncate(pending, MaxContextTasks) {
			line := "- [ ] " + t.Content
			if name := names[t.EntityID]; name != "" {
				line += " (" + name + ")"
			}
			lines = append(lines, line)
		}
		lines = append(lines, "")
	}

	if len(entities) > 1 {
		lines = append(lines, "## Related Entities", "")
		for _, e := range truncate(entities, 10) {
			lines = append(lines, "- [["+e.Name+"]]")
		}
	}

	return strings.Join(lines, "\n")
}

func bullet(o models.Observation) string {
	if o.Category != models.CategoryTask {
		return "-"
	}
	if o.Completed != nil && *o.Completed {
		return "- [x]"
	}
	return "- [ ]"
}
