// Package prompt composes the system context and user instruction strings
// sent to the model backends. Composition is two pure levels: a row template
// rendered once per event, spliced into the parent context template. Rendering
// is total: missing optional profile fields substitute documented defaults
// and never fail.
package prompt

import (
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/nestling-app/nestling-api/internal/models"
	"github.com/nestling-app/nestling-api/internal/timeutil"
)

// Defaults rendered in place of unset optional fields.
const (
	DefaultBirthDate         = "unknown"
	DefaultExtraInstructions = "none"
	DefaultSubjectName       = "Baby"
)

const rowTemplateText = `| {{.LocalTime}} | {{.Quantity}} mL | {{.Note}} ||`

const systemTemplateText = `# general instructions
You are a newborn assistant.
Given the last feeding times and amounts you can provide your advice about when the next feeding should be and other useful insights for new parents.

# main instructions
- Speak in friendly and concise terms.
- When talking of time, use 8PM instead of 20:00.
- You can find all user data under the # user data section.
- You can find all baby data under the # baby data section.
- You can find all aggregate baby feeding data under the # aggregate baby feeding data section.
- You can find all activity data under the # feedings section.
- You can find additional instructions under the # additional instructions section.
- Leverage all the information you have to make the response friendly and informative for the user (who is a new parent).
- Look for patterns in the feeding data to provide insights, for example, if an activity entry was missing or if the feeding times were irregular.
- Bold the insights you think are important and return the result in MARKDOWN format.

# additional instructions
{{.ExtraInstructions}}

# user data
[USER TIMEZONE]: {{.Timezone}}
[USER CURRENT TIME]: {{.UserTime}}

# baby data
[BABY NAME]: {{.SubjectName}}
[BABY BIRTH DATE]: {{.BirthDate}}
[BABY WEIGHT]: {{.WeightKg}} kg
[AMOUNT REQUIRED PER DAY]: {{.DailyTarget}} mL

# aggregate baby feeding data
[LAST 24HRS NUMBER OF FEEDS]: {{.Rolling24hCount}}
[LAST 24HRS TOTAL FEEDS]: {{.Rolling24hTotal}} mL
[LAST 24HRS AVERAGE AMOUNT PER FEED]: {{.Rolling24hAverage}} mL
[TODAY NUMBER OF FEEDS]: {{.CalendarDayCount}}
[TODAY TOTAL FEEDS]: {{.CalendarDayTotal}} mL
[TODAY AVERAGE AMOUNT PER FEED]: {{.CalendarDayAverage}} mL

# feedings
| [FEEDING TIME] | [FEEDING AMOUNT] | [FEEDING NOTE] ||---------|---------|---------||
{{.Feedings}}
`

const defaultUserTemplateText = `Look at the # feedings section for data about all the previous feedings, usually feedings are every 3 to 4 hrs. When should the next feeding be?

Look at the # aggregate baby feeding data section for the "last 24hrs totals", newborns should in general feed about {{.DailyTarget}} mL per 24 hrs.

Make it helpful, short and concise.
`

// Renderer renders the system context and user instruction for a profile.
type Renderer struct {
	row    *template.Template
	system *template.Template
	user   *template.Template
}

// NewRenderer parses the built-in templates.
func NewRenderer() *Renderer {
	return &Renderer{
		row:    template.Must(template.New("row").Parse(rowTemplateText)),
		system: template.Must(template.New("system").Parse(systemTemplateText)),
		user:   template.Must(template.New("user").Parse(defaultUserTemplateText)),
	}
}

type rowData struct {
	LocalTime string
	Quantity  string
	Note      string
}

type systemData struct {
	ExtraInstructions  string
	Timezone           string
	UserTime           string
	SubjectName        string
	BirthDate          string
	WeightKg           string
	DailyTarget        string
	Rolling24hCount    string
	Rolling24hTotal    string
	Rolling24hAverage  string
	CalendarDayCount   string
	CalendarDayTotal   string
	CalendarDayAverage string
	Feedings           string
}

type userData struct {
	DailyTarget string
}

// RenderSystemContext renders the profile, aggregate and activity-table
// context. Event rows keep the caller's ordering; the composer never reorders.
func (r *Renderer) RenderSystemContext(p *models.Profile, agg models.AggregateStats, events []models.Event, tz string, now time.Time) string {
	rows := make([]string, 0, len(events))
	for i := range events {
		e := &events[i]
		var sb strings.Builder
		_ = r.row.Execute(&sb, rowData{
			LocalTime: timeutil.ToHumanReadable(timeutil.ToLocal(e.OccurredAt, tz)),
			Quantity:  formatQuantity(e.Quantity),
			Note:      e.Note,
		})
		rows = append(rows, sb.String())
	}

	data := systemData{
		ExtraInstructions:  defaultString(p.ExtraInstructions, DefaultExtraInstructions),
		Timezone:           tz,
		UserTime:           timeutil.ToHumanReadable(timeutil.ToLocal(now, tz)),
		SubjectName:        defaultString(p.SubjectName, DefaultSubjectName),
		BirthDate:          formatBirthDate(p.SubjectBirthDate),
		WeightKg:           formatWeight(p.SubjectWeightKg),
		DailyTarget:        formatQuantity(p.DailyTargetQuantity()),
		Rolling24hCount:    strconv.Itoa(agg.Rolling24h.Count),
		Rolling24hTotal:    formatQuantity(agg.Rolling24h.TotalQuantity),
		Rolling24hAverage:  formatQuantity(agg.Rolling24h.AverageQuantity),
		CalendarDayCount:   strconv.Itoa(agg.CalendarDay.Count),
		CalendarDayTotal:   formatQuantity(agg.CalendarDay.TotalQuantity),
		CalendarDayAverage: formatQuantity(agg.CalendarDay.AverageQuantity),
		Feedings:           strings.Join(rows, "\n"),
	}

	var sb strings.Builder
	_ = r.system.Execute(&sb, data)
	return sb.String()
}

// RenderUserInstruction renders the trailing analysis request. A non-empty
// PromptOverride replaces the default instruction body verbatim; the system
// context is never overridable. An override that fails to parse falls back to
// the default so rendering stays total.
func (r *Renderer) RenderUserInstruction(p *models.Profile) string {
	data := userData{DailyTarget: formatQuantity(p.DailyTargetQuantity())}

	tmpl := r.user
	if p.PromptOverride != "" {
		if parsed, err := template.New("override").Parse(p.PromptOverride); err == nil {
			tmpl = parsed
		}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		sb.Reset()
		_ = r.user.Execute(&sb, data)
	}
	return sb.String()
}

// Render produces both strings consumed by a provider invocation.
func (r *Renderer) Render(p *models.Profile, agg models.AggregateStats, events []models.Event, tz string, now time.Time) (systemContext, userInstruction string) {
	return r.RenderSystemContext(p, agg, events, tz, now), r.RenderUserInstruction(p)
}

func defaultString(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func formatBirthDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return DefaultBirthDate
	}
	return t.Format("January 2 2006")
}

func formatWeight(kg float64) string {
	if kg <= 0 {
		return strconv.Itoa(models.UnknownWeight)
	}
	return formatQuantity(kg)
}

func formatQuantity(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
