package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/church-music-scheduler/internal/config"
	"github.com/jakechorley/church-music-scheduler/pkg/core/recurrence"
	"github.com/jakechorley/church-music-scheduler/pkg/core/series"
)

func testApp() *AppContext {
	return &AppContext{Cfg: &config.Config{Timezone: "Europe/London"}}
}

func TestParseTime(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	tests := []struct {
		value    string
		expected time.Time
	}{
		{"2024-07-07 10:00", time.Date(2024, 7, 7, 10, 0, 0, 0, london)},
		{"2024-07-07T10:00", time.Date(2024, 7, 7, 10, 0, 0, 0, london)},
		{"2024-07-07", time.Date(2024, 7, 7, 0, 0, 0, 0, london)},
		{"2024-07-07T09:00:00Z", time.Date(2024, 7, 7, 10, 0, 0, 0, london)},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseTime(tt.value, london)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %s", got)
		})
	}

	_, err = parseTime("07/07/2024", london)
	assert.Error(t, err)
}

func TestParseRoleSlots(t *testing.T) {
	slots, err := parseRoleSlots([]string{"Piano", "Vocals:2", " Drums : 1 "})
	require.NoError(t, err)
	assert.Equal(t, []series.RoleSlot{
		{RoleName: "Piano", MaxMusicians: 1},
		{RoleName: "Vocals", MaxMusicians: 2},
		{RoleName: "Drums", MaxMusicians: 1},
	}, slots)

	_, err = parseRoleSlots([]string{"Vocals:0"})
	assert.Error(t, err)
	_, err = parseRoleSlots([]string{"Vocals:many"})
	assert.Error(t, err)
}

func TestParsePattern(t *testing.T) {
	p, err := parsePattern("")
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = parsePattern("Weekly")
	require.NoError(t, err)
	assert.Equal(t, recurrence.Weekly{}, p.Rule)

	p, err = parsePattern("biweekly")
	require.NoError(t, err)
	assert.Equal(t, recurrence.Biweekly{}, p.Rule)

	p, err = parsePattern(`{"type":"weekly","maxOccurrences":4}`)
	require.NoError(t, err)
	assert.Equal(t, 4, p.MaxOccurrences)

	_, err = parsePattern("fortnightly")
	assert.Error(t, err)
}

func TestCreateRequestFromFlags(t *testing.T) {
	app := testApp()
	cmd := CreateSeriesCmd(app)
	require.NoError(t, cmd.ParseFlags([]string{
		"--name", "Sunday Service",
		"--location", "Main Sanctuary",
		"--start", "2024-01-07 10:00",
		"--end", "2024-01-07 11:30",
		"--pattern", "weekly",
		"--until", "2024-03-31",
		"--role", "Piano",
		"--role", "Vocals:2",
		"--hymn", "opening-hymn",
	}))

	req, err := createRequestFromFlags(cmd, app)
	require.NoError(t, err)

	assert.Equal(t, "Sunday Service", req.Name)
	assert.Equal(t, "Main Sanctuary", req.Location)
	assert.Equal(t, "2024-01-07 10:00", req.StartTime.Format("2006-01-02 15:04"))
	require.NotNil(t, req.EndTime)
	assert.Equal(t, 90*time.Minute, req.EndTime.Sub(req.StartTime))
	assert.True(t, req.IsRecurring)
	require.NotNil(t, req.RecurrencePattern)
	assert.Equal(t, recurrence.Weekly{}, req.RecurrencePattern.Rule)
	assert.Equal(t, "2024-03-31", req.RecurrenceEnd)
	assert.Len(t, req.Roles, 2)
	assert.Equal(t, []series.HymnSlot{{ServicePartID: "opening-hymn"}}, req.Hymns)
}

func TestCreateRequestFromFlags_OneOff(t *testing.T) {
	app := testApp()
	cmd := CreateSeriesCmd(app)
	require.NoError(t, cmd.ParseFlags([]string{"--name", "Carol Service", "--start", "2024-12-22 18:00"}))

	req, err := createRequestFromFlags(cmd, app)
	require.NoError(t, err)

	assert.False(t, req.IsRecurring)
	assert.Nil(t, req.RecurrencePattern)
	assert.Nil(t, req.EndTime)
}

func TestCreateRequestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "Sunday Service",
		"location": "Main Sanctuary",
		"startTime": "2024-01-07T10:00:00Z",
		"isRecurring": true,
		"recurrencePattern": {"type": "biweekly"},
		"roles": [{"roleName": "Piano"}]
	}`), 0644))

	app := testApp()
	cmd := CreateSeriesCmd(app)
	require.NoError(t, cmd.ParseFlags([]string{"--file", path}))

	req, err := createRequestFromFlags(cmd, app)
	require.NoError(t, err)
	assert.Equal(t, "Sunday Service", req.Name)
	require.NotNil(t, req.RecurrencePattern)
	assert.Equal(t, recurrence.Biweekly{}, req.RecurrencePattern.Rule)

	require.NoError(t, os.WriteFile(path, []byte(`{"name": "x", "colour": "blue"}`), 0644))
	_, err = createRequestFromFlags(cmd, app)
	assert.Error(t, err)
}

func TestEditRequestFromFlags(t *testing.T) {
	app := testApp()
	cmd := EditSeriesCmd(app)
	require.NoError(t, cmd.ParseFlags([]string{
		"--scope", "ALL",
		"--dry-run",
		"--name", "Morning Worship",
		"--start", "2024-01-07 09:30",
		"--pattern", "biweekly",
		"--role", "Organ",
		"--clear-hymns",
	}))

	req, err := editRequestFromFlags(cmd, app)
	require.NoError(t, err)

	assert.Equal(t, series.ScopeAll, req.EditScope)
	assert.True(t, req.DryRun)
	require.NotNil(t, req.Name)
	assert.Equal(t, "Morning Worship", *req.Name)
	assert.Nil(t, req.Location)
	assert.Nil(t, req.Description)
	require.NotNil(t, req.StartTime)
	assert.Equal(t, "09:30", req.StartTime.Format("15:04"))
	assert.Nil(t, req.EndTime)
	require.NotNil(t, req.RecurrencePattern)
	assert.Equal(t, recurrence.Biweekly{}, req.RecurrencePattern.Rule)

	assert.Equal(t, series.ChangeReplace, req.Roles.Mode())
	assert.Equal(t, []series.RoleSlot{{RoleName: "Organ", MaxMusicians: 1}}, req.Roles.Items())
	assert.Equal(t, series.ChangeClear, req.Hymns.Mode())
}

func TestEditRequestFromFlags_UntouchedFieldsAreKept(t *testing.T) {
	app := testApp()
	cmd := EditSeriesCmd(app)
	require.NoError(t, cmd.ParseFlags([]string{"--location", "Hall"}))

	req, err := editRequestFromFlags(cmd, app)
	require.NoError(t, err)

	assert.Equal(t, series.ScopeFuture, req.EditScope)
	assert.Nil(t, req.Name)
	assert.Nil(t, req.RecurrencePattern)
	assert.Equal(t, series.ChangeUnchanged, req.Roles.Mode())
	assert.Equal(t, series.ChangeUnchanged, req.Hymns.Mode())
}

func TestEditRequestFromFlags_RoleAndClearConflict(t *testing.T) {
	app := testApp()
	cmd := EditSeriesCmd(app)
	require.NoError(t, cmd.ParseFlags([]string{"--role", "Organ", "--clear-roles"}))

	_, err := editRequestFromFlags(cmd, app)
	assert.EqualError(t, err, "--role and --clear-roles cannot be used together")
}
