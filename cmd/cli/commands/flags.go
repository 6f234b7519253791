package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jakechorley/church-music-scheduler/pkg/core/recurrence"
	"github.com/jakechorley/church-music-scheduler/pkg/core/series"
)

var timeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTime accepts RFC3339 or a local date and time in loc
func parseTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want YYYY-MM-DD HH:MM or RFC3339)", value)
}

// parseRoleSlots reads "Role" or "Role:max" values
func parseRoleSlots(values []string) ([]series.RoleSlot, error) {
	slots := make([]series.RoleSlot, 0, len(values))
	for _, v := range values {
		name, maxStr, hasMax := strings.Cut(v, ":")
		slot := series.RoleSlot{RoleName: strings.TrimSpace(name), MaxMusicians: 1}
		if hasMax {
			n, err := strconv.Atoi(strings.TrimSpace(maxStr))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid role %q: max musicians must be a positive number", v)
			}
			slot.MaxMusicians = n
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func parseHymnSlots(values []string) []series.HymnSlot {
	slots := make([]series.HymnSlot, 0, len(values))
	for _, v := range values {
		slots = append(slots, series.HymnSlot{ServicePartID: strings.TrimSpace(v)})
	}
	return slots
}

// parsePattern reads a pattern given as JSON or as one of the shorthands
// weekly and biweekly
func parsePattern(value string) (*recurrence.Pattern, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "":
		return nil, nil
	case "weekly", "biweekly":
		value = fmt.Sprintf(`{"type":%q}`, strings.ToLower(value))
	}
	p, err := recurrence.ParsePattern([]byte(value))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// contentChange turns the --role/--hymn style flags into a tri-state change:
// untouched flags keep content, --clear-<name> clears it
func contentChange[T any](cmd *cobra.Command, flag, clearFlag string, items []T) (series.Change[T], error) {
	cleared, _ := cmd.Flags().GetBool(clearFlag)
	set := cmd.Flags().Changed(flag)
	switch {
	case cleared && set:
		return series.Change[T]{}, fmt.Errorf("--%s and --%s cannot be used together", flag, clearFlag)
	case cleared:
		return series.Clear[T](), nil
	case set:
		return series.Replace(items), nil
	default:
		return series.Unchanged[T](), nil
	}
}

// readRequestFile decodes a JSON request body from path, rejecting unknown fields
func readRequestFile(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open request file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to parse request file: %w", err)
	}
	return nil
}

// stringFlag returns a pointer to the flag's value when it was set
func stringFlag(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}
