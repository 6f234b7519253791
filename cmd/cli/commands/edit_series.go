package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/church-music-scheduler/pkg/core/series"
	"github.com/jakechorley/church-music-scheduler/pkg/core/services"
)

// EditSeriesCmd creates the editSeries command
func EditSeriesCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "editSeries <root_event_id>",
		Short: "Edit a recurring series and regenerate its occurrences",
		Long: `Edit the root event of a series. Only the flags given are changed.

Keeping the pattern updates the occurrences in place (--scope future or all).
Changing the pattern regenerates the series: new occurrences are created before
old ones are removed, and occurrences that were edited by hand or already have
people or content attached are left alone.

Examples:
  editSeries 3f1c... --pattern biweekly --dry-run
  editSeries 3f1c... --name "Morning Worship" --start "2024-01-07 09:30" --scope all
  editSeries 3f1c... --role Organ --role Vocals:2
  editSeries 3f1c... --clear-hymns`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := editRequestFromFlags(cmd, app)
			if err != nil {
				return err
			}
			req.Actor = app.Actor
			req.RootEventID = args[0]

			app.Logger.Debug("editSeries command",
				zap.String("root_event_id", req.RootEventID),
				zap.String("edit_scope", string(req.EditScope)),
				zap.Bool("dry_run", req.DryRun))

			result, err := services.EditSeries(app.Ctx, app.Database, app.Logger, app.Cfg, req)
			if err != nil {
				return fmt.Errorf("failed to edit series: %w", err)
			}

			printEditResult(result)
			return nil
		},
	}

	cmd.Flags().String("file", "", "Read the request from a JSON file instead of flags")
	cmd.Flags().String("scope", string(series.ScopeFuture), "Occurrences to update in place: future or all")
	cmd.Flags().Bool("dry-run", false, "Show what would change without saving")
	cmd.Flags().String("name", "", "New event name")
	cmd.Flags().String("description", "", "New event description")
	cmd.Flags().String("location", "", "New event location")
	cmd.Flags().String("event-type", "", "New event type ID")
	cmd.Flags().String("start", "", "New start time of the root event")
	cmd.Flags().String("end", "", "New end time of the root event")
	cmd.Flags().String("pattern", "", "New recurrence pattern: weekly, biweekly or a JSON pattern")
	cmd.Flags().StringArray("role", nil, "Replace role slots: Name or Name:maxMusicians (repeatable)")
	cmd.Flags().StringArray("hymn", nil, "Replace hymn parts with these service part IDs (repeatable)")
	cmd.Flags().Bool("clear-roles", false, "Remove all role slots")
	cmd.Flags().Bool("clear-hymns", false, "Remove all hymn parts")

	return cmd
}

func editRequestFromFlags(cmd *cobra.Command, app *AppContext) (services.EditSeriesRequest, error) {
	var req services.EditSeriesRequest

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		err := readRequestFile(path, &req)
		return req, err
	}

	loc, err := app.Cfg.Location()
	if err != nil {
		return req, err
	}

	scope, _ := cmd.Flags().GetString("scope")
	req.EditScope = series.Scope(strings.ToLower(scope))
	req.DryRun, _ = cmd.Flags().GetBool("dry-run")

	req.Name = stringFlag(cmd, "name")
	req.Description = stringFlag(cmd, "description")
	req.Location = stringFlag(cmd, "location")
	req.EventTypeID = stringFlag(cmd, "event-type")

	if start := stringFlag(cmd, "start"); start != nil {
		t, err := parseTime(*start, loc)
		if err != nil {
			return req, err
		}
		req.StartTime = &t
	}
	if end := stringFlag(cmd, "end"); end != nil {
		t, err := parseTime(*end, loc)
		if err != nil {
			return req, err
		}
		req.EndTime = &t
	}

	if pattern := stringFlag(cmd, "pattern"); pattern != nil {
		if req.RecurrencePattern, err = parsePattern(*pattern); err != nil {
			return req, err
		}
	}

	roleValues, _ := cmd.Flags().GetStringArray("role")
	roles, err := parseRoleSlots(roleValues)
	if err != nil {
		return req, err
	}
	if req.Roles, err = contentChange(cmd, "role", "clear-roles", roles); err != nil {
		return req, err
	}

	hymnValues, _ := cmd.Flags().GetStringArray("hymn")
	if req.Hymns, err = contentChange(cmd, "hymn", "clear-hymns", parseHymnSlots(hymnValues)); err != nil {
		return req, err
	}

	return req, nil
}

func printEditResult(result *services.EditSeriesResult) {
	fmt.Printf("\n🔁 Series Edit Results\n\n")
	if result.DryRun {
		fmt.Printf("Mode:     🧪 DRY RUN (not saved)\n")
	} else {
		fmt.Printf("Status:   ✅ %s\n", result.Description)
	}
	if result.PatternChanged {
		fmt.Printf("Pattern:  changed (series regenerated)\n\n")
	} else {
		fmt.Printf("Pattern:  unchanged (updated in place)\n\n")
	}

	if result.DryRun {
		fmt.Printf("Would create: %d\n", result.WouldCreate)
		fmt.Printf("Would remove: %d\n", result.WouldDelete)
		fmt.Printf("Would update: %d\n", result.WouldUpdate)
	} else {
		fmt.Printf("Created: %d\n", result.EventsCreated)
		fmt.Printf("Removed: %d\n", result.EventsRemoved)
		fmt.Printf("Updated: %d\n", result.EventsUpdated)
	}

	if result.EventsSkipped > 0 {
		fmt.Printf("\n⚠️  Kept %d occurrences with edits or attached content:\n", result.EventsSkipped)
		for _, d := range result.SkippedEventDates {
			fmt.Printf("  • %s\n", d)
		}
	}
	fmt.Println()
}
