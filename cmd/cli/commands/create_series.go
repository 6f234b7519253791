package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/church-music-scheduler/pkg/core/services"
)

// CreateSeriesCmd creates the createSeries command
func CreateSeriesCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "createSeries",
		Short: "Create an event, or a recurring series of events",
		Long: `Create an event with its role slots and hymn parts. With --pattern the event
becomes the root of a series and its occurrences are generated up to the horizon.

Examples:
  createSeries --name "Sunday Service" --location "Main Sanctuary" \
    --start "2024-01-07 10:00" --end "2024-01-07 11:30" --pattern weekly \
    --role Piano --role Vocals:2 --hymn opening-hymn
  createSeries --file series.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := createRequestFromFlags(cmd, app)
			if err != nil {
				return err
			}
			req.Actor = app.Actor

			app.Logger.Debug("createSeries command",
				zap.String("name", req.Name),
				zap.Bool("is_recurring", req.IsRecurring))

			result, err := services.CreateRecurringEvent(app.Ctx, app.Database, app.Logger, app.Cfg, req)
			if err != nil {
				return fmt.Errorf("failed to create series: %w", err)
			}

			fmt.Printf("\n✓ %s\n\n", result.Description)
			fmt.Printf("Event ID:    %s\n", result.Root.ID)
			fmt.Printf("Name:        %s\n", result.Root.Name)
			fmt.Printf("Location:    %s\n", result.Root.Location)
			fmt.Printf("Start:       %s\n", result.Root.StartTime.Format("2006-01-02 15:04 (Monday)"))
			if result.Root.RecurrencePattern != nil {
				fmt.Printf("Pattern:     %s\n", result.Root.RecurrencePattern.Describe())
			}
			fmt.Printf("Role slots:  %d\n", result.AssignmentsCreated)
			fmt.Printf("Hymn parts:  %d\n\n", result.HymnsCreated)

			if len(result.Children) > 0 {
				fmt.Printf("📅 Occurrences:\n")
				for i, child := range result.Children {
					fmt.Printf("  %2d. %s\n", i+1, child.StartTime.Format("2006-01-02 15:04 (Monday)"))
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().String("file", "", "Read the request from a JSON file instead of flags")
	cmd.Flags().String("name", "", "Event name")
	cmd.Flags().String("description", "", "Event description")
	cmd.Flags().String("location", "", "Event location")
	cmd.Flags().String("event-type", "", "Event type ID")
	cmd.Flags().String("start", "", "Start time (YYYY-MM-DD HH:MM in the configured timezone, or RFC3339)")
	cmd.Flags().String("end", "", "End time")
	cmd.Flags().String("pattern", "", "Recurrence pattern: weekly, biweekly or a JSON pattern")
	cmd.Flags().String("until", "", "Last date of the series (YYYY-MM-DD)")
	cmd.Flags().StringArray("role", nil, "Role slot as Name or Name:maxMusicians (repeatable)")
	cmd.Flags().StringArray("hymn", nil, "Hymn service part ID (repeatable)")

	return cmd
}

func createRequestFromFlags(cmd *cobra.Command, app *AppContext) (services.CreateRecurringEventRequest, error) {
	var req services.CreateRecurringEventRequest

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		err := readRequestFile(path, &req)
		return req, err
	}

	loc, err := app.Cfg.Location()
	if err != nil {
		return req, err
	}

	req.Name, _ = cmd.Flags().GetString("name")
	req.Description, _ = cmd.Flags().GetString("description")
	req.Location, _ = cmd.Flags().GetString("location")
	req.EventTypeID, _ = cmd.Flags().GetString("event-type")
	req.RecurrenceEnd, _ = cmd.Flags().GetString("until")

	if start, _ := cmd.Flags().GetString("start"); start != "" {
		if req.StartTime, err = parseTime(start, loc); err != nil {
			return req, err
		}
	}
	if end, _ := cmd.Flags().GetString("end"); end != "" {
		var endTime time.Time
		if endTime, err = parseTime(end, loc); err != nil {
			return req, err
		}
		req.EndTime = &endTime
	}

	pattern, _ := cmd.Flags().GetString("pattern")
	if req.RecurrencePattern, err = parsePattern(pattern); err != nil {
		return req, err
	}
	req.IsRecurring = req.RecurrencePattern != nil

	roles, _ := cmd.Flags().GetStringArray("role")
	if req.Roles, err = parseRoleSlots(roles); err != nil {
		return req, err
	}
	hymns, _ := cmd.Flags().GetStringArray("hymn")
	req.Hymns = parseHymnSlots(hymns)

	return req, nil
}
