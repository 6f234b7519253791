package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/church-music-scheduler/pkg/core/matcher"
	"github.com/jakechorley/church-music-scheduler/pkg/core/services"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
)

// AutoAssignCmd creates the autoAssign command
func AutoAssignCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autoAssign <event_id>...",
		Short: "Propose musicians for the open roles on events",
		Long: `Match qualified, available musicians to every open role slot on the given
events. Without --preview the proposals are saved as pending assignments.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preview, _ := cmd.Flags().GetBool("preview")
			group, _ := cmd.Flags().GetString("group")

			req := services.AutoAssignRequest{
				Actor:       app.Actor,
				EventIDs:    args,
				Preview:     preview,
				GroupFilter: group,
			}
			if cmd.Flags().Changed("seed") {
				seed, _ := cmd.Flags().GetUint64("seed")
				req.Seed = &seed
			}

			app.Logger.Debug("autoAssign command",
				zap.Strings("event_ids", args),
				zap.Bool("preview", preview),
				zap.String("group", group))

			result, err := services.AutoAssign(app.Ctx, app.Database, app.Logger, app.Cfg, req)
			if err != nil {
				return fmt.Errorf("auto-assign failed: %w", err)
			}

			fmt.Printf("\n🎯 Auto-Assign Results\n\n")
			if result.Preview {
				fmt.Printf("Mode:    🧪 PREVIEW (not saved)\n")
			} else if result.SuccessfulAssignments > 0 {
				fmt.Printf("Status:  ✅ SAVED (pending acceptance)\n")
			} else {
				fmt.Printf("Status:  ⚠️  NOTHING TO SAVE\n")
			}
			fmt.Printf("Filled:  %d of %d open roles\n\n", result.SuccessfulAssignments, result.TotalAssignments)

			if len(result.Proposals) == 0 {
				fmt.Println("No open roles on these events.")
				return nil
			}

			for _, p := range result.Proposals {
				fmt.Println(formatProposal(p))
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().Bool("preview", false, "Show proposals without saving")
	cmd.Flags().String("group", "", "Only consider members of this group")
	cmd.Flags().Uint64("seed", 0, "Seed for choosing between equally eligible musicians")

	return cmd
}

func formatProposal(p matcher.Proposal) string {
	when := p.EventStart.Format("Mon 2006-01-02 15:04")
	if p.IsAssigned() {
		return fmt.Sprintf("  %s%-22s%s %-24s %-12s → %s%s%s",
			colorBold, when, colorReset, p.EventName, p.RoleName, colorGreen, p.PersonName, colorReset)
	}
	return fmt.Sprintf("  %s%-22s%s %-24s %-12s → %s(open: %s)%s",
		colorBold, when, colorReset, p.EventName, p.RoleName, colorYellow, p.Reason, colorReset)
}
