package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/daemon"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/infra/sqlite"
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum rows to show")
	historyCmd.Flags().StringVar(&historyState, "state", "", "Only show uploads in this state (succeeded, failed, cancelled)")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete failed and cancelled uploads from history")
	rootCmd.AddCommand(historyCmd)
}

var (
	historyLimit int
	historyState string
	historyClear bool
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"ls"},
	Short:   "Show recent uploads",
	RunE:    runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := sqlite.Open(daemon.Home())
	if err != nil {
		return err
	}
	defer db.Close()

	if historyClear {
		n, err := db.ClearHistory(false)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d uploads from history.\n", n)
		return nil
	}

	uploads, err := db.ListUploads(domain.TaskState(strings.ToUpper(historyState)), historyLimit)
	if err != nil {
		return err
	}
	if len(uploads) == 0 {
		fmt.Println("No uploads yet. Run 'drivenest upload <file>' to get started.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATE\tSIZE\tDESTINATION\tCREATED\tDETAIL")
	for _, u := range uploads {
		detail := u.Reference
		if u.Error != "" {
			detail = u.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			u.Payload.Name,
			u.State,
			domain.HumanSize(u.Payload.Size),
			orDash(u.Destination),
			u.CreatedAt.Format("2006-01-02 15:04"),
			detail,
		)
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
