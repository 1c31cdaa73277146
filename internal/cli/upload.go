package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/daemon"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

func init() {
	uploadCmd.Flags().StringVar(&uploadDest, "dest", "", "Destination folder inside the storage root")
	uploadCmd.Flags().IntVarP(&uploadConcurrency, "concurrency", "c", 0, "Parallel transfers (overrides config)")
	rootCmd.AddCommand(uploadCmd)
}

var (
	uploadDest        string
	uploadConcurrency int
)

var uploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Upload files as one batch",
	Long: `Upload files to the configured storage backend as one batch, showing
overall progress. Exits non-zero if any file failed. Ctrl-C cancels the batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	if uploadConcurrency > 0 {
		cfg.Upload.MaxConcurrent = uploadConcurrency
	}

	files, total, err := payloadsFor(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bar := newBatchBar(os.Stderr, total, isatty.IsTerminal(os.Stderr.Fd()))
	d, err := daemon.NewWithConfig(ctx, cfg, bar)
	if err != nil {
		return err
	}
	defer d.Close()

	snap, err := d.Uploads.UploadFiles(ctx, uploadDest, files)
	if err != nil {
		return err
	}

	// Ctrl-C cancels the batch; Wait then returns once every task is terminal.
	go func() {
		<-ctx.Done()
		d.Uploads.CancelBatch(snap.ID)
	}()

	sum, err := d.Uploads.Wait(context.Background(), snap.ID)
	if err != nil {
		return err
	}
	final, err := d.Uploads.Batch(snap.ID)
	if err != nil {
		return err
	}

	printSummary(final, sum)
	if sum.Failed > 0 || sum.Rejected > 0 {
		return fmt.Errorf("%d failed, %d rejected", sum.Failed, sum.Rejected)
	}
	if sum.Cancelled > 0 {
		return fmt.Errorf("%d cancelled", sum.Cancelled)
	}
	return nil
}

// payloadsFor stats each path and builds re-openable payloads.
func payloadsFor(paths []string) ([]domain.Payload, int64, error) {
	var total int64
	files := make([]domain.Payload, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, 0, fmt.Errorf("stat %s: %w", p, err)
		}
		if info.IsDir() {
			return nil, 0, fmt.Errorf("%s is a directory", p)
		}
		files = append(files, domain.Payload{
			Name:   filepath.Base(p),
			Size:   info.Size(),
			Source: domain.FileSource(p),
		})
		total += info.Size()
	}
	return files, total, nil
}

func printSummary(snap domain.BatchSnapshot, sum domain.BatchSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSTATUS\tSIZE\tTIME\tDETAIL")
	for _, t := range snap.Tasks {
		detail := t.Reference
		if t.Error != "" {
			detail = t.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.Payload.Name, t.State, domain.HumanSize(t.Payload.Size),
			t.Duration().Round(time.Millisecond), detail)
	}
	for _, r := range snap.Rejections {
		fmt.Fprintf(w, "%s\tREJECTED\t%s\t-\t%s\n", r.DisplayName, domain.HumanSize(r.Size), r.Reason)
	}
	w.Flush()

	fmt.Printf("\n%d succeeded, %d failed, %d cancelled, %d rejected (%s stored)\n",
		sum.Succeeded, sum.Failed, sum.Cancelled, sum.Rejected, domain.HumanSize(sum.Bytes))
}
