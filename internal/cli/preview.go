package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
	"github.com/Sarbeswarpanda04/Drive-Nest/internal/preview"
)

func init() {
	previewCmd.Flags().StringVarP(&previewThumbOut, "thumbnail", "o", "", "Write the image thumbnail (JPEG) to this path")
	rootCmd.AddCommand(previewCmd)
}

var previewThumbOut string

var previewCmd = &cobra.Command{
	Use:   "preview FILE",
	Short: "Classify a file and show how it would be previewed",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func runPreview(cmd *cobra.Command, args []string) error {
	path := args[0]
	v, err := preview.NewRouter().Preview(context.Background(), filepath.Base(path), domain.FileSource(path))
	if err != nil {
		return err
	}

	fmt.Printf("Name:     %s\n", v.Name)
	fmt.Printf("Type:     %s (%s)\n", v.Tag, v.MIME)
	fmt.Printf("Preview:  %s\n", v.Kind)
	switch v.Kind {
	case "thumbnail":
		fmt.Printf("Original: %dx%d\n", v.Width, v.Height)
		if previewThumbOut != "" {
			if err := os.WriteFile(previewThumbOut, v.Thumbnail, 0644); err != nil {
				return err
			}
			fmt.Printf("Wrote thumbnail to %s (%s)\n", previewThumbOut, domain.HumanSize(int64(len(v.Thumbnail))))
		}
	case "text":
		fmt.Println()
		fmt.Println(v.Text)
		if v.Truncated {
			fmt.Println("...")
		}
	}
	return nil
}
