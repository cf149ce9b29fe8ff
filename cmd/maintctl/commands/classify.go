package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func (c *CLI) newClassifyCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "classify <image>",
		Short: "Classify a vehicle photo and register the vehicle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			vehicle, err := a.Ingestor.IngestImage(cmd.Context(), owner, filepath.Base(args[0]), image)
			if err != nil {
				return err
			}
			return printJSON(cmd, vehicle)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "Owner id of the new vehicle")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
