package cmds

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func NewExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the persisted conversation and settings to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := buildStore()
			if err != nil {
				return err
			}

			data, err := store.Snapshot().Marshal()
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], data, 0644); err != nil {
				return err
			}

			fmt.Printf("exported %d messages to %s\n", store.Len(), args[0])
			return nil
		},
	}
}
