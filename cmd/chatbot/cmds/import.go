package cmds

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kendrekaran/AI-Chatbots/pkg/conversation"
)

func NewImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the persisted conversation and settings from an exported file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			snapshot, err := conversation.ParseSnapshot(data)
			if err != nil {
				return err
			}

			store, err := buildStore()
			if err != nil {
				return err
			}
			if err := store.Restore(snapshot); err != nil {
				return err
			}

			fmt.Printf("imported %d messages from %s\n", len(snapshot.Messages), args[0])
			return nil
		},
		Args: cobra.ExactArgs(1),
	}
}
