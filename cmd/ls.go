package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls <remote-path>",
	Short: "List a remote directory over SFTP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := connectClient(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		session, err := client.NewSFTP()
		if err != nil {
			return err
		}
		defer session.Close()

		entries, err := session.List(args[0])
		if err != nil {
			return err
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "Permissions", "Size"})
		for _, entry := range entries {
			perm, err := session.Permissions(entry)
			if err != nil {
				return err
			}
			table.Append([]string{
				entry.Name,
				fmt.Sprintf("%04o", perm),
				fmt.Sprintf("%d", entry.Info.Size()),
			})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
