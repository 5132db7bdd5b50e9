package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// ClientFunc лениво создаёт Client после парсинга флагов.
type ClientFunc func(cmd *cobra.Command) (*Client, error)

// OutputFunc лениво создаёт Output после парсинга флагов.
type OutputFunc func(cmd *cobra.Command) *Output

// NewInstancesCmd создаёт группу команд для просмотра реестра планировщиков.
func NewInstancesCmd(clientFn ClientFunc, outputFn OutputFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "Inspect the scheduler registry",
	}

	cmd.AddCommand(newInstancesListCmd(clientFn, outputFn))

	return cmd
}

func newInstancesListCmd(clientFn ClientFunc, outputFn OutputFunc) *cobra.Command {
	var primaryOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduler instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFn(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			out := outputFn(cmd)

			instances, err := client.ListInstances(cmd.Context(), primaryOnly)
			if err != nil {
				return err
			}

			headers := []string{"ID", "HOSTNAME", "SCORE", "PRIMARY", "STARTED_AT", "LAST_CHECKED_IN"}
			rows := make([][]string, len(instances))
			for i, inst := range instances {
				rows[i] = []string{
					inst.ID,
					inst.Hostname,
					strconv.FormatFloat(inst.Score, 'f', 4, 64),
					strconv.FormatBool(inst.Primary),
					formatTime(&inst.StartedAt),
					formatTime(&inst.LastCheckedIn),
				}
			}

			return out.Print(headers, rows, instances)
		},
	}

	cmd.Flags().BoolVar(&primaryOnly, "primary", false, "Show only primary instances")

	return cmd
}
