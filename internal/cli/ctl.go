package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/richinsley/mailbox"
	"github.com/spf13/cobra"
)

// NewCtlCommand returns mailboxctl, which inspects and removes the named
// resources of a session left behind by a killed peer.
func NewCtlCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "mailboxctl",
		Short:         "Inspect and clean up mailbox IPC resources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("session", "s", "", "session id (empty uses the fixed names)")

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which named resources of a session exist",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	})
	root.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Unlink every named resource of a session",
		Args:  cobra.NoArgs,
		RunE:  runClean,
	})
	return root
}

func sessionNames(cmd *cobra.Command) (mailbox.Names, error) {
	session, _ := cmd.Flags().GetString("session")
	if session == "" {
		return mailbox.DefaultNames(), nil
	}
	return mailbox.SessionNames(session)
}

func runStatus(cmd *cobra.Command, args []string) error {
	names, err := sessionNames(cmd)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tSTATE")
	for _, st := range mailbox.Inspect(names) {
		state := "absent"
		switch {
		case st.Err != nil:
			state = "error: " + st.Err.Error()
		case st.Exists:
			state = "present"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", st.Kind, st.Name, state)
	}
	return w.Flush()
}

func runClean(cmd *cobra.Command, args []string) error {
	names, err := sessionNames(cmd)
	if err != nil {
		return err
	}

	removed, err := mailbox.Remove(names)
	out := cmd.OutOrStdout()
	for _, r := range removed {
		fmt.Fprintf(out, "removed %s %s\n", r.Kind, r.Name)
	}
	if len(removed) == 0 && err == nil {
		fmt.Fprintln(out, "nothing to remove")
	}
	return err
}
