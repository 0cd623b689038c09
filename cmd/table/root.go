package table

import (
	"github.com/spf13/cobra"

	"github.com/ValentinKolb/rsnDB/cmd/util"
)

var (
	session *util.Session

	// TableCommands represents the table command group
	TableCommands = &cobra.Command{
		Use:                "table",
		Short:              "Create tables and read or change their rows",
		PersistentPreRunE:  openSession,
		PersistentPostRunE: closeSession,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands
	TableCommands.AddCommand(createCmd)
	TableCommands.AddCommand(dropCmd)
	TableCommands.AddCommand(listCmd)
	TableCommands.AddCommand(describeCmd)
	TableCommands.AddCommand(insertCmd)
	TableCommands.AddCommand(readCmd)
	TableCommands.AddCommand(updateCmd)
	TableCommands.AddCommand(removeCmd)
	TableCommands.AddCommand(emptyCmd)
	TableCommands.AddCommand(countCmd)

	// Row selection flags
	for _, cmd := range []*cobra.Command{readCmd, updateCmd, removeCmd, emptyCmd, countCmd} {
		cmd.Flags().String("where", "", util.WrapString(`Condition "field op value", e.g. "age >= 30". Operators: = != > < >= <= contains`))
	}
	readCmd.Flags().String("order-by", "", util.WrapString("Field to sort by"))
	readCmd.Flags().Bool("desc", false, util.WrapString("Sort in descending order"))
	readCmd.Flags().Int("limit", 0, util.WrapString("Maximum number of rows (0 = all)"))

	createCmd.Flags().String("schema", "", util.WrapString("YAML file with the table schema (keys: mode, fields[name, type, required, unique])"))
	createCmd.Flags().StringArray("field", nil, util.WrapString("Field definition name:type[:required][:unique], may be repeated"))
	createCmd.Flags().String("mode", "", util.WrapString("Table mode (strict or flexible), overrides the schema file"))
}

// openSession loads the store for the table commands
func openSession(cmd *cobra.Command, _ []string) (err error) {
	session, err = util.OpenSession(cmd)
	return err
}

// closeSession saves the store if a command changed it
func closeSession(*cobra.Command, []string) error {
	return session.Close()
}
