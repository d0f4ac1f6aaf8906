package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/callerid/internal/utils"
	"github.com/sw33tLie/callerid/pkg/directory"
	"github.com/sw33tLie/callerid/pkg/phone"
)

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <first name> <last name> <number>",
	Short: "Add a record, replacing any record with the same name",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kindLabel, _ := cmd.Flags().GetString("type")
		number, err := phone.New(args[2], phone.ParseKind(kindLabel), viper.GetString("region"))
		if err != nil {
			return err
		}
		rec, err := directory.NewRecord(args[0], args[1], number)
		if err != nil {
			return err
		}

		return withWriteLock(func() error {
			db, dir, err := openDirectory(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			_, replaced := dir.Get(rec.Key())
			if err := dir.Upsert(cmd.Context(), rec); err != nil {
				return err
			}
			action := "Added"
			if replaced {
				action = "Replaced"
			}
			fmt.Printf("✅ %s %s (%s)\n", action, rec.FullName(), rec.PrettyPrint())
			return nil
		})
	},
}

// rmCmd represents the rm command
var rmCmd = &cobra.Command{
	Use:   "rm <first name> <last name>",
	Short: "Remove a record by name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := directory.Key{FirstName: strings.TrimSpace(args[0]), LastName: strings.TrimSpace(args[1])}

		return withWriteLock(func() error {
			db, dir, err := openDirectory(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if _, ok := dir.Get(key); !ok {
				utils.Log.Warnf("No record for %s", key)
				return nil
			}
			if err := dir.Delete(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Printf("✅ Removed %s\n", key)
			return nil
		})
	},
}

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("refusing to clear the directory without --yes")
		}

		return withWriteLock(func() error {
			db, dir, err := openDirectory(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			n := dir.Len()
			if err := dir.DeleteAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("✅ Removed %d records\n", n)
			return nil
		})
	},
}

func init() {
	dbCmd.AddCommand(addCmd)
	dbCmd.AddCommand(rmCmd)
	dbCmd.AddCommand(clearCmd)

	var kinds []string
	for _, k := range phone.Kinds() {
		kinds = append(kinds, k.Label())
	}
	addCmd.Flags().StringP("type", "t", phone.KindHome.Label(), "Number type: "+strings.Join(kinds, ", "))
	clearCmd.Flags().Bool("yes", false, "Confirm removing every record")
}
