package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/callerid/internal/utils"
	"github.com/sw33tLie/callerid/pkg/client"
	"github.com/sw33tLie/callerid/pkg/provider"
)

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup <number>",
	Short: "Resolve a phone number against the directory",
	Long: `Resolve a phone number the way a dialer would. By default the local database is
queried directly; with --server the lookup goes through a running callerid server.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serverURL, _ := cmd.Flags().GetString("server")
		projection, _ := cmd.Flags().GetString("projection")
		columns := utils.SplitNonEmpty(projection)

		var (
			cur *provider.Cursor
			err error
		)
		if serverURL != "" {
			c, cerr := client.New(serverURL, viper.GetString("server.username"), viper.GetString("server.password"))
			if cerr != nil {
				return cerr
			}
			cur, err = c.Lookup(cmd.Context(), args[0], columns...)
		} else {
			cur, err = lookupLocal(cmd, args[0], columns)
		}
		if err != nil {
			return err
		}

		if cur.Len() == 0 {
			fmt.Printf("No match for %s\n", args[0])
			return nil
		}
		for i := range cur.Rows {
			for _, col := range cur.Columns {
				fmt.Printf("%s: %v\n", col, cur.Value(i, col))
			}
		}
		return nil
	},
}

func lookupLocal(cmd *cobra.Command, number string, columns []string) (*provider.Cursor, error) {
	db, dir, err := openDirectory(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer db.Close()

	p, err := provider.New(dir, provider.Config{
		Authority: viper.GetString("authority"),
		Region:    viper.GetString("region"),
		Workers:   1,
		Logger:    utils.Log,
	})
	if err != nil {
		return nil, err
	}
	defer p.Close()

	return p.Query(cmd.Context(), provider.PhoneLookupPath+"/"+url.PathEscape(number), columns)
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().String("server", "", "Query a running server instead of the local database (e.g. http://127.0.0.1:7070)")
	lookupCmd.Flags().String("projection", "", "Comma-separated columns to print (default: all)")
}
