package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/sw33tLie/callerid/internal/server"
	"github.com/sw33tLie/callerid/internal/utils"
	"github.com/sw33tLie/callerid/pkg/provider"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve caller-ID lookups over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		db, dir, err := openDirectory(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
		utils.Log.Infof("Loaded %d records", dir.Len())

		p, err := provider.New(dir, provider.Config{
			Authority: viper.GetString("authority"),
			Region:    viper.GetString("region"),
			Workers:   viper.GetInt("server.workers"),
			Logger:    utils.Log,
		})
		if err != nil {
			return err
		}
		defer p.Close()

		lock, err := utils.NewDBLock(viper.GetString("dbpath"))
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		srv := server.New(dir, p, server.Options{
			Username: viper.GetString("server.username"),
			Password: viper.GetString("server.password"),
			Region:   viper.GetString("region"),
			MaxConns: viper.GetInt("server.max_conns"),
			Stats:    db,
			Lock:     lock,
			Registry: reg,
			Logger:   utils.Log,
		})

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Serve(gctx, viper.GetString("server.listen"))
		})
		g.Go(func() error {
			return srv.Refresh(gctx, viper.GetDuration("server.refresh_interval"), hup)
		})
		err = g.Wait()
		if err == nil || errors.Is(err, context.Canceled) {
			utils.Log.Info("Server stopped")
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "127.0.0.1:7070", "HTTP listen address")
	serveCmd.Flags().Int("workers", 0, "Concurrent lookups (0 = number of CPUs)")
	serveCmd.Flags().Int("max-conns", 256, "Maximum simultaneous connections (0 = unlimited)")
	serveCmd.Flags().Duration("refresh-interval", 30*time.Second, "Reload the directory from disk this often (0 = only on SIGHUP)")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("server.workers", serveCmd.Flags().Lookup("workers"))
	viper.BindPFlag("server.max_conns", serveCmd.Flags().Lookup("max-conns"))
	viper.BindPFlag("server.refresh_interval", serveCmd.Flags().Lookup("refresh-interval"))
}
