// Command movieflix-etl loads the MovieFlix data lake into the warehouse,
// rebuilds the data mart views and prints the analytics reports.
//
// Every setting comes from the environment (see internal/config); the few
// flags below override their environment counterparts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/config"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "github.com/GabrielTheophilo/movieflix-cicd/internal/storage/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] etl failed: %+v\n", err)
		os.Exit(1)
	}
}

// newRootCmd builds the single movieflix-etl command. Progress logs and
// analytics tables go to out.
func newRootCmd(out io.Writer) *cobra.Command {
	v := config.NewViper()
	var validateOnly bool

	cmd := &cobra.Command{
		Use:   "movieflix-etl",
		Short: "Load the MovieFlix data lake into the warehouse and rebuild the data mart",
		Long: `movieflix-etl waits for the warehouse, empties the movies, users and ratings
tables, loads filmes.csv, users.csv and ratings.csv from the data lake,
redefines the data mart views and prints the analytics reports.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v, out, validateOnly)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&validateOnly, "validate", false, "validate the configuration and exit")
	flags.String("data-lake-dir", "", "data lake directory (overrides DATA_LAKE_DIR)")
	flags.String("store-driver", "", "warehouse backend: postgres, sqlite, mysql, mssql (overrides STORE_DRIVER)")
	flags.String("log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	flags.Bool("skip-analytics", false, "do not run the analytics reports")

	// BindPFlag only fails for a nil flag.
	_ = v.BindPFlag("data_lake_dir", flags.Lookup("data-lake-dir"))
	_ = v.BindPFlag("store.driver", flags.Lookup("store-driver"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		if skip, _ := cmd.Flags().GetBool("skip-analytics"); skip {
			v.Set("run_analytics", false)
		}
	}

	return cmd
}
