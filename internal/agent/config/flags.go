package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/webtrail/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port the intake API listens on
//	-b string   base URL of the collection backend
//	-d string   path of the local database file
//	-i int      sweep interval in seconds
//	-t int      delivery timeout in seconds
//	-r int      unsynced-entry retention in hours
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-b", "-d", "-i", "-t", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ListenAddr, "a", cfg.ListenAddr, "address and port for the intake API")
	fs.StringVar(&cfg.BackendURL, "b", cfg.BackendURL, "collection backend base URL")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	sweepInterval := fs.Int("i", int(cfg.SweepInterval.Seconds()), "sweep interval (in seconds)")
	deliveryTimeout := fs.Int("t", int(cfg.DeliveryTimeout.Seconds()), "delivery timeout (in seconds)")
	maxQueueAge := fs.Int("r", int(cfg.MaxQueueAge.Hours()), "unsynced retention (in hours)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SweepInterval = time.Duration(*sweepInterval) * time.Second
	cfg.DeliveryTimeout = time.Duration(*deliveryTimeout) * time.Second
	cfg.MaxQueueAge = time.Duration(*maxQueueAge) * time.Hour
}
