package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/admstats/internal/testsnapshot"
	"github.com/okian/admstats/pkg/logger"
)

func main() {
	defaults := testsnapshot.DefaultConfig()
	var (
		applicants  = flag.Int("applicants", defaults.Applicants, "Number of applicants")
		maxPrograms = flag.Int("max-programs", defaults.MaxPrograms, "Upper bound of programs per applicant")
		days        = flag.Int("days", defaults.Days, "Spread first-seen times over this many days")
		seed        = flag.Uint64("seed", defaults.Seed, "Random seed")
		output      = flag.String("output", "data/latest.json", "Dump file to write")
		serve       = flag.String("serve", "", "Serve the SOAP upstream stand-in on this address")
		login       = flag.String("login", "", "Basic auth login required by the stand-in")
		password    = flag.String("password", "", "Basic auth password required by the stand-in")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testsnapshot.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := defaults
	cfg.Applicants = *applicants
	cfg.MaxPrograms = *maxPrograms
	cfg.Days = *days
	cfg.Seed = *seed

	opts := testsnapshot.Options{
		Config:   cfg,
		Output:   *output,
		Serve:    *serve,
		Login:    *login,
		Password: *password,
	}
	if err := testsnapshot.Run(ctx, opts); err != nil {
		logger.Get().Error(ctx, "generator failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}
