package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/donorpilot/donorpilot/pkg/actions"
	"github.com/donorpilot/donorpilot/pkg/cmd"
	"github.com/donorpilot/donorpilot/pkg/engine"
	"github.com/donorpilot/donorpilot/pkg/log"
	"github.com/donorpilot/donorpilot/pkg/notify"
	"github.com/donorpilot/donorpilot/pkg/scheduler"
	"github.com/donorpilot/donorpilot/pkg/triggers"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "donorpilot-scheduler",
		EnableShellCompletion: true,
		Usage:                 "Run the periodic trigger scan and resume due executions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "dedup-store",
				Usage:   "Dedup store for condition triggers (redis:// URL or empty for subject tags)",
				Value:   "",
				Sources: cli.EnvVars("DEDUP_STORE"),
			},
			&cli.StringFlag{
				Name:    "scan-schedule",
				Usage:   "Cron schedule for the condition trigger scan",
				Value:   scheduler.DefaultScanSchedule,
				Sources: cli.EnvVars("SCAN_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "resumption-schedule",
				Usage:   "Cron schedule for resuming due waiting executions",
				Value:   scheduler.DefaultResumptionSchedule,
				Sources: cli.EnvVars("RESUMPTION_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("donorpilot-scheduler")

			logger.InfoContext(ctx, "Initializing DonorPilot Scheduler")

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), "donorpilot-scheduler", logger)
			if err != nil {
				return err
			}

			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			guard, err := cmd.NewDedupGuard(ctx, command.String("dedup-store"), persistence.Subjects())
			if err != nil {
				return err
			}

			scanner := triggers.NewScanner(
				persistence,
				guard,
				triggers.NewBusLauncher(eventBus),
				logger,
			)

			// Resumed executions run in this process, not on a worker: the
			// wait already happened and the claim makes this the only writer.
			sink := notify.NewBusSink(eventBus)
			executor := actions.NewExecutor(persistence.Subjects(), sink, logger)
			resumer := engine.New(persistence, executor, logger, engine.WithPublisher(eventBus))
			resumption := scheduler.NewResumption(persistence, resumer, logger)

			sched := scheduler.New(logger)

			err = sched.Add(ctx, "trigger-scan", command.String("scan-schedule"), scanner)
			if err != nil {
				return err
			}

			err = sched.Add(ctx, "execution-resumption", command.String("resumption-schedule"), resumption)
			if err != nil {
				return err
			}

			sched.Start()

			logger.InfoContext(ctx, "Scheduler started successfully")

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			<-sigChan
			logger.InfoContext(ctx, "Shutting down scheduler...")

			sched.Stop()

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
