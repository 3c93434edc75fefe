// cmd/runner/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/prospectpipe/outreach-backend/internal/app"
	"github.com/prospectpipe/outreach-backend/internal/config"
	"github.com/prospectpipe/outreach-backend/internal/db"
	"github.com/prospectpipe/outreach-backend/internal/logging"
	"github.com/prospectpipe/outreach-backend/internal/queue"
)

func build() (*app.App, *config.Config, func(), error) {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.Env)

	conn, err := db.Open(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	application, err := app.Build(cfg, conn, log)
	if err != nil {
		conn.Close()
		return nil, nil, nil, err
	}
	cleanup := func() {
		conn.Close()
		log.Sync()
	}
	return application, cfg, cleanup, nil
}

func engageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "engage",
		Short: "Run one engagement batch over every active campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, cleanup, err := build()
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := application.Runner.Run(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("executed=%v skipped=%v alerts=%d errors=%d\n",
				summary.Executed, summary.Skipped, len(summary.Alerts), len(summary.Errors))
			return nil
		},
	}
}

func detectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Run one reply/event detection pass without sending anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, _, cleanup, err := build()
			if err != nil {
				return err
			}
			defer cleanup()

			campaigns, err := application.Campaigns.ListActive()
			if err != nil {
				return err
			}
			for _, campaign := range campaigns {
				res := application.Detector.Scan(context.Background(), campaign)
				fmt.Printf("campaign %d: replies=%d accepts=%d escalations=%d errors=%d\n",
					campaign.ID, res.RepliesDetected, res.AcceptsDetected,
					len(res.Escalations), len(res.Errors))
				for _, alert := range res.Alerts {
					fmt.Println("  alert:", alert)
				}
			}
			return nil
		},
	}
}

func dialCommand() *cobra.Command {
	var campaignID int
	cmd := &cobra.Command{
		Use:   "dial",
		Short: "Enqueue call attempts for a campaign's voice-eligible prospects",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, cfg, cleanup, err := build()
			if err != nil {
				return err
			}
			defer cleanup()

			dispatcher, err := queue.NewCallDispatcher(cfg.AMQPURL)
			if err != nil {
				return err
			}
			defer dispatcher.Close()

			prospects, err := application.Prospects.ListEligible(campaignID,
				[]string{"converted", "not_interested"})
			if err != nil {
				return err
			}
			enqueued := 0
			for _, p := range prospects {
				if p.Phone == "" {
					continue
				}
				job := queue.CallJob{ProspectID: p.ID, CampaignID: campaignID, Attempt: 1}
				if err := dispatcher.Dispatch(job); err != nil {
					fmt.Fprintln(os.Stderr, "failed to enqueue prospect", p.ID, ":", err)
					continue
				}
				enqueued++
			}
			fmt.Printf("enqueued %d call attempts for campaign %d\n", enqueued, campaignID)
			return nil
		},
	}
	cmd.Flags().IntVar(&campaignID, "campaign", 0, "campaign ID to dial")
	cmd.MarkFlagRequired("campaign")
	return cmd
}

func main() {
	rootCmd := cobra.Command{
		Use: "runner",
	}
	rootCmd.AddCommand(
		engageCommand(),
		detectCommand(),
		dialCommand(),
	)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
