package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"libraryhub/internal/app"
	"libraryhub/internal/models"
	"libraryhub/internal/report"
)

func main() {
	once := flag.Bool("once", false, "send the reminder digest now and exit")
	export := flag.Bool("export", false, "write the borrowings report to exports and sheets, then exit")
	flag.Parse()

	if err := run(*once, *export); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(once, export bool) error {
	cfg, logger, closer, err := app.LoadConfig("notifier")
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = hub.Close() }()

	if export {
		return exportReports(ctx, hub)
	}

	if hub.Reminder == nil {
		return errors.New("reminders are not configured: set notify.enabled, notify.bot_token and notify.chat_ids")
	}

	if once {
		return hub.Reminder.SendDigest(ctx)
	}

	logger.Info().Str("reminder_time", cfg.Notify.ReminderTime).Int("chats", len(cfg.Notify.ChatIDs)).Msg("notifier started")
	hub.Reminder.Start(ctx)
	logger.Info().Msg("notifier stopped")
	return nil
}

func exportReports(ctx context.Context, hub *app.App) error {
	views, err := hub.Views.List(ctx, models.BorrowingFilter{})
	if err != nil {
		return fmt.Errorf("list borrowings: %w", err)
	}
	now := time.Now()

	excel := report.NewExcelWriter(hub.Config.Exports.Path, hub.Logger)
	if err := excel.WriteBorrowings(ctx, views, now); err != nil {
		return fmt.Errorf("excel report: %w", err)
	}

	if hub.Report != nil {
		if err := hub.Report.WriteBorrowings(ctx, views, now); err != nil {
			return fmt.Errorf("sheets report: %w", err)
		}
	}

	hub.Logger.Info().Int("rows", len(views)).Msg("reports exported")
	return nil
}
