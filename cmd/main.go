// Copyright (c) 2024, 0x0BSoD. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/0x0BSoD/alfieriBot/internal/config"
	"github.com/0x0BSoD/alfieriBot/internal/notifier"
	"github.com/0x0BSoD/alfieriBot/internal/parser"
	"github.com/0x0BSoD/alfieriBot/internal/reporter"
	"github.com/0x0BSoD/alfieriBot/internal/scheduler"
	"github.com/0x0BSoD/alfieriBot/internal/storage"
	"github.com/0x0BSoD/alfieriBot/internal/webhook"
)

func main() {
	botAPI, err := tgbotapi.NewBotAPI(config.Get().TelegramBotToken)
	if err != nil {
		log.Printf("[ERROR] failed to create botAPI: %v", err)
		return
	}

	db, err := sqlx.Connect("postgres", config.Get().DatabaseDSN)
	if err != nil {
		log.Printf("[ERROR] failed to connect to db: %v", err)
		return
	}
	defer db.Close()

	if err := storage.RunMigrations(db.DB); err != nil {
		log.Printf("[ERROR] failed to run migrations: %v", err)
		return
	}

	newsletterParser := parser.New()

	var (
		newsletterStorage = storage.NewNewsletterStorage(db)
		channelNotifier   = notifier.New(
			botAPI,
			config.Get().TelegramChannelID,
			newsletterParser.Location,
		)
		adminReporter = reporter.New(botAPI, config.Get().TelegramAdminChatID)
		refresher     = scheduler.New(
			newsletterStorage,
			channelNotifier,
			config.Get().RefreshInterval,
		)
	)

	srv := webhook.NewServer(
		webhook.Config{
			ListenAddr:        config.Get().ListenAddr,
			MailgunSigningKey: config.Get().MailgunSigningKey,
			AllowedSenders:    config.Get().AllowedSenders,
		},
		newsletterParser,
		newsletterStorage,
		channelNotifier,
		refresher,
		adminReporter,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func(ctx context.Context) {
		if err := refresher.Start(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Printf("[ERROR] failed to run scheduler: %v", err)
				return
			}

			log.Printf("[INFO] scheduler stopped")
		}
	}(ctx)

	if err := srv.Run(ctx); err != nil {
		log.Printf("[ERROR] failed to run webhook server: %v", err)
	}
}
