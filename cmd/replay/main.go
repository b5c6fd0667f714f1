// Copyright (c) 2024, 0x0BSoD. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Replay feeds a stored newsletter email through the parsing pipeline and
// prints the result, without touching Telegram or the database. The parser's
// clock is pinned to the email's send date, so old newsletters resolve to the
// year they were written in.
package main

import (
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/jessevdk/go-flags"

	"github.com/0x0BSoD/alfieriBot/internal/mail"
	"github.com/0x0BSoD/alfieriBot/internal/notifier"
	"github.com/0x0BSoD/alfieriBot/internal/parser"
)

type options struct {
	Render bool `long:"render" description:"Print the channel message body instead of the parsed schedule"`
	Args   struct {
		File string `positional-arg-name:"newsletter.eml" description:"Raw email to replay"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	f, err := os.Open(opts.Args.File)
	if err != nil {
		log.Fatalf("[ERROR] failed to open email: %v", err)
	}
	defer f.Close()

	msg, err := mail.Parse(f)
	if err != nil {
		log.Fatalf("[ERROR] failed to read email: %v", err)
	}

	p := parser.New()
	if !msg.Date.IsZero() {
		sent := msg.Date
		p.Now = func() time.Time { return sent }
	}

	entry, err := p.Parse(msg.Subject, msg.HTMLBody)
	if err != nil {
		log.Fatalf("[ERROR] failed to parse newsletter: %v", err)
	}

	if opts.Render {
		fmt.Println(notifier.New(nil, 0, p.Location).Render(entry, p.Now()))
		return
	}

	fmt.Printf("subject: %s\n", msg.Subject)
	fmt.Printf("from:    %s\n", msg.From)
	fmt.Printf("link:    %s\n", entry.NewsletterLink)

	for _, program := range entry.ProgrammingEntries {
		fmt.Printf("\n%s\n", program.Title)
		for _, date := range program.DateEntries {
			line := date.Date.Format("Mon 02 Jan 2006 15:04")
			if date.AdditionalDetails != "" {
				line += " " + date.AdditionalDetails
			}
			fmt.Printf("  %s\n", line)
		}
	}
}
