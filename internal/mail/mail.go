// Package mail delivers auction outcome emails. It implements
// auction.Notifier over plain SMTP; when no SMTP host is configured the
// log-only notifier is used instead so settlement never depends on a mail
// backend being present.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
	"strings"

	"github.com/bidcycle/bidcycle/internal/model"
)

// Config holds SMTP settings, typically read from the environment.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// ConfigFromEnv reads SMTP settings from EMAIL_HOST, EMAIL_PORT, EMAIL_USER,
// EMAIL_PASS, and EMAIL_FROM.
func ConfigFromEnv() Config {
	cfg := Config{
		Host:     os.Getenv("EMAIL_HOST"),
		Port:     os.Getenv("EMAIL_PORT"),
		Username: os.Getenv("EMAIL_USER"),
		Password: os.Getenv("EMAIL_PASS"),
		From:     os.Getenv("EMAIL_FROM"),
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.From == "" {
		cfg.From = "no-reply@bidcycle.com"
	}
	return cfg
}

// Configured reports whether the config names an SMTP host to send through.
func (c Config) Configured() bool { return c.Host != "" }

// SMTPNotifier sends one result email per distinct bidder.
type SMTPNotifier struct {
	cfg Config

	// send is swappable in tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPNotifier creates a notifier that sends through cfg's SMTP server.
func NewSMTPNotifier(cfg Config) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
}

// NotifyAuctionResult emails every distinct bidder whether they won or lost.
// Delivery failures for individual recipients are collected: the remaining
// recipients are still attempted.
func (n *SMTPNotifier) NotifyAuctionResult(ctx context.Context, item *model.Item, winningBid *model.Bid, bidders []model.User) error {
	addr := n.cfg.Host + ":" + n.cfg.Port
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	var failed []string
	for _, bidder := range bidders {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sending auction result emails: %w", err)
		}

		isWinner := bidder.ID == winningBid.BidderID
		msg := buildResultMessage(n.cfg.From, bidder.Email, item, winningBid, isWinner)
		if err := n.send(addr, auth, n.cfg.From, []string{bidder.Email}, msg); err != nil {
			slog.Error("sending auction result email", "item", item.ID, "to", bidder.Email, "error", err)
			failed = append(failed, bidder.Email)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("sending auction result emails: %d of %d failed", len(failed), len(bidders))
	}

	slog.Info("auction result emails sent", "item", item.ID, "recipients", len(bidders))
	return nil
}

// buildResultMessage renders a single winner or non-winner email.
func buildResultMessage(from, to string, item *model.Item, winningBid *model.Bid, isWinner bool) []byte {
	var subject, body string
	if isWinner {
		subject = "You Won! - " + item.Title
		body = fmt.Sprintf(
			"Congratulations!\r\n\r\n"+
				"You have won the auction for %q.\r\n"+
				"Winning bid: $%s\r\n\r\n"+
				"Please contact the seller to arrange payment and delivery.\r\n",
			item.Title, winningBid.Amount)
	} else {
		subject = "Auction Ended - " + item.Title
		body = fmt.Sprintf(
			"The auction for %q has ended.\r\n"+
				"Unfortunately, you did not win this time.\r\n"+
				"Winning bid: $%s\r\n\r\n"+
				"Better luck next time!\r\n",
			item.Title, winningBid.Amount)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: BidCycle <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

// LogNotifier records auction outcomes in the log instead of sending mail.
type LogNotifier struct{}

// NotifyAuctionResult logs the outcome for every bidder.
func (LogNotifier) NotifyAuctionResult(_ context.Context, item *model.Item, winningBid *model.Bid, bidders []model.User) error {
	slog.Info("auction result (mail disabled)",
		"item", item.ID, "title", item.Title,
		"winner", winningBid.BidderID, "amount", winningBid.Amount,
		"bidders", len(bidders))
	return nil
}
