package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
)

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailChannel sends a plain-text welcome email over SMTP.
type EmailChannel struct {
	cfg      SMTPConfig
	sendMail sendMailFunc
}

var _ Channel = (*EmailChannel)(nil)

func NewEmailChannel(cfg SMTPConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg, sendMail: smtp.SendMail}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(ctx context.Context, r Recipient) error {
	if r.Email == "" {
		return errors.New("email: recipient has no address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	from := c.cfg.From
	if from == "" {
		from = c.cfg.Username
	}

	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}

	addr := c.cfg.Host + ":" + c.cfg.Port
	if err := c.sendMail(addr, auth, from, []string{r.Email}, c.welcomeMessage(from, r)); err != nil {
		return fmt.Errorf("email: sending welcome to %s: %w", r.Email, err)
	}
	return nil
}

func (c *EmailChannel) welcomeMessage(from string, r Recipient) []byte {
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nThanks for signing up. Your account is ready and you can start writing articles.\r\n\r\nBest regards,\r\n%s\r\n",
		r.Name, c.cfg.FromName)

	return []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: Welcome, %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/plain; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		c.cfg.FromName, from, r.Email, r.Name, body))
}
