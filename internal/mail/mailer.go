package mail

import (
	"fmt"

	"github.com/rs/zerolog/log"
	gomail "github.com/wneessen/go-mail"

	"github.com/Khambazarov/realtime-chat-app/internal/config"
	"github.com/Khambazarov/realtime-chat-app/internal/metrics"
)

// Mailer sends the two transactional emails through the configured SMTP
// relay. Dispatch is asynchronous: a failed send is logged and never fails
// the enclosing request.
type Mailer struct {
	client    *gomail.Client
	from      string
	baseURL   string
	assetBase string
	appName   string
}

func New(cfg config.SMTPConfig, baseURL, assetBase, appName string) (*Mailer, error) {
	m := &Mailer{
		from:      cfg.From,
		baseURL:   baseURL,
		assetBase: assetBase,
		appName:   appName,
	}
	if m.assetBase == "" {
		m.assetBase = baseURL
	}
	if cfg.Host == "" {
		// No relay configured (dev); sends are logged and dropped.
		return m, nil
	}
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	m.client = client
	return m, nil
}

// SendVerification mails the registration verification code. Returns
// immediately; delivery happens in the background.
func (m *Mailer) SendVerification(email, code string) {
	go m.send(email, "Email Verification", func() (string, error) {
		return renderVerification(templateData{
			AppName:   m.appName,
			Title:     "Hello, Word!",
			ImgURL:    m.assetBase + "/robot.png",
			ActionURL: m.baseURL + "/register/verify",
			Code:      code,
		})
	})
}

// SendReset mails the password reset code.
func (m *Mailer) SendReset(email, code string) {
	go m.send(email, "Set new Password", func() (string, error) {
		return renderReset(templateData{
			AppName:   m.appName,
			Title:     "Hello, Word!",
			ImgURL:    m.assetBase + "/robot.png",
			ActionURL: m.baseURL + "/new-pw",
			Code:      code,
		})
	})
}

func (m *Mailer) send(to, subject string, render func() (string, error)) {
	html, err := render()
	if err != nil {
		log.Error().Err(err).Str("to", to).Str("subject", subject).Msg("render mail")
		return
	}
	if m.client == nil {
		log.Warn().Str("to", to).Str("subject", subject).Msg("smtp not configured, dropping mail")
		metrics.MailsTotal.WithLabelValues("dropped").Inc()
		return
	}
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		log.Error().Err(err).Str("from", m.from).Msg("mail from")
		return
	}
	if err := msg.To(to); err != nil {
		log.Error().Err(err).Str("to", to).Msg("mail to")
		return
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, html)

	if err := m.client.DialAndSend(msg); err != nil {
		log.Error().Err(err).Str("to", to).Str("subject", subject).Msg("send mail")
		metrics.MailsTotal.WithLabelValues("failed").Inc()
		return
	}
	metrics.MailsTotal.WithLabelValues("sent").Inc()
	log.Info().Str("to", to).Str("subject", subject).Msg("mail sent")
}
