package events

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/authcore/internal/observability/logger"
)

// SMTPConfig configura el sink SMTP.
type SMTPConfig struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool

	// ResetURL es la página del frontend que consume el token de reset;
	// el token viaja como query param. Vacío = el mail lleva el token crudo.
	ResetURL string
}

// SMTPNotifier entrega por email los eventos que tienen destinatario
// (registro y reset de password). El resto se ignora en silencio.
type SMTPNotifier struct {
	cfg SMTPConfig
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	if cfg.TLSMode == "" {
		cfg.TLSMode = "auto"
	}
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) Publish(ctx context.Context, ev Event) error {
	switch ev.Type {
	case TypeUserRegistered:
		return n.send(ev.Email, "Welcome",
			fmt.Sprintf("<p>Your account %s was created.</p>", ev.Email),
			fmt.Sprintf("Your account %s was created.", ev.Email))
	case TypePasswordResetRequested:
		token := ev.Data["reset_token"]
		if token == "" {
			return fmt.Errorf("reset event without reset_token")
		}
		if link := resetLink(n.cfg.ResetURL, token); link != "" {
			return n.send(ev.Email, "Password reset",
				fmt.Sprintf(`<p>Reset your password: <a href="%s">%s</a></p>`, link, link),
				fmt.Sprintf("Reset your password: %s", link))
		}
		return n.send(ev.Email, "Password reset",
			fmt.Sprintf("<p>Your password reset code: <code>%s</code></p>", token),
			fmt.Sprintf("Your password reset code: %s", token))
	default:
		return nil
	}
}

// resetLink arma la URL del frontend con el token como query param.
// Base vacía retorna "" y el caller degrada a mandar el token solo.
func resetLink(base, token string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

func (n *SMTPNotifier) send(to, subject, htmlBody, textBody string) error {
	log := logger.L().With(
		logger.Component("smtp_notifier"),
		logger.String("host", n.cfg.Host),
		logger.Int("port", n.cfg.Port),
	)

	m := mail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.User, n.cfg.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         n.cfg.Host,
		InsecureSkipVerify: n.cfg.InsecureSkipVerify, // solo dev
	}
	switch n.cfg.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: n.cfg.InsecureSkipVerify}
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}

	if err := d.DialAndSend(m); err != nil {
		log.Error("smtp send failed", logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
