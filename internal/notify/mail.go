package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/UnendingLoop/IconConverter/internal/mwlogger"
	"github.com/UnendingLoop/IconConverter/internal/report"
	"github.com/UnendingLoop/IconConverter/internal/settings"
)

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

// defaultMailTimeout bounds a whole SMTP session when neither settings nor ctx give a deadline.
const defaultMailTimeout = 30 * time.Second

// Mailer sends the batch summary with the report attached.
type Mailer struct {
	cfg    settings.MailSettings
	format string
	send   sendFunc
	now    func() time.Time
}

func NewMailer(cfg settings.MailSettings, reportFormat string) *Mailer {
	format := strings.ToLower(reportFormat)
	if format != report.FormatYAML {
		format = report.FormatJSON
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultMailTimeout
	}
	m := &Mailer{cfg: cfg, format: format, now: time.Now}
	m.send = m.deliver
	return m
}

func (m *Mailer) Notify(ctx context.Context, r *model.Report) error {
	if m.cfg.Host == "" || len(m.cfg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.BuildMessage(r)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(ctx, addr, auth, m.cfg.From, m.cfg.To, msg); err != nil {
		return fmt.Errorf("failed to send report mail via %s: %w", addr, err)
	}

	logger := mwlogger.LoggerFromContext(ctx)
	logger.Info().Strs("to", m.cfg.To).Msg("Report mail sent")
	return nil
}

// deliver runs one SMTP session bounded by ctx and cfg.Timeout, whichever ends first.
func (m *Mailer) deliver(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	conn, err := m.dial(ctx, addr)
	if err != nil {
		return err
	}
	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return err
	}
	// отмена контекста рвёт соединение, зависший сервер не держит воркер
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := m.session(conn, auth, from, to, msg); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return err
	}
	return nil
}

func (m *Mailer) dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	if m.cfg.TLS == settings.MailTLSImplicit {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: m.cfg.Host}}
		return tlsDialer.DialContext(ctx, "tcp", addr)
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

func (m *Mailer) session(conn net.Conn, auth smtp.Auth, from string, to []string, msg []byte) error {
	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if m.cfg.TLS != settings.MailTLSImplicit {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}

	if auth != nil {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("server doesn't support AUTH")
		}
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// BuildMessage renders a multipart/mixed message: plain-text summary plus the report file.
func (m *Mailer) BuildMessage(r *model.Report) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("nil report")
	}

	attachment, ctype, err := report.Marshal(r, m.format)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	// текст письма
	text, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/plain; charset=utf-8"},
		"Content-Transfer-Encoding": {"8bit"},
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintln(text, report.Summary(r))
	if failures := r.Failures(); len(failures) > 0 {
		fmt.Fprintln(text, "\nFailed files:")
		for _, f := range failures {
			fmt.Fprintf(text, "  %s: %s\n", f.Source, f.Error)
		}
	}

	// вложение с отчётом
	filename := strings.TrimPrefix(report.FileName(r, m.format), ".")
	att, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType(ctype, map[string]string{"name": filename})},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": filename})},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64Lines(att, attachment); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	header := []struct{ k, v string }{
		{"From", m.cfg.From},
		{"To", strings.Join(m.cfg.To, ", ")},
		{"Subject", mime.QEncoding.Encode("utf-8", "[iconconv] "+report.Summary(r))},
		{"Date", m.now().Format(time.RFC1123Z)},
		{"MIME-Version", "1.0"},
		{"Content-Type", mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": mw.Boundary()})},
	}
	for _, h := range header {
		fmt.Fprintf(&msg, "%s: %s\r\n", h.k, h.v)
	}
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// writeBase64Lines - base64 с переносом строк по 76 символов (RFC 2045)
func writeBase64Lines(w io.Writer, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := fmt.Fprintf(w, "%s\r\n", encoded[:76]); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err := fmt.Fprintf(w, "%s\r\n", encoded)
	return err
}
