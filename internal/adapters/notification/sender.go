package notification

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	mail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Message は送信するメール 1 通です。
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Sender はメール送信の抽象です。
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig は SMTPSender の接続設定です。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender は go-mail で HTML メールを送信します。サーバーが対応していれば STARTTLS を利用します。
type SMTPSender struct {
	cfg SMTPConfig
	now func() time.Time
}

// NewSMTPSender は SMTPSender を生成します。
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, now: time.Now}
}

// Send は msg を送信します。ctx の期限は接続全体に適用されます。
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := newMessage(s.cfg.From, msg, s.now())
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("notification: smtp client: %w", err)
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("notification: send via smtp %s: %w", addr, err)
	}
	return nil
}

func newMessage(from string, msg Message, now time.Time) (*mail.Msg, error) {
	m := mail.NewMsg(mail.WithEncoding(mail.EncodingB64))
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("notification: from %q: %w", from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("notification: to %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(now)
	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)
	return m, nil
}

// LogSender は送信せずにログ出力だけを行う Sender です。SMTP が未設定の環境で利用します。
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender は LogSender を生成します。
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send は通知内容をログに出力します。
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification (smtp disabled)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(strings.TrimSpace(msg.HTMLBody))))
	return nil
}
