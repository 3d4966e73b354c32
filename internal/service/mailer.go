package service

import (
	"context"
	"fmt"
	"net/smtp"
	"sync"
	"time"

	"github.com/SergeiKhy/shortly/internal/config"
	"go.uber.org/zap"
)

// Константы worker pool почты
const (
	defaultMailWorkers = 3    // Количество воркеров
	defaultMailBuffer  = 1000 // Размер буфера канала
	maxMailRetries     = 3    // Максимальное количество попыток отправки
)

// Email одно письмо
type Email struct {
	To      string
	Subject string
	Body    string
}

// Sender транспорт доставки писем
type Sender interface {
	Send(ctx context.Context, msg *Email) error
}

// MailDispatcher асинхронная fire-and-forget отправка почты.
// Ошибки доставки никогда не доходят до вызывающей операции:
// письмо либо уйдёт с ретраями, либо будет потеряно с записью в лог.
type MailDispatcher interface {
	Start()
	Stop()
	Enqueue(ctx context.Context, msg *Email) error
}

// mailDispatcher worker pool на буферизованном канале
type mailDispatcher struct {
	sender    Sender
	logger    *zap.Logger
	mailQueue chan *Email
	workers   int
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewMailDispatcher(sender Sender, logger *zap.Logger) MailDispatcher {
	return &mailDispatcher{
		sender:    sender,
		logger:    logger,
		mailQueue: make(chan *Email, defaultMailBuffer),
		workers:   defaultMailWorkers,
	}
}

// Start запускает воркеров отправки почты
func (d *mailDispatcher) Start() {
	d.ctx, d.cancel = context.WithCancel(context.Background())

	d.logger.Info("Запуск воркеров отправки почты", zap.Int("count", d.workers))

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

// Stop корректно останавливает worker pool
func (d *mailDispatcher) Stop() {
	d.logger.Info("Остановка отправки почты...")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("Отправка почты остановлена")
}

func (d *mailDispatcher) worker(id int) {
	defer d.wg.Done()

	d.logger.Debug("Почтовый воркер запущен", zap.Int("id", id))

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Debug("Почтовый воркер остановлен", zap.Int("id", id))
			return

		case msg, ok := <-d.mailQueue:
			if !ok {
				return
			}
			d.deliver(msg)
		}
	}
}

// deliver отправляет одно письмо с retry логикой
func (d *mailDispatcher) deliver(msg *Email) {
	ctx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
	defer cancel()

	var err error
	for i := 0; i < maxMailRetries; i++ {
		if err = d.sender.Send(ctx, msg); err == nil {
			return
		}
		if i < maxMailRetries-1 {
			d.logger.Debug("Повторная попытка отправки письма",
				zap.String("to", msg.To),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}

	d.logger.Error("Не удалось отправить письмо после всех попыток",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Error(err),
	)
}

// Enqueue ставит письмо в очередь без блокировки запроса
func (d *mailDispatcher) Enqueue(ctx context.Context, msg *Email) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case d.mailQueue <- msg:
		return nil
	default:
		// Очередь заполнена: письмо теряем, запрос не блокируем
		d.logger.Warn("Очередь почты заполнена, письмо потеряно",
			zap.String("to", msg.To),
		)
		return nil
	}
}

// smtpSender доставка через SMTP
type smtpSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) Sender {
	return &smtpSender{cfg: cfg}
}

func (s *smtpSender) Send(_ context.Context, msg *Email) error {
	addr := s.cfg.Host + ":" + s.cfg.Port

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
	}

	body := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		s.cfg.From, msg.To, msg.Subject, msg.Body,
	)

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
