package service

import (
	"log"

	"webhook_processing/internal/metrics"
)

// MailSender is implemented by alert.Mailer.
type MailSender interface {
	Send(subject, body string) error
}

type AlertJob struct {
	Subject string
	Body    string
}

// AlertDispatcher разводит путь ответа и SMTP: Notify кладет задачу в
// буферизованный канал и сразу возвращается, воркер шлет письма в фоне.
// Ошибки транспорта глотаются и логируются, до вызывающего не доходят.
type AlertDispatcher struct {
	ch     chan AlertJob
	logger *log.Logger
}

func StartAlertDispatcher(sender MailSender, buffer int, logger *log.Logger) *AlertDispatcher {
	if buffer <= 0 {
		buffer = 100
	}
	if logger == nil {
		logger = log.Default()
	}

	d := &AlertDispatcher{
		ch:     make(chan AlertJob, buffer),
		logger: logger,
	}

	go func() {
		for job := range d.ch {
			if err := sender.Send(job.Subject, job.Body); err != nil {
				metrics.IncAlertFailed()
				logger.Println("alert send error:", err)
				continue
			}
			metrics.IncAlertSent()
		}
	}()

	return d
}

func (d *AlertDispatcher) Notify(subject, body string) {
	select {
	case d.ch <- AlertJob{Subject: subject, Body: body}:
	default:
		metrics.IncAlertDropped()
		d.logger.Println("alert queue full, dropping:", subject)
	}
}

// Close stops the worker after the queued alerts drain.
func (d *AlertDispatcher) Close() {
	close(d.ch)
}
