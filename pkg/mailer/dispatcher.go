package mailer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bunny/boardhole/pkg/mailer/templates"
)

// Dispatcher hands off an email job for asynchronous delivery. Dispatch must
// not block the caller on delivery and must not fail the originating
// operation: implementations log failures and drop the job.
type Dispatcher interface {
	Dispatch(ctx context.Context, job EmailJob)
}

// Publisher is the queue half of the RabbitMQ publisher in pkg/helpers.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueDispatcher publishes jobs to a durable queue consumed by
// cmd/email_worker. Publish errors are logged and the job is dropped.
type QueueDispatcher struct {
	Pub    Publisher
	Logger *logrus.Logger
}

func NewQueueDispatcher(pub Publisher, logger *logrus.Logger) *QueueDispatcher {
	return &QueueDispatcher{Pub: pub, Logger: logger}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, job EmailJob) {
	if d.Pub == nil {
		if d.Logger != nil {
			d.Logger.WithFields(logrus.Fields{
				"to": job.To, "template": job.Template,
			}).Warn("no email queue configured, dropping job")
		}
		return
	}
	if err := d.Pub.PublishJSON(ctx, job); err != nil && d.Logger != nil {
		d.Logger.WithError(err).WithFields(logrus.Fields{
			"to": job.To, "template": job.Template,
		}).Warn("failed to enqueue email job")
	}
}

// LocalDispatcher renders and sends jobs on a background goroutine through a
// buffered channel. It backs queue-less deployments and tests. When the
// buffer is full the job is dropped with a log line, matching the
// fire-and-forget contract of the queue path.
type LocalDispatcher struct {
	sender Sender
	logger *logrus.Logger
	jobs   chan EmailJob
	done   chan struct{}
}

func NewLocalDispatcher(sender Sender, logger *logrus.Logger) *LocalDispatcher {
	d := &LocalDispatcher{
		sender: sender,
		logger: logger,
		jobs:   make(chan EmailJob, 64),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *LocalDispatcher) Dispatch(_ context.Context, job EmailJob) {
	select {
	case d.jobs <- job:
	default:
		if d.logger != nil {
			d.logger.WithFields(logrus.Fields{
				"to": job.To, "template": job.Template,
			}).Warn("email queue full, dropping job")
		}
	}
}

func (d *LocalDispatcher) run() {
	defer close(d.done)
	for job := range d.jobs {
		subject, text, html, err := templates.Render(job.Template, job.Data)
		if err != nil {
			if d.logger != nil {
				d.logger.WithError(err).WithField("template", job.Template).Warn("email render failed")
			}
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := d.sender.Send(ctx, job.To, subject, text, html); err != nil && d.logger != nil {
			d.logger.WithError(err).WithField("to", job.To).Warn("email send failed")
		}
		cancel()
	}
}

// Close stops the worker after draining queued jobs.
func (d *LocalDispatcher) Close() {
	close(d.jobs)
	<-d.done
}

var (
	_ Dispatcher = (*QueueDispatcher)(nil)
	_ Dispatcher = (*LocalDispatcher)(nil)
)
