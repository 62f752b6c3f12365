package mailer

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bunny/boardhole/config"
	tpl "github.com/bunny/boardhole/pkg/mailer/templates"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:        "board-hole",
		VerifyEmailURL: "http://localhost:8080/verify-email",
		ChangeEmailURL: "http://localhost:8080/verify-email/change",
	}
}

func TestLocalDispatcherDeliversExactlyOne(t *testing.T) {
	sender := NewCaptureSender()
	d := NewLocalDispatcher(sender, quietLogger())

	d.Dispatch(context.Background(), EmailJob{
		To:       "bob@boardhole.test",
		Template: tpl.SignupVerification,
		Data:     tpl.NewSignupVerificationData(testConfig(), "Bob", "bob", "bob@boardhole.test", "T1"),
	})
	d.Close()

	msgs := sender.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "bob@boardhole.test", msgs[0].To)
	assert.Equal(t, "이메일 인증을 완료해주세요", msgs[0].Subject)
	assert.Contains(t, msgs[0].Text, "T1")
	assert.Contains(t, msgs[0].Text, "verify-email")
	assert.Contains(t, msgs[0].HTML, "T1")
}

func TestLocalDispatcherDoesNotBlock(t *testing.T) {
	sender := NewCaptureSender()
	d := NewLocalDispatcher(sender, quietLogger())
	defer d.Close()

	start := time.Now()
	for i := 0; i < 200; i++ {
		d.Dispatch(context.Background(), EmailJob{
			To:       "bob@boardhole.test",
			Template: tpl.Welcome,
			Data:     tpl.NewWelcomeData(testConfig(), "Bob", "bob", "bob@boardhole.test"),
		})
	}
	// dispatching must never wait on rendering or delivery; overflow drops
	assert.Less(t, time.Since(start), time.Second)
}

func TestLocalDispatcherSkipsUnrenderableJob(t *testing.T) {
	sender := NewCaptureSender()
	d := NewLocalDispatcher(sender, quietLogger())

	d.Dispatch(context.Background(), EmailJob{To: "bob@boardhole.test", Template: "no_such_template"})
	d.Dispatch(context.Background(), EmailJob{
		To:       "bob@boardhole.test",
		Template: tpl.Welcome,
		Data:     tpl.NewWelcomeData(testConfig(), "Bob", "bob", "bob@boardhole.test"),
	})
	d.Close()

	// the bad job is dropped, the good one still goes out
	msgs := sender.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Board-Hole에 오신 것을 환영합니다!", msgs[0].Subject)
}

func TestQueueDispatcherDropsOnPublishError(t *testing.T) {
	d := NewQueueDispatcher(failingPublisher{}, quietLogger())
	// must not panic or surface the error
	d.Dispatch(context.Background(), EmailJob{To: "bob@boardhole.test", Template: tpl.Welcome})
}

func TestQueueDispatcherNilPublisher(t *testing.T) {
	d := NewQueueDispatcher(nil, quietLogger())
	d.Dispatch(context.Background(), EmailJob{To: "bob@boardhole.test", Template: tpl.Welcome})
}

type failingPublisher struct{}

func (failingPublisher) PublishJSON(context.Context, any) error {
	return assert.AnError
}

func TestCaptureSenderListAndClear(t *testing.T) {
	s := NewCaptureSender()
	require.NoError(t, s.Send(context.Background(), "a@b.c", "s", "t", "h"))
	require.Len(t, s.Messages(), 1)
	s.Clear()
	assert.Empty(t, s.Messages())
}
