package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailSender struct {
	sent chan string
	err  error
}

func (f *fakeMailSender) Send(subject, body string) error {
	if f.err != nil {
		f.sent <- "error:" + subject
		return f.err
	}
	f.sent <- subject
	return nil
}

func TestAlertDispatcherDeliversInBackground(t *testing.T) {
	sender := &fakeMailSender{sent: make(chan string, 1)}
	d := StartAlertDispatcher(sender, 10, nil)
	defer d.Close()

	d.Notify("db down", "details")

	select {
	case subject := <-sender.sent:
		assert.Equal(t, "db down", subject)
	case <-time.After(2 * time.Second):
		t.Fatal("alert was not delivered")
	}
}

func TestAlertDispatcherSwallowsTransportFailure(t *testing.T) {
	sender := &fakeMailSender{sent: make(chan string, 2), err: errors.New("smtp down")}
	d := StartAlertDispatcher(sender, 10, nil)
	defer d.Close()

	// Notify не должен ни блокироваться, ни возвращать ошибку
	d.Notify("first", "x")
	d.Notify("second", "y")

	for i := 0; i < 2; i++ {
		select {
		case <-sender.sent:
		case <-time.After(2 * time.Second):
			t.Fatal("worker stopped after a send failure")
		}
	}
}

func TestAlertDispatcherDropsWhenQueueFull(t *testing.T) {
	// sender без читателя канала заблокирует воркер на первом письме
	sender := &fakeMailSender{sent: make(chan string)}
	d := StartAlertDispatcher(sender, 1, nil)

	d.Notify("one", "x")   // уходит воркеру
	d.Notify("two", "y")   // занимает буфер
	d.Notify("three", "z") // очередь полна - молча отбрасывается

	require.NotPanics(t, func() { d.Notify("four", "w") })

	<-sender.sent
	d.Close()
}
