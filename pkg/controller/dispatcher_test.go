package controller

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport records commands and optionally fails Send.
type recordingTransport struct {
	mu      sync.Mutex
	sent    []Command
	sendErr error
}

func (r *recordingTransport) Send(cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return r.sendErr
	}
	r.sent = append(r.sent, cmd)
	return nil
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestDispatcherCorrelatesByKind(t *testing.T) {
	tr := &recordingTransport{}
	d := NewDispatcher(tr)

	first, err := d.Issue(Command{Op: OpAddAid, AID: []byte{0xA0}})
	require.NoError(t, err)
	second, err := d.Issue(Command{Op: OpAddAid, AID: []byte{0xA1}})
	require.NoError(t, err)
	update, err := d.Issue(Command{Op: OpUpdateNow})
	require.NoError(t, err)

	assert.Equal(t, 3, d.Outstanding())
	assert.Equal(t, 3, tr.count())

	// Completions of a different kind do not resolve AID commands.
	assert.True(t, d.Deliver(Event{Op: OpUpdateNow, Status: StatusOK}))
	status, err := update.Wait()
	assert.NoError(t, err)
	assert.Equal(t, StatusOK, status)

	select {
	case <-first.Done():
		t.Fatal("AID command resolved by UPDATE_NOW completion")
	default:
	}

	// FIFO within a kind.
	assert.True(t, d.Deliver(Event{Op: OpAddAid, Status: StatusRejected}))
	_, err = first.Wait()
	assert.ErrorIs(t, err, ErrCommandFailed)

	assert.True(t, d.Deliver(Event{Op: OpAddAid, Status: StatusOK}))
	_, err = second.Wait()
	assert.NoError(t, err)

	assert.False(t, d.Deliver(Event{Op: OpAddAid, Status: StatusOK}), "unsolicited completion")
	assert.Equal(t, 0, d.Outstanding())
}

func TestDispatcherNotSupported(t *testing.T) {
	d := NewDispatcher(&recordingTransport{})

	p, err := d.Issue(Command{Op: OpAddSystemCode, SystemCode: 0xFEFE})
	require.NoError(t, err)
	d.Deliver(Event{Op: OpAddSystemCode, Status: StatusNotSupported})

	status, err := p.Wait()
	assert.Equal(t, StatusNotSupported, status)
	assert.ErrorIs(t, err, ErrNotSupported)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, OpAddSystemCode, se.Op)
}

func TestDispatcherSendError(t *testing.T) {
	boom := errors.New("transport down")
	d := NewDispatcher(&recordingTransport{sendErr: boom})

	var observed error
	d.OnComplete(func(cmd Command, status Status, err error) { observed = err })

	p, err := d.Issue(Command{Op: OpUpdateNow})
	assert.Nil(t, p)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, observed, boom)
	assert.Equal(t, 0, d.Outstanding())
}

func TestDispatcherNoTransport(t *testing.T) {
	d := NewDispatcher(nil)
	_, err := d.Issue(Command{Op: OpUpdateNow})
	assert.ErrorIs(t, err, ErrNoTransport)
}

func TestDispatcherWaitTimeout(t *testing.T) {
	d := NewDispatcher(&recordingTransport{})

	p, err := d.Issue(Command{Op: OpModeSet, Dest: 0x81, Enable: true})
	require.NoError(t, err)

	start := time.Now()
	_, err = p.WaitTimeout(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	// The late completion is consumed without resolving anything.
	assert.Equal(t, 0, d.Outstanding())
	assert.False(t, d.Deliver(Event{Op: OpModeSet, Status: StatusOK}))
	assert.False(t, d.Deliver(Event{Op: OpModeSet, Status: StatusOK}), "unsolicited completion")
}

func TestDispatcherLateCompletionAfterReissue(t *testing.T) {
	d := NewDispatcher(&recordingTransport{})

	first, err := d.Issue(Command{Op: OpModeSet, Dest: 0x81, Enable: true})
	require.NoError(t, err)
	_, err = first.WaitTimeout(5 * time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	second, err := d.Issue(Command{Op: OpModeSet, Dest: 0x82, Enable: true})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Outstanding())

	// The late completion belongs to the timed-out 0x81 command.
	assert.False(t, d.Deliver(Event{Op: OpModeSet, Status: StatusFailed}))
	select {
	case <-second.Done():
		t.Fatal("late completion resolved the reissued command")
	default:
	}

	assert.True(t, d.Deliver(Event{Op: OpModeSet, Status: StatusOK}))
	status, err := second.Wait()
	assert.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.EqualValues(t, 0x82, second.Command().Dest)
}

func TestDispatcherTimeoutBehindOutstanding(t *testing.T) {
	d := NewDispatcher(&recordingTransport{})

	first, err := d.Issue(Command{Op: OpModeSet, Dest: 0x81})
	require.NoError(t, err)
	second, err := d.Issue(Command{Op: OpModeSet, Dest: 0x82})
	require.NoError(t, err)
	_, err = second.WaitTimeout(5 * time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	// Completions still arrive in issue order.
	assert.True(t, d.Deliver(Event{Op: OpModeSet, Status: StatusOK}))
	_, err = first.Wait()
	assert.NoError(t, err)
	assert.False(t, d.Deliver(Event{Op: OpModeSet, Status: StatusOK}))
	assert.Equal(t, 0, d.Outstanding())
}

func TestDispatcherShutdownReleasesWaiters(t *testing.T) {
	d := NewDispatcher(&recordingTransport{})

	const waiters = 5
	var wg sync.WaitGroup
	errs := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		p, err := d.Issue(Command{Op: OpUpdateNow})
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Wait()
			errs <- err
		}()
	}

	d.Shutdown()
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.ErrorIs(t, err, ErrShutdown)
	}

	_, err := d.Issue(Command{Op: OpUpdateNow})
	assert.ErrorIs(t, err, ErrShutdown)

	// Idempotent.
	d.Shutdown()
}

func TestDispatcherDo(t *testing.T) {
	tr := &recordingTransport{}
	d := NewDispatcher(tr)

	done := make(chan error, 1)
	go func() {
		_, err := d.Do(Command{Op: OpClearRouting, Clear: ClearAll})
		done <- err
	}()

	assert.Eventually(t, func() bool { return d.Outstanding() == 1 }, time.Second, time.Millisecond)
	d.Deliver(Event{Op: OpClearRouting, Status: StatusOK})

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Do() did not return")
	}
}

func TestCommandString(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Command{Op: OpAddAid, Dest: 0x81, Match: 0x00, Power: 0x11}, "ADD_AID aid=<default> match=exact dest=0x81 power=0x11"},
		{Command{Op: OpRemoveAid, All: true}, "REMOVE_AID all"},
		{Command{Op: OpAddSystemCode, SystemCode: 0xFEFE, Dest: 0x81}, "ADD_SYSTEM_CODE sc=0xFEFE dest=0x81"},
		{Command{Op: OpUpdateNow}, "UPDATE_NOW"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cmd.String())
	}
}
