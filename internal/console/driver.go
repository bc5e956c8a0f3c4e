// Package console automates reboots over a virtual machine's serial
// console: an SSH session driven through a fixed sysrq key sequence.
package console

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExpectTimeout is returned by Session.Expect when none of the expected
// texts appeared within the wait bound.
var ErrExpectTimeout = errors.New("timed out waiting for console output")

// Session is one interactive console stream. Expect blocks until one of the
// patterns appears in the output (returning its index) or the timeout hits.
type Session interface {
	Send(text string) error
	Expect(ctx context.Context, timeout time.Duration, patterns ...string) (int, error)
	// Transcript returns everything read from the console so far.
	Transcript() string
	Close() error
}

// Driver runs the sysrq reboot sequence. The sysrq magic keys are sent
// blind; the intermediate confirmation banners are best-effort observability
// because serial buffering makes their timing unreliable. Only the final
// reappearance of a login prompt proves the machine actually rebooted.
type Driver struct {
	SettleDelay   time.Duration // pause before each phase so the console catches up
	BreakDelay    time.Duration // gap between the break sequence and the sysrq key
	PromptTimeout time.Duration // initial login/password prompt wait, fatal on miss
	BannerTimeout time.Duration // sysrq confirmation banner wait, tolerated on miss
	LoginTimeout  time.Duration // post-reboot login prompt wait, fatal on miss

	// Sleep is swappable in tests to skip the real delays.
	Sleep func(time.Duration)
}

func NewDriver() *Driver {
	return &Driver{
		SettleDelay:   500 * time.Millisecond,
		PromptTimeout: 30 * time.Second,
		BreakDelay:    100 * time.Millisecond,
		BannerTimeout: time.Second,
		LoginTimeout:  300 * time.Second,
		Sleep:         time.Sleep,
	}
}

// Reboot drives the session through the scripted sysrq reboot.
func (d *Driver) Reboot(ctx context.Context, sess Session) error {
	// Send a newline and wait for a prompt. We don't want to send the
	// break sequence too soon.
	d.Sleep(d.SettleDelay)
	if err := sess.Send("\n"); err != nil {
		return err
	}
	if _, err := sess.Expect(ctx, d.PromptTimeout, "login:", "Password:"); err != nil {
		return fmt.Errorf("no console prompt: %w", err)
	}

	// Break sequence then "h": the sysrq help banner confirms the console
	// accepts magic keys, but its absence is not a failure.
	d.Sleep(d.SettleDelay)
	if err := sess.Send("~B"); err != nil {
		return err
	}
	d.Sleep(d.BreakDelay)
	if err := sess.Send("h"); err != nil {
		return err
	}
	if _, err := sess.Expect(ctx, d.BannerTimeout, "sysrq: HELP"); err != nil && !errors.Is(err, ErrExpectTimeout) {
		return err
	}

	// Break sequence then "b" for reboot.
	d.Sleep(d.SettleDelay)
	if err := sess.Send("\n"); err != nil {
		return err
	}
	if err := sess.Send("~B"); err != nil {
		return err
	}
	d.Sleep(d.BreakDelay)
	if err := sess.Send("b"); err != nil {
		return err
	}
	if _, err := sess.Expect(ctx, d.BannerTimeout, "sysrq: Resetting"); err != nil && !errors.Is(err, ErrExpectTimeout) {
		return err
	}

	// The only hard failure condition: the machine must come back.
	if _, err := sess.Expect(ctx, d.LoginTimeout, "login:"); err != nil {
		return fmt.Errorf("login prompt did not reappear after reboot: %w", err)
	}
	return nil
}
