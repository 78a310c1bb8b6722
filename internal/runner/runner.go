// Package runner owns the login subprocess: it spawns it, routes both output
// streams through the classifier, mirrors them for human visibility, and on
// exit reconciles the exit code with the credential check to decide the
// final outcome.
package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/linkrelay/loginwatch/internal/classifier"
	"github.com/linkrelay/loginwatch/internal/config"
	"github.com/linkrelay/loginwatch/internal/creds"
	"github.com/linkrelay/loginwatch/internal/procstat"
	"github.com/linkrelay/loginwatch/internal/run"
)

// EventSink receives classified events. Implementations must return quickly;
// the webhook sender dispatches on its own goroutine.
type EventSink interface {
	SendEvent(ev classifier.Event)
}

// Result is the reconciled end of a run: the outcome and the exit code this
// process should terminate with.
type Result struct {
	Outcome  run.Outcome
	ExitCode int
}

type Runner struct {
	cfg   *config.Config
	cls   *classifier.Classifier
	store *run.Store
	sinks []EventSink

	// confirm is the credential check; swapped out in tests.
	confirm func(path string, maxAttempts int, delay time.Duration) bool
}

func New(cfg *config.Config, cls *classifier.Classifier, store *run.Store, sinks ...EventSink) *Runner {
	return &Runner{
		cfg:     cfg,
		cls:     cls,
		store:   store,
		sinks:   sinks,
		confirm: creds.Confirm,
	}
}

// Run executes the login subprocess to completion and returns the
// reconciled result. The only error case is a launch failure; everything
// after a successful start resolves to a Result.
//
// There is no cancellation path on purpose: once the subprocess is up the
// watcher follows it to exit, and the ctx only bounds auxiliary work like
// resource sampling.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	cmd := exec.Command(r.cfg.Login.Binary, r.cfg.Login.Args...)
	cmd.Env = os.Environ()
	cmd.Stdin = os.Stdin
	if r.cfg.Login.InstallRoot != "" {
		cmd.Dir = r.cfg.Login.InstallRoot
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("starting %s: %w", r.cfg.Login.Binary, err)
	}

	pid := cmd.Process.Pid
	log.Printf("[runner] login subprocess started (pid %d)", pid)
	r.store.Update(func(st *run.State) {
		st.PID = pid
	})

	sampleCtx, stopSampling := context.WithCancel(ctx)
	defer stopSampling()
	if interval := r.cfg.Procstat.SampleInterval; interval > 0 {
		go procstat.Watch(sampleCtx, pid, interval, func(s procstat.Sample) {
			r.store.Update(func(st *run.State) {
				st.CPUPercent = s.CPUPercent
				st.RSSBytes = s.RSSBytes
			})
			log.Printf("[runner] subprocess cpu=%.1f%% rss=%dMiB",
				s.CPUPercent, s.RSSBytes/(1024*1024))
		})
	}

	// Each stream gets its own scanner goroutine so a stalled channel never
	// blocks the other. The classifier serializes shared state internally.
	var wg sync.WaitGroup
	wg.Add(2)
	go r.scanStream(stdout, os.Stdout, &wg)
	go r.scanStream(stderr, os.Stderr, &wg)
	wg.Wait()

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			// Wait itself failed; treat as a generic failure.
			log.Printf("[runner] wait error: %v", err)
			exitCode = 1
		} else {
			exitCode = exitErr.ExitCode()
		}
	}
	stopSampling()
	log.Printf("[runner] login subprocess exited with code %d", exitCode)

	result := r.reconcile(exitCode)
	r.finish(result)
	return result, nil
}

// scanStream reads src line by line, mirrors each line unmodified to out,
// and feeds it to the classifier. QR artwork lines are wide multi-byte
// runs, so the scanner buffer is grown well past the default.
func (r *Runner) scanStream(src io.Reader, out io.Writer, wg *sync.WaitGroup) {
	defer wg.Done()

	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		fmt.Fprintln(out, line)
		if ev, ok := r.cls.Feed(line); ok {
			r.dispatch(ev)
		}
	}
	if err := sc.Err(); err != nil {
		log.Printf("[runner] stream read error: %v", err)
	}
}

func (r *Runner) dispatch(ev classifier.Event) {
	now := time.Now()
	r.store.Update(func(st *run.State) {
		st.EventCount++
		st.LastEvent = ev.Kind.String()
		st.LastEventAt = &now
		switch ev.Kind {
		case classifier.QRReady:
			if st.Phase == run.Starting {
				st.Phase = run.AwaitingLink
			}
		case classifier.Configuring:
			st.Connected = true
			st.Phase = run.Configuring
		}
	})

	for _, sink := range r.sinks {
		sink.SendEvent(ev)
	}
}

// reconcile maps (exit code, connected flag, credential confirmation) to
// the terminal outcome. The subprocess's own exit code is never trusted
// alone: a zero exit still requires credentials on disk.
func (r *Runner) reconcile(exitCode int) Result {
	if exitCode != 0 {
		return Result{Outcome: run.Failed, ExitCode: exitCode}
	}

	connected := r.cls.Connected()
	r.store.Update(func(st *run.State) {
		st.Phase = run.Verifying
	})

	credDir := creds.Dir(r.cfg.Login.StateDir)
	if connected {
		if r.confirm(credDir, r.cfg.Creds.ConnectedAttempts, r.cfg.Creds.PollDelay) {
			log.Printf("[runner] login confirmed: credentials present in %s", credDir)
			return Result{Outcome: run.SuccessConfirmed, ExitCode: 0}
		}
		log.Printf("[runner] WARNING: output claimed success but no credentials appeared in %s", credDir)
		return Result{Outcome: run.SuccessUnverified, ExitCode: 1}
	}

	if r.confirm(credDir, r.cfg.Creds.FallbackAttempts, r.cfg.Creds.PollDelay) {
		log.Printf("[runner] credentials present in %s despite no success line", credDir)
		return Result{Outcome: run.SuccessConfirmed, ExitCode: 0}
	}
	return Result{Outcome: run.FinishedNoSignal, ExitCode: 1}
}

func (r *Runner) finish(result Result) {
	now := time.Now()
	r.store.Update(func(st *run.State) {
		st.Phase = run.Done
		outcome := result.Outcome
		st.Outcome = &outcome
		code := result.ExitCode
		st.ExitCode = &code
		st.CompletedAt = &now
		st.Connected = r.cls.Connected()
	})
	log.Printf("[runner] outcome: %s (exit %d)", result.Outcome, result.ExitCode)
}
