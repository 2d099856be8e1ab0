package ippserver

import (
	"context"
	"time"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog/log"
)

// JobState is the IPP job-state enumeration (RFC 8011 §5.3.7).
type JobState int

// Job states, with their RFC 8011 wire values.
const (
	JobPending    JobState = 3
	JobProcessing JobState = 5
	JobCanceled   JobState = 7
	JobAborted    JobState = 8
	JobCompleted  JobState = 9
)

func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobProcessing:
		return "processing"
	case JobCanceled:
		return "canceled"
	case JobAborted:
		return "aborted"
	case JobCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// fsm states/events the looplab/fsm machine is built from; Job.State()
// maps these back onto the wire enumeration above.
const (
	fsmPending    = "pending"
	fsmProcessing = "processing"
	fsmCompleted  = "completed"
	fsmCanceled   = "canceled"
	fsmAborted    = "aborted"

	eventStart  = "start"
	eventFinish = "finish"
	eventFail   = "fail"
	eventCancel = "cancel"
)

// Job is one accepted print job. Identity (ID) and retention are owned by
// the Registry; Job itself only tracks the per-job lifecycle.
type Job struct {
	ID               int32
	URI              string
	PrinterURI       string
	Name             string
	OriginatingUser  string
	CreatedAt        time.Time
	DocumentFormat   string
	StateReasons     []string

	machine *fsm.FSM
}

// newJob constructs a Job in the pending state.
func newJob(id int32, printerURI, name, user, format string) *Job {
	j := &Job{
		ID:              id,
		PrinterURI:      printerURI,
		Name:            name,
		OriginatingUser: user,
		CreatedAt:       time.Now(),
		DocumentFormat:  format,
		StateReasons:    []string{"none"},
	}

	j.machine = fsm.NewFSM(
		fsmPending,
		fsm.Events{
			{Name: eventStart, Src: []string{fsmPending}, Dst: fsmProcessing},
			{Name: eventFinish, Src: []string{fsmProcessing}, Dst: fsmCompleted},
			{Name: eventFail, Src: []string{fsmPending, fsmProcessing}, Dst: fsmAborted},
			{Name: eventCancel, Src: []string{fsmPending, fsmProcessing}, Dst: fsmCanceled},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				j.onEnterState(e)
			},
		},
	)

	return j
}

func (j *Job) onEnterState(e *fsm.Event) {
	switch e.Dst {
	case fsmProcessing:
		j.StateReasons = []string{"job-incoming"}
	case fsmCompleted:
		j.StateReasons = []string{"job-completed-successfully"}
	case fsmCanceled:
		j.StateReasons = []string{"job-canceled-by-user"}
	case fsmAborted:
		j.StateReasons = []string{"aborted-by-system"}
	}

	log.Debug().
		Int32("job-id", j.ID).
		Str("from", e.Src).
		Str("to", e.Dst).
		Msg("job state transition")
}

// State returns the job's current wire-level state.
func (j *Job) State() JobState {
	switch j.machine.Current() {
	case fsmPending:
		return JobPending
	case fsmProcessing:
		return JobProcessing
	case fsmCompleted:
		return JobCompleted
	case fsmCanceled:
		return JobCanceled
	case fsmAborted:
		return JobAborted
	default:
		return JobPending
	}
}

// Terminal reports whether the job has reached a state it cannot leave.
func (j *Job) Terminal() bool {
	switch j.machine.Current() {
	case fsmCompleted, fsmCanceled, fsmAborted:
		return true
	default:
		return false
	}
}

// Start transitions pending → processing. SimpleService calls it just
// before it starts copying the document stream, not on the first byte
// actually read from it.
func (j *Job) Start(ctx context.Context) error { return j.machine.Event(ctx, eventStart) }

// Finish transitions processing → completed.
func (j *Job) Finish(ctx context.Context) error { return j.machine.Event(ctx, eventFinish) }

// Fail transitions pending|processing → aborted.
func (j *Job) Fail(ctx context.Context) error { return j.machine.Event(ctx, eventFail) }

// Cancel transitions pending|processing → canceled.
func (j *Job) Cancel(ctx context.Context) error { return j.machine.Event(ctx, eventCancel) }
