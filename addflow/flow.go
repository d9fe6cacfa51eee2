// Package addflow models the add-account screen as a finite-state machine.
package addflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"

	"github.com/tim-projects/otpkit/account"
	"github.com/tim-projects/otpkit/category"
	"github.com/tim-projects/otpkit/otpauth"
)

// State is the active part of the add flow.
type State int

const (
	Idle State = iota
	ManualForm
	QRScan
	EmailInput
	EmailIntegration
	EmailParsing
)

var stateNames = [...]string{"Idle", "ManualForm", "QRScan", "EmailInput", "EmailIntegration", "EmailParsing"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func parseState(name string) State {
	for i, n := range stateNames {
		if n == name {
			return State(i)
		}
	}
	return Idle
}

// Event drives a transition.
type Event int

const (
	OpenManual Event = iota
	OpenScanner
	OpenEmail
	Connect
	StartParsing
	Scanned
	Cancel
	Done
)

var eventNames = [...]string{"OpenManual", "OpenScanner", "OpenEmail", "Connect", "StartParsing", "Scanned", "Cancel", "Done"}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// scanFailed moves a rejected scan to the manual form. Only Scan fires it.
const scanFailed string = "ScanFailed"

var ErrTransition = errors.New("addflow: illegal transition")

// Importer stores the verifications found while parsing a mailbox.
type Importer func(ctx context.Context, found []account.EmailVerification) error

type Option func(*Machine)

// WithImporter sets where FinishParsing hands its verifications.
func WithImporter(imp Importer) Option {
	return func(m *Machine) {
		m.importer = imp
	}
}

func states(s ...State) []string {
	var names []string = make([]string, len(s))
	for i, st := range s {
		names[i] = st.String()
	}
	return names
}

var events = fsm.Events{
	{Name: OpenManual.String(), Src: states(Idle), Dst: ManualForm.String()},
	{Name: OpenScanner.String(), Src: states(Idle), Dst: QRScan.String()},
	{Name: OpenEmail.String(), Src: states(Idle), Dst: EmailInput.String()},
	{Name: Connect.String(), Src: states(EmailInput), Dst: EmailIntegration.String()},
	{Name: StartParsing.String(), Src: states(EmailIntegration), Dst: EmailParsing.String()},
	{Name: Scanned.String(), Src: states(QRScan), Dst: Idle.String()},
	{Name: scanFailed, Src: states(QRScan), Dst: ManualForm.String()},
	{Name: Cancel.String(), Src: states(ManualForm, QRScan, EmailInput, EmailParsing), Dst: Idle.String()},
	{Name: Cancel.String(), Src: states(EmailIntegration), Dst: EmailInput.String()},
	{Name: Done.String(), Src: states(ManualForm, QRScan, EmailParsing), Dst: Idle.String()},
}

// Machine owns the flow state. It is safe for concurrent use; every
// transition happens under one lock.
type Machine struct {
	mu              sync.Mutex
	fsm             *fsm.FSM
	form            account.Form
	defaultCategory category.Category
	importer        Importer
}

// New returns a machine in Idle.
func New(defaultCategory category.Category, opts ...Option) *Machine {
	var m *Machine = &Machine{
		form:            account.NewForm(defaultCategory),
		defaultCategory: defaultCategory,
	}

	for _, opt := range opts {
		opt(m)
	}

	// Callbacks run inside fire, with m.mu held
	m.fsm = fsm.NewFSM(Idle.String(), events, fsm.Callbacks{
		"enter_" + Idle.String(): func(_ context.Context, _ *fsm.Event) {
			// Leaving the flow resets the form
			m.form = account.NewForm(m.defaultCategory)
		},
		"enter_" + ManualForm.String(): func(_ context.Context, e *fsm.Event) {
			if len(e.Args) > 0 {
				if f, ok := e.Args[0].(account.Form); ok {
					m.form = f
				}
			}
		},
	})

	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return parseState(m.fsm.Current())
}

// Form returns the manual form as currently filled.
func (m *Machine) Form() account.Form {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.form
}

// fire runs one transition. The caller holds m.mu.
func (m *Machine) fire(ctx context.Context, event string, args ...any) error {
	var from State = m.State()

	if err := m.fsm.Event(ctx, event, args...); err != nil {
		return fmt.Errorf("%w: %s on %s: %v", ErrTransition, event, from, err)
	}

	return nil
}

// Fire applies an event that carries no payload.
func (m *Machine) Fire(e Event) (State, error) {
	switch e {
	case Scanned:
		return m.State(), fmt.Errorf("%w: %s needs a payload, use Scan", ErrTransition, e)
	case Done:
		if m.State() == EmailParsing {
			return m.State(), fmt.Errorf("%w: %s from %s needs a payload, use FinishParsing", ErrTransition, e, EmailParsing)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.fire(context.Background(), e.String())

	return m.State(), err
}

// Scan consumes decoded QR text while scanning. A complete URI yields
// the account to store and returns to Idle. Anything else falls back
// to the manual form, pre-filled with whatever the URI carried.
func (m *Machine) Scan(text string) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.fsm.Can(Scanned.String()) {
		return nil, fmt.Errorf("%w: %s on %s", ErrTransition, Scanned, m.State())
	}

	var ctx context.Context = context.Background()

	d, err := otpauth.Parse(text)
	if err != nil {
		if ferr := m.fire(ctx, scanFailed, account.NewForm(m.defaultCategory)); ferr != nil {
			return nil, ferr
		}
		return nil, err
	}

	var a account.Account = account.FromDescriptor(d)

	if a.Name == "" || a.Email == "" || a.Secret == "" {
		if ferr := m.fire(ctx, scanFailed, account.FormFromDescriptor(d)); ferr != nil {
			return nil, ferr
		}
		return nil, fmt.Errorf("%w: incomplete account data", otpauth.ErrParse)
	}

	if err := m.fire(ctx, Scanned.String()); err != nil {
		return nil, err
	}

	return &a, nil
}

// FinishParsing ends mailbox parsing and hands the verifications found
// to the importer. The flow returns to Idle even when the import fails.
func (m *Machine) FinishParsing(ctx context.Context, found []account.EmailVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != EmailParsing {
		return fmt.Errorf("%w: %s on %s", ErrTransition, Done, m.State())
	}

	if err := m.fire(ctx, Done.String()); err != nil {
		return err
	}

	if m.importer == nil || len(found) == 0 {
		return nil
	}

	return m.importer(ctx, found)
}
