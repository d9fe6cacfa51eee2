package addflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tim-projects/otpkit/addflow"
	"github.com/tim-projects/otpkit/account"
	"github.com/tim-projects/otpkit/category"
	"github.com/tim-projects/otpkit/otpauth"
)

func TestMachine_EmailPath(t *testing.T) {
	m := addflow.New(category.Other)

	for _, step := range []struct {
		event addflow.Event
		want  addflow.State
	}{
		{addflow.OpenEmail, addflow.EmailInput},
		{addflow.Connect, addflow.EmailIntegration},
		{addflow.Cancel, addflow.EmailInput},
		{addflow.Connect, addflow.EmailIntegration},
		{addflow.StartParsing, addflow.EmailParsing},
	} {
		state, err := m.Fire(step.event)
		require.NoError(t, err, step.event.String())
		assert.Equal(t, step.want, state)
	}

	// Parsing ends through FinishParsing, which carries the results
	state, err := m.Fire(addflow.Done)
	assert.ErrorIs(t, err, addflow.ErrTransition)
	assert.Equal(t, addflow.EmailParsing, state)

	require.NoError(t, m.FinishParsing(context.Background(), nil))
	assert.Equal(t, addflow.Idle, m.State())
}

func TestMachine_FinishParsingHandsOffVerifications(t *testing.T) {
	var got []account.EmailVerification
	importErr := errors.New("store unavailable")

	m := addflow.New(category.Other, addflow.WithImporter(func(_ context.Context, found []account.EmailVerification) error {
		got = found
		return importErr
	}))

	err := m.FinishParsing(context.Background(), nil)
	assert.ErrorIs(t, err, addflow.ErrTransition)

	for _, e := range []addflow.Event{addflow.OpenEmail, addflow.Connect, addflow.StartParsing} {
		_, err := m.Fire(e)
		require.NoError(t, err, e.String())
	}

	found := []account.EmailVerification{{ID: "v1", From: "security@bank.example", Code: "123456"}}
	err = m.FinishParsing(context.Background(), found)
	assert.ErrorIs(t, err, importErr)
	assert.Equal(t, found, got)
	assert.Equal(t, addflow.Idle, m.State())
}

func TestMachine_ManualPath(t *testing.T) {
	m := addflow.New(category.Finance)

	state, err := m.Fire(addflow.OpenManual)
	require.NoError(t, err)
	assert.Equal(t, addflow.ManualForm, state)
	assert.Equal(t, category.Finance, m.Form().Category)

	state, err = m.Fire(addflow.Done)
	require.NoError(t, err)
	assert.Equal(t, addflow.Idle, state)

	_, err = m.Fire(addflow.Event(42))
	assert.ErrorIs(t, err, addflow.ErrTransition)
}

func TestMachine_IllegalTransition(t *testing.T) {
	m := addflow.New(category.Other)

	state, err := m.Fire(addflow.StartParsing)
	assert.ErrorIs(t, err, addflow.ErrTransition)
	assert.Equal(t, addflow.Idle, state)

	_, err = m.Fire(addflow.Scanned)
	assert.ErrorIs(t, err, addflow.ErrTransition)

	_, err = m.Scan("otpauth://totp/a?secret=JBSWY3DPEHPK3PXP")
	assert.ErrorIs(t, err, addflow.ErrTransition)
}

func TestMachine_ScanComplete(t *testing.T) {
	m := addflow.New(category.Other)
	_, err := m.Fire(addflow.OpenScanner)
	require.NoError(t, err)

	a, err := m.Scan("otpauth://totp/Example:alice@example.com?secret=JBSWY3DPEHPK3PXP&issuer=Example")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "alice@example.com", a.Name)
	assert.Equal(t, addflow.Idle, m.State())
}

func TestMachine_ScanFallsBackToManualForm(t *testing.T) {
	m := addflow.New(category.Work)
	_, err := m.Fire(addflow.OpenScanner)
	require.NoError(t, err)

	a, err := m.Scan("otpauth://totp/?secret=JBSWY3DPEHPK3PXP&digits=8")
	assert.Nil(t, a)
	assert.ErrorIs(t, err, otpauth.ErrParse)
	assert.Equal(t, addflow.ManualForm, m.State())

	f := m.Form()
	assert.Equal(t, "JBSWY3DPEHPK3PXP", f.Secret)
	assert.Equal(t, "8", f.Digits)

	_, err = m.Fire(addflow.Cancel)
	require.NoError(t, err)
	assert.Empty(t, m.Form().Secret)
	assert.Equal(t, category.Work, m.Form().Category)
}

func TestMachine_ScanGarbage(t *testing.T) {
	m := addflow.New(category.Other)
	_, err := m.Fire(addflow.OpenScanner)
	require.NoError(t, err)

	_, err = m.Scan("not-a-uri")
	assert.ErrorIs(t, err, otpauth.ErrParse)
	assert.Equal(t, addflow.ManualForm, m.State())
	assert.Empty(t, m.Form().Secret)
}
