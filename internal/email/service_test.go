package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestSMTPService_SendCustom(t *testing.T) {
	d := &recordingDialer{}
	svc := NewSMTPServiceWithDialer(d, "clinic@example.com")

	err := svc.SendCustom(context.Background(), []string{"doctor@example.com"}, "Reaction recorded", "rash at injection site")
	require.NoError(t, err)
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"clinic@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"doctor@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Reaction recorded"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "rash at injection site")
}

func TestSMTPService_Errors(t *testing.T) {
	d := &recordingDialer{err: errors.New("dial tcp: refused")}
	svc := NewSMTPServiceWithDialer(d, "clinic@example.com")

	assert.Error(t, svc.SendCustom(context.Background(), nil, "s", "b"))

	err := svc.SendCustom(context.Background(), []string{"a@example.com"}, "s", "b")
	assert.ErrorContains(t, err, "refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, svc.SendCustom(ctx, []string{"a@example.com"}, "s", "b"), context.Canceled)
}
