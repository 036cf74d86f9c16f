package gmailclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/jonasweber/staffwerk/pkg/db"
)

// stalledTransport never answers; it blocks until the request context ends,
// standing in for a hung Gmail endpoint.
type stalledTransport struct{}

func (stalledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	<-req.Context().Done()
	return nil, req.Context().Err()
}

func newStalledClient(t *testing.T) *Client {
	t.Helper()
	service, err := gmail.NewService(context.Background(),
		option.WithHTTPClient(&http.Client{Transport: stalledTransport{}}))
	require.NoError(t, err)
	return &Client{service: service, userID: "me", sender: "noreply@example.com"}
}

func TestSendEmail_HungAPICallHonorsDeadline(t *testing.T) {
	client := newStalledClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.SendEmail(ctx, "to@example.com", "Einsatzanfrage", "Hallo")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSendEmail_ThrottleWaitObservesCancellation(t *testing.T) {
	client := newStalledClient(t)
	client.lastSendTime = time.Now() // forces the full throttle wait

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := client.SendEmail(ctx, "to@example.com", "Einsatzanfrage", "Hallo")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), emailInterval)
}

func TestNotify_RequiresEmailAddress(t *testing.T) {
	client := newStalledClient(t)

	_, err := client.Notify(context.Background(), db.Employee{ID: "emp1"}, db.Event{Title: "Sommerfest"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no email address")
}
