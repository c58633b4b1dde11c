package configflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/berfenger/melcloud2mqtt/internal/adapter/store"
	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFlow(t *testing.T, cloud *melcloud.TestCloud) (*FlowHandler, *store.YAMLEntryStore, *[]domain.ConfigEntry) {
	s, err := store.NewYAMLEntryStore("", zap.NewNop())
	require.NoError(t, err)
	flow := NewFlowHandler(cloud, s, 200*time.Millisecond, zap.NewNop())
	var notified []domain.ConfigEntry
	flow.OnEntry = func(entry domain.ConfigEntry) {
		notified = append(notified, entry)
	}
	return flow, s, &notified
}

func userInput() *domain.UserInput {
	return &domain.UserInput{Email: melcloud.TEST_EMAIL, Password: melcloud.TEST_PASSWORD}
}

func TestStepUserShowsForm(t *testing.T) {
	flow, _, _ := newTestFlow(t, melcloud.NewTestCloud())

	result, err := flow.StepUser(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.FLOW_RESULT_FORM, result.Type)
	assert.Equal(t, domain.FLOW_STEP_USER, result.StepId)
	assert.Len(t, result.DataSchema, 2)
}

func TestStepUserCreatesEntry(t *testing.T) {
	cloud := melcloud.NewTestCloud()
	flow, s, notified := newTestFlow(t, cloud)

	result, err := flow.StepUser(context.Background(), userInput())
	require.NoError(t, err)
	require.Equal(t, domain.FLOW_RESULT_CREATE_ENTRY, result.Type)
	assert.Equal(t, melcloud.TEST_EMAIL, result.Title)
	require.NotNil(t, result.Entry)
	assert.Equal(t, melcloud.TEST_TOKEN, result.Entry.Token)
	_, err = uuid.Parse(result.Entry.Id)
	assert.NoError(t, err)

	entries, err := s.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Len(t, *notified, 1)
	assert.Equal(t, 1, cloud.LoginCalls)
	assert.Equal(t, 1, cloud.DeviceCalls)
}

func TestStepUserUpdatesExistingEntry(t *testing.T) {
	cloud := melcloud.NewTestCloud()
	flow, s, notified := newTestFlow(t, cloud)
	require.NoError(t, s.Save(domain.ConfigEntry{Id: "existing", Email: melcloud.TEST_EMAIL, Token: "stale"}))

	result, err := flow.StepUser(context.Background(), userInput())
	require.NoError(t, err)
	assert.Equal(t, domain.AbortFlow(domain.FLOW_ABORT_ALREADY_CONFIGURED), result)

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "existing", entries[0].Id)
	assert.Equal(t, melcloud.TEST_TOKEN, entries[0].Token)
	assert.Len(t, *notified, 1)
}

func TestStepUserErrors(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(c *melcloud.TestCloud)
		reason string
	}{
		{
			name:   "wrong password",
			setup:  func(c *melcloud.TestCloud) { c.Password = "other" },
			reason: domain.FLOW_ABORT_INVALID_AUTH,
		},
		{
			name:   "forbidden",
			setup:  func(c *melcloud.TestCloud) { c.DevicesErr = &melcloud.HTTPError{Op: "list devices", StatusCode: 403} },
			reason: domain.FLOW_ABORT_INVALID_AUTH,
		},
		{
			name:   "server error",
			setup:  func(c *melcloud.TestCloud) { c.LoginError = &melcloud.HTTPError{Op: "login", StatusCode: 500} },
			reason: domain.FLOW_ABORT_CANNOT_CONNECT,
		},
		{
			name:   "transport",
			setup:  func(c *melcloud.TestCloud) { c.LoginError = fmt.Errorf("%w: login: refused", melcloud.ErrConnection) },
			reason: domain.FLOW_ABORT_CANNOT_CONNECT,
		},
		{
			name:   "timeout",
			setup:  func(c *melcloud.TestCloud) { c.Delay = 5 * time.Second },
			reason: domain.FLOW_ABORT_CANNOT_CONNECT,
		},
		{
			name:   "unexpected",
			setup:  func(c *melcloud.TestCloud) { c.LoginError = errors.New("boom") },
			reason: domain.FLOW_ABORT_UNKNOWN,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cloud := melcloud.NewTestCloud()
			tt.setup(cloud)
			flow, s, notified := newTestFlow(t, cloud)

			result, err := flow.StepUser(context.Background(), userInput())
			require.NoError(t, err)
			assert.Equal(t, domain.FLOW_RESULT_ABORT, result.Type)
			assert.Equal(t, tt.reason, result.Reason)

			entries, err := s.List()
			require.NoError(t, err)
			assert.Empty(t, entries)
			assert.Empty(t, *notified)
		})
	}
}

func TestStepImport(t *testing.T) {
	cloud := melcloud.NewTestCloud()
	flow, _, _ := newTestFlow(t, cloud)

	result, err := flow.StepImport(context.Background(), domain.ImportInput{Email: melcloud.TEST_EMAIL, Token: melcloud.TEST_TOKEN})
	require.NoError(t, err)
	require.Equal(t, domain.FLOW_RESULT_CREATE_ENTRY, result.Type)
	assert.Equal(t, domain.ENTRY_SOURCE_IMPORT, result.Entry.Source)
	assert.Equal(t, 0, cloud.LoginCalls)
}

func TestStepImportWithoutTokenShowsForm(t *testing.T) {
	flow, _, _ := newTestFlow(t, melcloud.NewTestCloud())

	result, err := flow.StepImport(context.Background(), domain.ImportInput{Email: melcloud.TEST_EMAIL})
	require.NoError(t, err)
	assert.Equal(t, UserForm(), result)
}

func TestStepUserMissingCredentials(t *testing.T) {
	flow, _, _ := newTestFlow(t, melcloud.NewTestCloud())

	_, err := flow.StepUser(context.Background(), &domain.UserInput{Email: melcloud.TEST_EMAIL})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
