package configflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
	"github.com/berfenger/melcloud2mqtt/internal/core/port"
	"github.com/berfenger/melcloud2mqtt/pkg/melcloud"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DEFAULT_TIMEOUT = 10 * time.Second

// FlowHandler links a MELCloud account. Every step is terminal: a failed
// step is reported as an abort and the user starts over.
type FlowHandler struct {
	Cloud   melcloud.Cloud
	Store   port.EntryStore
	Timeout time.Duration
	Logger  *zap.Logger
	// OnEntry is called after an entry is created or its token updated.
	OnEntry func(entry domain.ConfigEntry)

	now func() time.Time
}

func NewFlowHandler(cloud melcloud.Cloud, store port.EntryStore, timeout time.Duration, logger *zap.Logger) *FlowHandler {
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	return &FlowHandler{
		Cloud:   cloud,
		Store:   store,
		Timeout: timeout,
		Logger:  logger,
		now:     time.Now,
	}
}

func UserForm() domain.FlowResult {
	return domain.FlowResult{
		Type:   domain.FLOW_RESULT_FORM,
		StepId: domain.FLOW_STEP_USER,
		DataSchema: []domain.FlowSchemaField{
			{Name: "email", Type: "string", Required: true},
			{Name: "password", Type: "password", Required: true},
		},
	}
}

func (f *FlowHandler) StepUser(ctx context.Context, input *domain.UserInput) (domain.FlowResult, error) {
	if input == nil {
		return UserForm(), nil
	}
	return f.createClient(ctx, domain.ENTRY_SOURCE_USER, input.Email, input.Password, "")
}

// StepImport links an account from static configuration. Without a token it
// falls back to the user form.
func (f *FlowHandler) StepImport(ctx context.Context, input domain.ImportInput) (domain.FlowResult, error) {
	if input.Token == "" {
		return f.StepUser(ctx, nil)
	}
	return f.createClient(ctx, domain.ENTRY_SOURCE_IMPORT, input.Email, "", input.Token)
}

func (f *FlowHandler) createClient(ctx context.Context, source, email, password, token string) (domain.FlowResult, error) {
	if email == "" || (password == "" && token == "") {
		return domain.FlowResult{}, fmt.Errorf("%w: missing credentials", domain.ErrInvalidArgument)
	}

	token, err := f.acquireToken(ctx, email, password, token)
	if err != nil {
		return domain.AbortFlow(f.abortReason(err)), nil
	}

	existing, err := f.Store.FindByEmail(email)
	if err != nil {
		return domain.FlowResult{}, err
	}
	if existing != nil {
		existing.Token = token
		if err := f.Store.Save(*existing); err != nil {
			return domain.FlowResult{}, err
		}
		f.Logger.Info("config flow: token updated", zap.String("entry_id", existing.Id))
		f.notify(*existing)
		return domain.AbortFlow(domain.FLOW_ABORT_ALREADY_CONFIGURED), nil
	}

	entry := domain.ConfigEntry{
		Id:      uuid.New().String(),
		Title:   email,
		Source:  source,
		Email:   email,
		Token:   token,
		Created: f.now().UTC(),
	}
	if err := f.Store.Save(entry); err != nil {
		return domain.FlowResult{}, err
	}
	f.Logger.Info("config flow: entry created", zap.String("entry_id", entry.Id))
	f.notify(entry)
	return domain.FlowResult{
		Type:  domain.FLOW_RESULT_CREATE_ENTRY,
		Title: entry.Title,
		Entry: &entry,
	}, nil
}

// acquireToken logs in when no token is given, then validates the token by
// listing the devices. Both calls share one deadline.
func (f *FlowHandler) acquireToken(ctx context.Context, email, password, token string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	if token == "" {
		var err error
		token, err = f.Cloud.Login(ctx, email, password)
		if err != nil {
			return "", err
		}
	}
	if _, err := f.Cloud.GetDevices(ctx, token); err != nil {
		return "", err
	}
	return token, nil
}

func (f *FlowHandler) abortReason(err error) string {
	var httpErr *melcloud.HTTPError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.FLOW_ABORT_CANNOT_CONNECT
	case melcloud.IsAuthError(err):
		return domain.FLOW_ABORT_INVALID_AUTH
	case errors.Is(err, melcloud.ErrConnection), errors.As(err, &httpErr):
		return domain.FLOW_ABORT_CANNOT_CONNECT
	}
	f.Logger.Error("config flow: unexpected error", zap.Error(err))
	return domain.FLOW_ABORT_UNKNOWN
}

func (f *FlowHandler) notify(entry domain.ConfigEntry) {
	if f.OnEntry != nil {
		f.OnEntry(entry)
	}
}

// ensure interface compliance
var _ port.ConfigFlow = (*FlowHandler)(nil)
