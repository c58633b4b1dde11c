package domain

const (
	FLOW_STEP_USER = "user"

	FLOW_RESULT_FORM         = "form"
	FLOW_RESULT_CREATE_ENTRY = "create_entry"
	FLOW_RESULT_ABORT        = "abort"

	FLOW_ABORT_CANNOT_CONNECT     = "cannot_connect"
	FLOW_ABORT_INVALID_AUTH       = "invalid_auth"
	FLOW_ABORT_UNKNOWN            = "unknown"
	FLOW_ABORT_ALREADY_CONFIGURED = "already_configured"
)

type UserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ImportInput struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type FlowSchemaField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// FlowResult is the outcome of one config flow step.
type FlowResult struct {
	Type       string            `json:"type"`
	StepId     string            `json:"step_id,omitempty"`
	DataSchema []FlowSchemaField `json:"data_schema,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Title      string            `json:"title,omitempty"`
	Entry      *ConfigEntry      `json:"result,omitempty"`
}

func AbortFlow(reason string) FlowResult {
	return FlowResult{
		Type:   FLOW_RESULT_ABORT,
		Reason: reason,
	}
}
