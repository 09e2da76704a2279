package model

// Wire envelopes shared between the server client and the local comparison
// server. Every SmartUI endpoint wraps its payload in {data: ...} and
// reports failures as {error: {message}}.

type APIError struct {
	Message string `json:"message"`
}

type HealthEnvelope struct {
	Data struct {
		CLIVersion string `json:"cliVersion,omitempty"`
	} `json:"data"`
	Error *APIError `json:"error,omitempty"`
}

type SerializerEnvelope struct {
	Data struct {
		DOM string `json:"dom"`
	} `json:"data"`
	Error *APIError `json:"error,omitempty"`
}

type UploadEnvelope struct {
	Data struct {
		Warnings []string `json:"warnings"`
	} `json:"data"`
	Error *APIError `json:"error,omitempty"`
}

// ErrorEnvelope is decoded from any non-2xx response to extract the
// server-provided message, when present.
type ErrorEnvelope struct {
	Error *APIError `json:"error,omitempty"`
}
