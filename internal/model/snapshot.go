package model

// TestType tags a snapshot with the automation framework that produced it.
// The comparison server uses it for attribution only; the capture protocol
// is identical for every value.
type TestType string

const (
	TestTypeCypress    TestType = "cypress-driver"
	TestTypeJSCypress  TestType = "js-cypress-driver"
	TestTypePuppeteer  TestType = "js-puppeteer-driver"
	TestTypePlaywright TestType = "js-playwright-driver"
	TestTypeAppium     TestType = "appium-driver"
)

// Snapshot is the normalized representation of a captured UI surface.
// DOM is a pass-through blob produced by server-supplied serializer code;
// its internal schema belongs to the server, not to this client.
type Snapshot struct {
	DOM     string         `json:"dom"`
	URL     string         `json:"url"`
	Name    string         `json:"name"`
	Options map[string]any `json:"options"`
}

// SnapshotRequest is the body of POST /snapshot.
type SnapshotRequest struct {
	Snapshot *Snapshot `json:"snapshot"`
	TestType TestType  `json:"testType"`
}

// HealthResult is the decoded body of GET /healthcheck. An empty CLIVersion
// on a 2xx response means the server answered but is not ready; callers must
// check it explicitly instead of trusting the HTTP status alone.
type HealthResult struct {
	CLIVersion string
}

// UploadResult is the decoded body of a successful POST /snapshot.
type UploadResult struct {
	Warnings []string
}

// CaptureResult reports the outcome of one completed capture call.
type CaptureResult struct {
	Name     string
	URL      string
	Warnings []string
}
