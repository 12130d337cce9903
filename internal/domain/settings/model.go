package settings

// Key is where admin settings are persisted.
const Key = "adminSettings"

// DefaultDashboardURL is where the admin dashboard lives unless configured.
const DefaultDashboardURL = "/admin"

// AdminSettings are the process-wide feature flags.
type AdminSettings struct {
	AllowRegistration bool   `json:"allowRegistration"`
	DashboardURL      string `json:"dashboardUrl"`
	SetupCompleted    bool   `json:"setupCompleted"`
}

// Defaults returns the settings used before anything is stored.
func Defaults() AdminSettings {
	return AdminSettings{
		AllowRegistration: true,
		DashboardURL:      DefaultDashboardURL,
	}
}

// Patch changes a subset of settings. Nil fields are left alone.
type Patch struct {
	AllowRegistration *bool   `json:"allowRegistration,omitempty"`
	DashboardURL      *string `json:"dashboardUrl,omitempty"`
}
