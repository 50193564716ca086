package install

import "time"

// Plan captures the operator's provisioning choices once the menus are resolved.
type Plan struct {
	// Release is the engine version and its artifacts.
	Release Release
	// MemoryLimit is the PM2 restart threshold literal.
	MemoryLimit string
	// AppName is the PM2 application name.
	AppName string
	// CreateLimitedUser records whether a readWrite user is provisioned
	// next to the administrator.
	CreateLimitedUser bool
}

// Receipt records what a completed run installed. It is persisted so a rerun
// can tell the operator what is already in place.
type Receipt struct {
	// EngineVersion is the installed engine release.
	EngineVersion string `json:"engine_version"`
	// AppName is the PM2 application name the engine runs under.
	AppName string `json:"app_name"`
	// BindAddress and Port locate the provisioned instance.
	BindAddress string `json:"bind_address"`
	Port        int    `json:"port"`
	// MemoryLimit is the supervisor restart threshold.
	MemoryLimit string `json:"memory_limit"`
	// InstalledAt is when provisioning completed.
	InstalledAt time.Time `json:"installed_at"`
}
