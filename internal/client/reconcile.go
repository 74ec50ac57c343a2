package client

// Keys of the presentation settings subject to reconciliation.
const (
	KeyBackgroundURL  = "bg_url"
	KeyOverlayOpacity = "bg_opacity"
	KeyTextLight      = "text_light"
	KeyTextDark       = "text_dark"
	KeyDarkMode       = "dark_mode"
	KeyUTCOffset      = "utc_offset"
)

// Defaults returns the hardcoded fallback used when neither the server nor
// local storage provides a value.
func Defaults() map[string]string {
	return map[string]string{
		KeyBackgroundURL:  "",
		KeyOverlayOpacity: "0.5",
		KeyTextLight:      "#f8fafc",
		KeyTextDark:       "#0f172a",
		KeyDarkMode:       "false",
		KeyUTCOffset:      "0",
	}
}

// Reconciliation is the outcome of comparing server and local configuration.
type Reconciliation struct {
	// Effective is the configuration the client should render with.
	Effective map[string]string
	// Version is the force-sync version to persist locally.
	Version int64
	// ClearOverrides instructs the client to drop every local override:
	// the server issued an explicit reset-everyone signal.
	ClearOverrides bool
}

// ReconcileConfig applies the version-gated strategy from the force-sync
// protocol. A strictly newer server version wipes local overrides and adopts
// the server values wholesale; otherwise each setting falls back from local
// override to server value to hardcoded default.
func ReconcileConfig(serverConfig map[string]string, serverVersion int64, localOverrides map[string]string, localVersion int64) Reconciliation {
	effective := Defaults()
	for key, value := range serverConfig {
		effective[key] = value
	}

	if serverVersion > localVersion {
		return Reconciliation{Effective: effective, Version: serverVersion, ClearOverrides: true}
	}

	for key, value := range localOverrides {
		effective[key] = value
	}
	return Reconciliation{Effective: effective, Version: localVersion, ClearOverrides: false}
}
