package session

// AlwaysOnPolicy names one of the server-wide always-on modes,
// matching config.Config.AlwaysOnPolicy's string values.
type AlwaysOnPolicy string

const (
	AlwaysOnDisabled  AlwaysOnPolicy = "disabled"
	AlwaysOnOptIn     AlwaysOnPolicy = "opt-in"
	AlwaysOnOptOut    AlwaysOnPolicy = "opt-out"
	AlwaysOnMandatory AlwaysOnPolicy = "mandatory"
)

// EffectiveAlwaysOn resolves whether a session should survive having
// zero attached devices, combining the server-wide policy with the
// account's own preference (nil: no preference expressed; true/false:
// the account explicitly opted in or out).
func EffectiveAlwaysOn(policy AlwaysOnPolicy, accountPref *bool) bool {
	switch policy {
	case AlwaysOnMandatory:
		return true
	case AlwaysOnOptIn:
		return accountPref != nil && *accountPref
	case AlwaysOnOptOut:
		return accountPref == nil || *accountPref
	default: // AlwaysOnDisabled, or an unrecognised value
		return false
	}
}
