package cli

import "fmt"

// VersionString formats the --version output.
func VersionString(name, version, commit, date string) string {
	if commit == "" || commit == "none" {
		return fmt.Sprintf("%s %s", name, version)
	}
	return fmt.Sprintf("%s %s (%s, built %s)", name, version, commit, date)
}
