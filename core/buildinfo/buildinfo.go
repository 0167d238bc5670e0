// Package buildinfo exposes version metadata stamped in by the linker:
//
//	-X 'github.com/m3rciful/infobot/core/buildinfo.Version=v1.2.3'
//	-X 'github.com/m3rciful/infobot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/infobot/core/buildinfo.Date=2026-10-01T12:00:00Z'
package buildinfo

import "strings"

var (
	Version = "dev"
	Commit  = "local"
	// Date is RFC3339; empty for local builds.
	Date = ""
)

// UserAgent identifies the bot to upstream services, e.g. "infobot/v1.2.3 (abcdef0)".
func UserAgent() string {
	var b strings.Builder
	b.WriteString("infobot/")
	b.WriteString(Version)
	if Commit != "" && Commit != "local" {
		b.WriteString(" (")
		b.WriteString(Commit)
		b.WriteString(")")
	}
	return b.String()
}
