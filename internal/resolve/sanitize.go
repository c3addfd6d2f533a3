package resolve

import "strings"

// nameReplacer swaps characters that are path separators or otherwise
// unsafe in file names. Names are repaired, never rejected.
var nameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", " -",
	"*", "",
	"?", "",
	"\"", "'",
	"<", "",
	">", "",
	"|", "-",
)

// sanitizeName makes a plan-supplied name safe to join under the root.
// Separators and control characters are replaced, and names that reduce to
// nothing (including "." and "..") collapse to a placeholder, so a plan can
// never traverse outside the root.
func sanitizeName(name string) string {
	name = nameReplacer.Replace(name)

	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	name = strings.TrimSpace(b.String())

	// "." and ".." (and any run of dots) are path navigation, not names.
	if strings.Trim(name, ". ") == "" {
		return "unnamed"
	}
	return name
}
