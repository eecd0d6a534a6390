package countries

import (
	"strings"

	lib "github.com/biter777/countries"
)

type Country struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// FindByCode looks up a country by its alpha-2 code.
func FindByCode(code string) (*Country, bool) {
	c := lib.ByName(strings.ToUpper(strings.TrimSpace(code)))
	if c == lib.Unknown || !c.IsValid() {
		return nil, false
	}
	return &Country{
		Code: c.Alpha2(),
		Name: c.String(),
		Flag: c.Emoji(),
	}, true
}

// IsValidCode reports whether code names a real country.
func IsValidCode(code string) bool {
	_, ok := FindByCode(code)
	return ok
}

// FormatLocation renders "flag name" for display, falling back to the raw
// code when it is unknown.
func FormatLocation(code string) string {
	c, ok := FindByCode(code)
	if !ok {
		return code
	}
	return c.Flag + " " + c.Name
}

// TruncateName shortens long display names, appending an ellipsis.
func TruncateName(name string, max int) string {
	if max <= 3 {
		max = 4
	}
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	return string(runes[:max-3]) + "..."
}
