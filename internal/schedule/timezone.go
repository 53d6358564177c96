package schedule

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LoadTimezone resolves an IANA name. An empty name means the host
// timezone, whose IANA name is detected from TZ or /etc/localtime.
func LoadTimezone(name string) (*time.Location, string, error) {
	if name == "" {
		name = hostTimezone()
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, "", err
	}
	return loc, name, nil
}

func hostTimezone() string {
	if tz := strings.TrimPrefix(os.Getenv("TZ"), ":"); tz != "" {
		return tz
	}
	if target, err := filepath.EvalSymlinks("/etc/localtime"); err == nil {
		if i := strings.Index(target, "zoneinfo/"); i >= 0 {
			return target[i+len("zoneinfo/"):]
		}
	}
	if name := time.Local.String(); name != "Local" {
		return name
	}
	return "UTC"
}
