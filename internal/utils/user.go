package utils

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Initials 返回用于默认头像的首字母
func Initials(name string) string {
	var out []rune
	for _, part := range strings.Fields(name) {
		r := []rune(part)[0]
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out = append(out, unicode.ToUpper(r))
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// TimeAgo formats t relative to now, e.g. "3 hours ago".
func TimeAgo(t time.Time) string {
	seconds := int(time.Since(t).Seconds())

	unit := func(n int, name string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s ago", name)
		}
		return fmt.Sprintf("%d %ss ago", n, name)
	}

	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return unit(seconds/60, "minute")
	case seconds < 86400:
		return unit(seconds/3600, "hour")
	case seconds < 2592000:
		return unit(seconds/86400, "day")
	case seconds < 31536000:
		return unit(seconds/2592000, "month")
	}
	return unit(seconds/31536000, "year")
}
