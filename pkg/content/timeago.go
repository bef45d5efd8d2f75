package content

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeAgo renders a post date as a coarse relative label. Dates arrive
// either as DD/MM/YYYY or as anything time.Parse accepts in RFC 3339;
// unparseable input yields an empty string.
func TimeAgo(dateString string, now time.Time) string {
	if dateString == "" {
		return ""
	}
	var t time.Time
	if strings.Contains(dateString, "/") {
		parts := strings.Split(dateString, "/")
		if len(parts) != 3 {
			return ""
		}
		day, err1 := strconv.Atoi(parts[0])
		month, err2 := strconv.Atoi(parts[1])
		year, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return ""
		}
		t = time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	} else {
		var err error
		t, err = time.Parse(time.RFC3339, dateString)
		if err != nil {
			return ""
		}
	}

	elapsed := now.Sub(t)
	if elapsed < 0 {
		elapsed = 0
	}
	days := elapsed.Hours() / 24
	switch {
	case elapsed < time.Minute:
		return plural(int(elapsed.Seconds()), "second")
	case elapsed < time.Hour:
		return plural(int(elapsed.Minutes()), "minute")
	case days < 1:
		return plural(int(elapsed.Hours()), "hour")
	case days < 7:
		return fmt.Sprintf("%d days ago", int(days))
	case days < 30:
		return plural(int(days/7), "week")
	case days < 365:
		return plural(int(days/30), "month")
	default:
		return plural(int(days/365), "year")
	}
}

func plural(n int, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss ago", n, unit)
	}
	return fmt.Sprintf("%d %s ago", n, unit)
}
