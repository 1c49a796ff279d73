package windows

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoLayout = "2006-01-02T15:04:05.999999Z07:00"

// PowerShell 5 serializes DateTime values as "/Date(1700000000000)/".
var jsonDateRE = regexp.MustCompile(`^/Date\((-?\d+)([+-]\d{4})?\)/$`)

// FormatCIMDateTime converts a CIM datetime ("yyyymmddHHMMSS.mmmmmmsUUU",
// the offset being minutes from UTC) to ISO-8601. Values that cannot be
// parsed are returned trimmed but otherwise unchanged.
func FormatCIMDateTime(value string) string {
	text := strings.TrimSpace(value)
	if text == "" {
		return ""
	}
	if m := jsonDateRE.FindStringSubmatch(strings.ReplaceAll(text, `\/`, "/")); m != nil {
		ms, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return text
		}
		return time.UnixMilli(ms).UTC().Format(isoLayout)
	}
	if len(text) < 14 {
		return text
	}
	t, err := time.Parse("20060102150405", text[:14])
	if err != nil {
		return text
	}
	if len(text) >= 21 && text[14] == '.' {
		if micro, err := strconv.Atoi(text[15:21]); err == nil {
			t = t.Add(time.Duration(micro) * time.Microsecond)
		}
	}
	if len(text) >= 25 && (text[21] == '+' || text[21] == '-') {
		minutes, err := strconv.Atoi(text[22:25])
		if err == nil {
			offset := minutes * 60
			if text[21] == '-' {
				offset = -offset
			}
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(),
				t.Nanosecond(), time.FixedZone("", offset))
		}
	}
	return t.Format(isoLayout)
}

// FormatInstallDate converts the yyyymmdd (or CIM datetime) install date
// of a product to an ISO date. Anything else yields "".
func FormatInstallDate(value string) string {
	text := strings.TrimSpace(value)
	if (len(text) != 8 && len(text) != 14) || !allDigits(text) {
		return ""
	}
	t, err := time.Parse("20060102", text[:8])
	if err != nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
