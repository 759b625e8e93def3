// Package dateparse resolves the French date-range headers printed on the
// duty-roster sources ("SEMAINE DU SAMEDI 07 AU VENDREDI 13 FEVRIER 2026")
// into concrete calendar dates. The bulletins have used three textual
// grammars over the years and the directory page uses a numeric one; all
// four are recognized here, most specific first.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ParseError reports that no recognized grammar matched, or that the
// resolved range was inverted. Both are fatal for the containing document
// because everything downstream needs its date context.
type ParseError struct {
	Line   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse week range %q: %s", e.Line, e.Reason)
}

var months = map[string]time.Month{
	"JANVIER": time.January,
	"FEVRIER": time.February, "FÉVRIER": time.February,
	"MARS":    time.March,
	"AVRIL":   time.April,
	"MAI":     time.May,
	"JUIN":    time.June,
	"JUILLET": time.July,
	"AOUT":    time.August, "AOÛT": time.August,
	"SEPTEMBRE": time.September,
	"OCTOBRE":   time.October,
	"NOVEMBRE":  time.November,
	"DECEMBRE":  time.December, "DÉCEMBRE": time.December,
}

// acc covers the accented capitals the bulletins print in weekday and
// month words.
const acc = `A-ZÉÈÊËÂÀÎÏÔÖÛÜÇ`

// Grammar C, the oldest: day month year on both sides, possibly spanning
// two years across December.
var weekReC = regexp.MustCompile(`(?i)SEMAINE\s+DU\s+` +
	`(?:[` + acc + `]+\s+)?(\d{1,2})\s+([` + acc + `]+)\s+(\d{4})\s+` +
	`AU\s+` +
	`(?:[` + acc + `]+\s+)?(\d{1,2})\s+([` + acc + `]+)\s+(\d{4})`)

// Grammar B: month on both sides, single trailing year.
var weekReB = regexp.MustCompile(`(?i)SEMAINE\s+DU\s+` +
	`(?:[` + acc + `]+\s+)?(\d{1,2})\s+([` + acc + `]+)\s+` +
	`AU\s+` +
	`(?:[` + acc + `]+\s+)?(\d{1,2})\s+([` + acc + `]+)\s+(\d{4})`)

// Grammar A: shared month and year after the end day.
var weekReA = regexp.MustCompile(`(?i)SEMAINE\s+DU\s+` +
	`(?:[` + acc + `]+\s+)?(\d{1,2})\s+` +
	`AU\s+` +
	`(?:[` + acc + `]+\s+)?(\d{1,2})\s+([` + acc + `]+)(?:\s+(\d{4}))?`)

// Numeric grammar used by the HTML directory page.
var weekReNumeric = regexp.MustCompile(`(?i)Semaine\s+du\s+` +
	`(\d{2})/(\d{2})/(\d{4})\s+au\s+(\d{2})/(\d{2})/(\d{4})`)

// WeekRange parses an inclusive date range out of line. contextYear fills
// in when the text omits the year entirely (grammar A without a printed
// year). Dates come back at UTC midnight.
func WeekRange(line string, contextYear int) (start, end time.Time, err error) {
	line = strings.TrimSpace(line)

	if m := weekReNumeric.FindStringSubmatch(line); m != nil {
		start, ok1 := civil(atoi(m[3]), time.Month(atoi(m[2])), atoi(m[1]))
		end, ok2 := civil(atoi(m[6]), time.Month(atoi(m[5])), atoi(m[4]))
		if !ok1 || !ok2 {
			return zero(line, "invalid calendar date")
		}
		return checked(line, start, end)
	}

	if m := weekReC.FindStringSubmatch(line); m != nil {
		ms, ok1 := monthByName(m[2])
		me, ok2 := monthByName(m[5])
		if !ok1 || !ok2 {
			return start, end, &ParseError{Line: line, Reason: "unknown month name"}
		}
		start, ok1 := civil(atoi(m[3]), ms, atoi(m[1]))
		end, ok2 := civil(atoi(m[6]), me, atoi(m[4]))
		if !ok1 || !ok2 {
			return zero(line, "invalid calendar date")
		}
		return checked(line, start, end)
	}

	if m := weekReB.FindStringSubmatch(line); m != nil {
		ms, ok1 := monthByName(m[2])
		me, ok2 := monthByName(m[4])
		if ok1 && ok2 {
			year := atoi(m[5])
			start, ok1 := civil(year, ms, atoi(m[1]))
			end, ok2 := civil(year, me, atoi(m[3]))
			if !ok1 || !ok2 {
				return zero(line, "invalid calendar date")
			}
			// December -> January bulletins share the January year; the
			// start side rolls back.
			if start.After(end) {
				start, _ = civil(year-1, ms, atoi(m[1]))
			}
			return checked(line, start, end)
		}
		// fall through: the "month" words were weekday names, retry as A
	}

	if m := weekReA.FindStringSubmatch(line); m != nil {
		month, ok := monthByName(m[3])
		if !ok {
			return start, end, &ParseError{Line: line, Reason: "unknown month name"}
		}
		year := contextYear
		if m[4] != "" {
			year = atoi(m[4])
		}
		if year == 0 {
			return start, end, &ParseError{Line: line, Reason: "no year printed and no context year"}
		}
		dayStart, dayEnd := atoi(m[1]), atoi(m[2])
		end, okEnd := civil(year, month, dayEnd)
		okStart := false
		if dayStart > dayEnd {
			// Start falls in the prior month even though only the end
			// side names one ("28 AU 06 MARS" starts in February).
			prevYear, prevMonth := year, month-1
			if prevMonth < time.January {
				prevYear, prevMonth = year-1, time.December
			}
			start, okStart = civil(prevYear, prevMonth, dayStart)
		} else {
			start, okStart = civil(year, month, dayStart)
		}
		if !okStart || !okEnd {
			return zero(line, "invalid calendar date")
		}
		return checked(line, start, end)
	}

	return start, end, &ParseError{Line: line, Reason: "no recognized pattern"}
}

// Matches reports whether line looks like a week header under any of the
// recognized grammars, without resolving it.
func Matches(line string) bool {
	return weekReNumeric.MatchString(line) || weekReC.MatchString(line) ||
		weekReB.MatchString(line) || weekReA.MatchString(line)
}

func monthByName(name string) (time.Month, bool) {
	m, ok := months[strings.ToUpper(name)]
	return m, ok
}

// civil builds a UTC midnight date and rejects day-of-month overflow
// that time.Date would silently normalize ("31 FEVRIER" must not become
// March 3).
func civil(year int, month time.Month, day int) (time.Time, bool) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return t, t.Year() == year && t.Month() == month && t.Day() == day
}

func checked(line string, start, end time.Time) (time.Time, time.Time, error) {
	if start.After(end) {
		return zero(line, "inverted range")
	}
	return start, end, nil
}

func zero(line, reason string) (time.Time, time.Time, error) {
	return time.Time{}, time.Time{}, &ParseError{Line: line, Reason: reason}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
