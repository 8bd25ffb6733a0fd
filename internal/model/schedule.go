package model

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ParseCron validates a 5 field cron expression or a @macro.
func ParseCron(expr string) error {
	e := strings.TrimSpace(expr)
	if e == "" {
		return fmt.Errorf("empty cron expression")
	}

	// ParseStandard handles @hourly, @every 6h and friends.
	if strings.HasPrefix(e, "@") {
		_, err := cron.ParseStandard(e)
		return err
	}

	parser5 := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser5.Parse(e)
	return err
}

var everyRx = regexp.MustCompile(`^(\d+d)?(\d+h)?(\d+m)?(\d+s)?$`)

// ParseEvery parses schedule intervals like "1d12h" or "30m" into a
// time.Duration. Segments must appear in day/hour/minute/second order and
// the empty string is rejected.
func ParseEvery(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("empty interval")
	}
	m := everyRx.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.New("invalid interval format")
	}
	var total time.Duration
	for _, seg := range m[1:] {
		if seg == "" {
			continue
		}
		val, err := strconv.ParseInt(seg[:len(seg)-1], 10, 64)
		if err != nil {
			return 0, errors.New("invalid number in " + seg)
		}
		var add time.Duration
		switch seg[len(seg)-1] {
		case 'd':
			add = 24 * time.Hour * time.Duration(val)
		case 'h':
			add = time.Hour * time.Duration(val)
		case 'm':
			add = time.Minute * time.Duration(val)
		case 's':
			add = time.Second * time.Duration(val)
		default:
			return 0, errors.New("unknown unit in " + seg)
		}
		if add > 0 && total > time.Duration(math.MaxInt64)-add {
			return 0, errors.New("interval overflow")
		}
		total += add
	}
	if total == 0 {
		return 0, errors.New("zero interval")
	}
	return total, nil
}
