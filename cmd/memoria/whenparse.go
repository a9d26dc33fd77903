package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var whenParser = newWhenParser()

func newWhenParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// parseWhen resolves a human time expression ("in 2 hours", "tomorrow at
// 9am") or a plain integer count of seconds into an absolute time, relative
// to now. Used for --ttl throughout this CLI, where a bare number of seconds
// counts forward into the future.
func parseWhen(s string) (time.Time, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Now().Add(time.Duration(secs) * time.Second), nil
	}
	r, err := whenParser.Parse(s, time.Now())
	if err != nil {
		return time.Time{}, err
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not parse time expression %q", s)
	}
	return r.Time, nil
}

// parseWhenAgo resolves the same expressions as parseWhen, except a bare
// integer counts seconds into the past rather than the future. Used for
// --older-than, where "3600" should mean "an hour ago", not "an hour from
// now"; phrases like "30 days ago" already resolve to the past via the
// underlying when parser and pass through unchanged.
func parseWhenAgo(s string) (time.Time, error) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Now().Add(-time.Duration(secs) * time.Second), nil
	}
	return parseWhen(s)
}
