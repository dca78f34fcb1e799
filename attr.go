package readcache

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	writeRegexp = regexp.MustCompile(`(?i)^(INSERT|UPDATE|DELETE)\b`)
	attrRegexp  = regexp.MustCompile(`@cache-max-rows (\d+)`)
)

type statementKind int

const (
	// plain statements bypass the cache entirely
	statementPlain statementKind = iota
	statementWrite
	statementCachedRead
)

type attributes struct {
	maxRows int
}

type classifier struct {
	marker string // lower cased
}

func newClassifier(marker string) classifier {
	return classifier{marker: strings.ToLower(marker)}
}

func (c classifier) classify(query string) statementKind {
	if writeRegexp.MatchString(strings.TrimSpace(query)) {
		return statementWrite
	}
	if strings.Contains(strings.ToLower(query), c.marker) {
		return statementCachedRead
	}
	return statementPlain
}

// getAttrs parses optional cache attributes. A missing or invalid
// @cache-max-rows leaves maxRows at 0 (unlimited).
func getAttrs(query string) attributes {
	var attrs attributes
	match := attrRegexp.FindStringSubmatch(query)
	if len(match) != 2 {
		return attrs
	}
	maxRows, err := strconv.Atoi(match[1])
	if err == nil {
		attrs.maxRows = maxRows
	}
	return attrs
}
