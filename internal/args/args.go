// Package args turns the free-form tail of a bot command into a typed task
// request. Parsing is schema driven: a flag is either boolean or captures
// every following token up to the next recognized flag.
package args

import (
	"strconv"
	"strings"
)

// Flag names recognized by the mirror/leech command family.
const (
	FlagMulti    = "-i"
	FlagSameDir  = "-m"
	FlagSeed     = "-d"
	FlagJoin     = "-j"
	FlagSelect   = "-s"
	FlagBulk     = "-b"
	FlagName     = "-n"
	FlagExtract  = "-e"
	FlagCompress = "-z"
	FlagUpload   = "-up"
	FlagRcFlags  = "-rcf"
	FlagAuthUser = "-au"
	FlagAuthPass = "-ap"

	// KeyLink is the reserved schema key for the positional link value.
	KeyLink = "link"
)

// pureBool flags never consume a value token.
var pureBool = map[string]bool{
	FlagSelect: true,
	FlagJoin:   true,
}

// boolCapable flags fall back to true when no value token follows them.
var boolCapable = map[string]bool{
	FlagBulk:     true,
	FlagExtract:  true,
	FlagCompress: true,
	FlagSelect:   true,
	FlagJoin:     true,
	FlagSeed:     true,
}

// Options is the mutable option schema: flag name to bool or string default,
// plus the reserved KeyLink entry for the positional link.
type Options map[string]any

// NewSchema returns the default schema for the mirror/leech commands.
func NewSchema() Options {
	return Options{
		KeyLink:      "",
		FlagMulti:    "0",
		FlagSameDir:  "",
		FlagSeed:     false,
		FlagJoin:     false,
		FlagSelect:   false,
		FlagBulk:     false,
		FlagName:     "",
		FlagExtract:  false,
		FlagCompress: false,
		FlagUpload:   "",
		FlagRcFlags:  "",
		FlagAuthUser: "",
		FlagAuthPass: "",
	}
}

// Parse scans tokens left to right and fills base in place, returning it.
// A token matching a known flag either sets the flag to true or greedily
// captures all following tokens up to the next recognized flag, joined by
// single spaces. An empty capture never overwrites the flag's default. The
// first token, when it is not a flag name, becomes the positional link.
func Parse(items []string, base Options) Options {
	if len(items) == 0 {
		return base
	}
	t := len(items)
	for i := 0; i < t; i++ {
		part := items[i]
		if _, known := base[part]; !known || part == KeyLink {
			continue
		}
		switch {
		case pureBool[part]:
			base[part] = true
		case i == t-1:
			if boolCapable[part] {
				base[part] = true
			}
		default:
			var captured []string
			for j := i + 1; j < t; j++ {
				item := items[j]
				if _, isFlag := base[item]; isFlag && item != KeyLink {
					if boolCapable[part] {
						base[part] = true
					}
					break
				}
				captured = append(captured, item)
				i++
			}
			if len(captured) > 0 {
				base[part] = strings.Join(captured, " ")
			}
		}
	}
	if _, isFlag := base[items[0]]; !isFlag || items[0] == KeyLink {
		base[KeyLink] = items[0]
	}
	return base
}

// TaskArgs is the resolved, typed form of one parsed command line.
type TaskArgs struct {
	Link     string
	Multi    int
	SameDir  string
	Seed     bool
	Ratio    string
	SeedTime string
	Join     bool
	Select   bool
	Bulk     bool
	BulkFrom int
	BulkTo   int
	Name     string
	Extract  bool
	Compress bool
	Upload   string
	RcFlags  string
	AuthUser string
	AuthPass string
}

// Resolve converts a populated option map into TaskArgs, splitting the
// overloaded seed (ratio:time) and bulk (start:end) values. A multiplicity
// that does not parse as a positive integer silently resolves to zero so that
// auto-chained follow-up commands survive transient formatting issues.
func Resolve(opts Options) TaskArgs {
	ta := TaskArgs{
		Link:     asString(opts[KeyLink]),
		SameDir:  asString(opts[FlagSameDir]),
		Name:     asString(opts[FlagName]),
		Upload:   asString(opts[FlagUpload]),
		RcFlags:  asString(opts[FlagRcFlags]),
		AuthUser: asString(opts[FlagAuthUser]),
		AuthPass: asString(opts[FlagAuthPass]),
		Join:     asBool(opts[FlagJoin]),
		Select:   asBool(opts[FlagSelect]),
		Extract:  asBool(opts[FlagExtract]),
		Compress: asBool(opts[FlagCompress]),
	}

	if n, err := strconv.Atoi(asString(opts[FlagMulti])); err == nil && n > 0 {
		ta.Multi = n
	}

	switch v := opts[FlagSeed].(type) {
	case bool:
		ta.Seed = v
	case string:
		ta.Seed = true
		parts := strings.SplitN(v, ":", 2)
		ta.Ratio = parts[0]
		if len(parts) == 2 {
			ta.SeedTime = parts[1]
		}
	}

	switch v := opts[FlagBulk].(type) {
	case bool:
		ta.Bulk = v
	case string:
		ta.Bulk = true
		parts := strings.SplitN(v, ":", 2)
		ta.BulkFrom = atoiOrZero(parts[0])
		if len(parts) == 2 {
			ta.BulkTo = atoiOrZero(parts[1])
		}
	}

	return ta
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
