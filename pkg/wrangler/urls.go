package wrangler

import "regexp"

// urlShape is one accepted output format of the deploy tool.
type urlShape struct {
	name  string
	re    *regexp.Regexp
	group int // submatch index carrying the URL
}

// urlShapes is the ordered, versioned list of output shapes accepted from
// the deploy tool. The tool offers no structured result for this command, so
// scraping its free text is an inherent fragility; keeping the list explicit
// and test-covered means format drift shows up as a test failure instead of
// a silent mis-parse.
var urlShapes = []urlShape{
	{"workers.dev hostname", regexp.MustCompile(`https://[a-zA-Z0-9.-]+\.workers\.dev[^\s"']*`), 0},
	{"pages.dev hostname", regexp.MustCompile(`https://[a-zA-Z0-9.-]+\.pages\.dev[^\s"']*`), 0},
	{"deployed-to phrase", regexp.MustCompile(`Deployed to (https://[^\s"']+)`), 1},
	{"published phrase", regexp.MustCompile(`Published [^\s]+ \((https://[^\s)]+)\)`), 1},
}

// ParseDeployURL scans tool output for a deployment URL, trying each
// accepted shape in order.
func ParseDeployURL(output string) (string, bool) {
	for _, shape := range urlShapes {
		match := shape.re.FindStringSubmatch(output)
		if match == nil || len(match) <= shape.group {
			continue
		}
		return match[shape.group], true
	}
	return "", false
}
