package normalize

import (
	"regexp"
	"strings"
)

var (
	voiceTagRe   = regexp.MustCompile(`<v\s+([^>]+)>`)
	markupTagRe  = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	cueNumberRe  = regexp.MustCompile(`^\d+$`)
	timestampRe  = regexp.MustCompile(`-->`)
	cueSettingRe = regexp.MustCompile(`^(align|line|position|size|vertical):`)
)

// stripSubtitles reduces WebVTT or SRT text to dialogue lines. Headers, cue
// identifiers, timestamps, NOTE/STYLE blocks, and cue settings are dropped.
// Voice spans keep their speaker label as a "Speaker: text" prefix.
func stripSubtitles(text string) string {
	var out []string
	skipBlock := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			skipBlock = false
			continue
		case skipBlock:
			continue
		case strings.HasPrefix(line, "WEBVTT"):
			continue
		case strings.HasPrefix(line, "NOTE") || line == "STYLE" || line == "REGION":
			skipBlock = true
			continue
		case timestampRe.MatchString(line):
			continue
		case cueNumberRe.MatchString(line):
			continue
		case cueSettingRe.MatchString(line):
			continue
		}

		// <v Alice>Hello</v> becomes "Alice: Hello".
		line = voiceTagRe.ReplaceAllString(line, "$1: ")
		line = markupTagRe.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}

	return strings.Join(out, "\n")
}
