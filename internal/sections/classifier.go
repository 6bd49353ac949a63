package sections

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Canonical section labels
const (
	Abstract     = "Abstract"
	Introduction = "Introduction"
	RelatedWork  = "Related Work"
	Method       = "Method"
	Experiments  = "Experiments"
	Conclusion   = "Conclusion"

	stop = "__stop__"
)

// TextChunk is one unit of paper text handed to the writer. Label is empty
// for positional chunks.
type TextChunk struct {
	Label string
	Body  string
}

const (
	maxHeaderLength      = 100
	maxHeaderPunctuation = 2
	maxLooseMatchWords   = 6
)

var synonyms = map[string]string{
	"abstract": Abstract,
	"summary":  Abstract,

	"introduction": Introduction,
	"intro":        Introduction,
	"motivation":   Introduction,
	"overview":     Introduction,

	"related work":       RelatedWork,
	"related works":      RelatedWork,
	"background":         RelatedWork,
	"prior work":         RelatedWork,
	"literature review":  RelatedWork,
	"related research":   RelatedWork,
	"preliminaries":      RelatedWork,
	"related literature": RelatedWork,

	"method":          Method,
	"methods":         Method,
	"methodology":     Method,
	"approach":        Method,
	"our approach":    Method,
	"framework":       Method,
	"proposed method": Method,
	"model":           Method,
	"architecture":    Method,

	"experiments":          Experiments,
	"experiment":           Experiments,
	"experimental results": Experiments,
	"experimental setup":   Experiments,
	"evaluation":           Experiments,
	"results":              Experiments,
	"result":               Experiments,
	"analysis":             Experiments,
	"eval":                 Experiments,
	"exps":                 Experiments,

	"conclusion":         Conclusion,
	"conclusions":        Conclusion,
	"discussion":         Conclusion,
	"future work":        Conclusion,
	"concluding remarks": Conclusion,
	"limitations":        Conclusion,

	"references":       stop,
	"reference":        stop,
	"refs":             stop,
	"bibliography":     stop,
	"appendix":         stop,
	"appendices":       stop,
	"acknowledgements": stop,
	"acknowledgments":  stop,
	"acknowledgement":  stop,
	"acknowledgment":   stop,
}

// looseKeys match anywhere inside a short header
var looseKeys = []string{
	"related work",
	"experimental",
	"methodology",
	"conclusion",
	"introduction",
	"evaluation",
}

// prefixConnectors may follow a matched key in a longer header, e.g.
// "methods and materials" or "experiments on imagenet".
var prefixConnectors = map[string]bool{
	"and": true, "&": true, "of": true, "for": true, "on": true,
	"in": true, "with": true, "to": true, "setup": true, "details": true,
}

var (
	shortKeys  []string
	prefixKeys []string

	leadingMarkerRe = regexp.MustCompile(`^[\s#*\-•·>]+`)
	numberingRe     = regexp.MustCompile(`^(?:\d+(?:\.\d+)*\.?|[ivx]+\.|[a-h]\.)\s*`)
	trailingPunctRe = regexp.MustCompile(`[\s:.\-–]+$`)
	subLabelRe      = regexp.MustCompile(`^(?:[a-z]|\d+|[ivx]+)$`)
)

func init() {
	for key := range synonyms {
		if utf8.RuneCountInString(key) <= 4 {
			shortKeys = append(shortKeys, key)
		} else {
			prefixKeys = append(prefixKeys, key)
		}
	}
	sort.Strings(shortKeys)
	sort.Slice(prefixKeys, func(i, j int) bool {
		if len(prefixKeys[i]) != len(prefixKeys[j]) {
			return len(prefixKeys[i]) > len(prefixKeys[j])
		}
		return prefixKeys[i] < prefixKeys[j]
	})
}

// Classify splits paper text into canonical sections in first-appearance
// order. Text before the first recognized header is discarded and scanning
// stops at references, appendices or acknowledgements. An empty result means
// no header was recognized.
func Classify(text string) []TextChunk {
	var (
		order   []string
		bodies  = make(map[string][]string)
		current string
	)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		if isHeaderCandidate(line) {
			if label, ok := matchHeader(normalizeHeader(line)); ok {
				if label == stop {
					break
				}
				if _, seen := bodies[label]; !seen {
					order = append(order, label)
					bodies[label] = nil
				} else {
					bodies[label] = append(bodies[label], "")
				}
				current = label
				continue
			}
		}

		if current == "" {
			continue
		}
		bodies[current] = append(bodies[current], line)
	}

	chunks := make([]TextChunk, 0, len(order))
	for _, label := range order {
		chunks = append(chunks, TextChunk{Label: label, Body: joinBody(bodies[label])})
	}
	return chunks
}

// isHeaderCandidate applies the shape test: short, little punctuation, one line.
func isHeaderCandidate(line string) bool {
	if line == "" || strings.Contains(line, "\n") {
		return false
	}
	if utf8.RuneCountInString(line) > maxHeaderLength {
		return false
	}
	return strings.Count(line, ",")+strings.Count(line, ".")+strings.Count(line, ";")+strings.Count(line, ":") <= maxHeaderPunctuation
}

// normalizeHeader strips markdown markers, bullets and section numbering and
// lower-cases the rest.
func normalizeHeader(line string) string {
	n := strings.ToLower(strings.TrimSpace(line))
	n = leadingMarkerRe.ReplaceAllString(n, "")
	n = numberingRe.ReplaceAllString(n, "")
	n = leadingMarkerRe.ReplaceAllString(n, "")
	n = strings.ReplaceAll(n, "*", "")
	n = trailingPunctRe.ReplaceAllString(n, "")
	return strings.Join(strings.Fields(n), " ")
}

// matchHeader maps a normalized header to its canonical label.
func matchHeader(n string) (string, bool) {
	if n == "" {
		return "", false
	}

	if label, ok := synonyms[n]; ok {
		return label, true
	}

	if len(strings.Fields(n)) <= maxLooseMatchWords {
		for _, key := range looseKeys {
			if strings.Contains(n, key) {
				return synonyms[key], true
			}
		}
	}

	for _, key := range shortKeys {
		if firstWord(n) == key {
			return synonyms[key], true
		}
	}

	for _, key := range prefixKeys {
		if !strings.HasPrefix(n, key) {
			continue
		}
		rest := n[len(key):]
		if next, _ := utf8.DecodeRuneInString(rest); rest != "" && (unicode.IsLetter(next) || unicode.IsDigit(next)) {
			continue
		}
		if prefixRemainderOK(strings.TrimSpace(rest)) {
			return synonyms[key], true
		}
	}

	return "", false
}

// prefixRemainderOK accepts what may follow a key in a real header: nothing,
// punctuation, a connector word or a label such as "A", "1" or "II".
func prefixRemainderOK(rest string) bool {
	if rest == "" {
		return true
	}
	first, _ := utf8.DecodeRuneInString(rest)
	if strings.ContainsRune(":-–(&/", first) {
		return true
	}
	word := firstWord(rest)
	return prefixConnectors[word] || subLabelRe.MatchString(word)
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimRight(fields[0], ".:;,")
}

// joinBody keeps paragraph breaks but collapses runs of blank lines.
func joinBody(lines []string) string {
	var out []string
	blank := false
	for _, line := range lines {
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
