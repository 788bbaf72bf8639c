package svnclient

import (
	"strconv"
	"strings"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
)

// Info is the parsed result of `svn info --xml`.
type Info struct {
	RootURL   string
	UUID      string
	LatestRev int64
	URL       string
}

// LogEntry is one `<logentry>` from `svn log --xml`.
type LogEntry struct {
	Revision     int64
	Author       string
	Date         string
	Message      string
	ChangedPaths []ChangedPath
}

// ChangedPath is one `<path>` inside a log entry's `<paths>` block.
type ChangedPath struct {
	Action       string
	Path         string
	CopyFromPath string
	CopyFromRev  int64
	HasCopyFrom  bool
}

// DiffEntry is one `<path>` from `svn diff --summarize --xml`.
type DiffEntry struct {
	Kind         string
	PropsChanged bool
	Path         string
	Item         string
}

// ParseInfo parses the XML output of `svn info --xml`.
func ParseInfo(xml string) (*Info, error) {
	url, ok := extractTagContent(xml, "url")
	if !ok {
		return nil, &coreerrors.SvnXMLParseError{Detail: "missing <url> in svn info"}
	}
	rootURL, ok := extractTagContent(xml, "root")
	if !ok {
		return nil, &coreerrors.SvnXMLParseError{Detail: "missing <root> in svn info"}
	}
	uuid, ok := extractTagContent(xml, "uuid")
	if !ok {
		return nil, &coreerrors.SvnXMLParseError{Detail: "missing <uuid> in svn info"}
	}

	revStr, ok := extractAttribute(xml, "entry", "revision")
	if !ok {
		revStr, ok = extractAttribute(xml, "commit", "revision")
	}
	if !ok {
		return nil, &coreerrors.SvnXMLParseError{Detail: "missing revision in svn info"}
	}
	rev, err := strconv.ParseInt(revStr, 10, 64)
	if err != nil {
		return nil, &coreerrors.SvnXMLParseError{Detail: "missing revision in svn info"}
	}

	return &Info{RootURL: rootURL, UUID: uuid, LatestRev: rev, URL: url}, nil
}

// ParseLog parses the XML output of `svn log --xml`. Entries with a
// missing or unparseable revision attribute are silently skipped.
func ParseLog(xml string) ([]LogEntry, error) {
	var entries []LogEntry
	for _, part := range splitSkipFirst(xml, "<logentry") {
		entryXML := part
		if pos := strings.Index(part, "</logentry>"); pos >= 0 {
			entryXML = part[:pos]
		}

		revStr, ok := extractAttributeFromFragment(entryXML, "revision")
		if !ok {
			continue
		}
		rev, err := strconv.ParseInt(revStr, 10, 64)
		if err != nil {
			continue
		}

		author, _ := extractTagContent(entryXML, "author")
		date, _ := extractTagContent(entryXML, "date")
		message, _ := extractTagContent(entryXML, "msg")

		entries = append(entries, LogEntry{
			Revision:     rev,
			Author:       author,
			Date:         date,
			Message:      message,
			ChangedPaths: parseChangedPaths(entryXML),
		})
	}
	return entries, nil
}

// ParseDiffSummarize parses the XML output of `svn diff --summarize --xml`.
func ParseDiffSummarize(xml string) ([]DiffEntry, error) {
	var entries []DiffEntry
	for _, part := range splitSkipFirst(xml, "<path ") {
		pos := strings.Index(part, "</path>")
		if pos < 0 {
			continue
		}
		fragment := part[:pos]

		item, _ := extractAttributeFromFragment(fragment, "item")
		kindAttr, _ := extractAttributeFromFragment(fragment, "kind")
		props, _ := extractAttributeFromFragment(fragment, "props")
		path := tagTextAfterOpen(fragment)

		entries = append(entries, DiffEntry{
			Kind:         item,
			PropsChanged: props != "none",
			Path:         path,
			Item:         kindAttr,
		})
	}
	return entries, nil
}

func parseChangedPaths(entryXML string) []ChangedPath {
	start := strings.Index(entryXML, "<paths>")
	if start < 0 {
		return nil
	}
	rest := entryXML[start:]
	end := strings.Index(rest, "</paths>")
	if end < 0 {
		return nil
	}
	pathsBlock := rest[:end]

	var paths []ChangedPath
	for _, part := range splitSkipFirst(pathsBlock, "<path") {
		pos := strings.Index(part, "</path>")
		if pos < 0 {
			continue
		}
		fragment := part[:pos]

		action, _ := extractAttributeFromFragment(fragment, "action")
		copyFromPath, hasCopyFrom := extractAttributeFromFragment(fragment, "copyfrom-path")
		var copyFromRev int64
		if revStr, ok := extractAttributeFromFragment(fragment, "copyfrom-rev"); ok {
			copyFromRev, _ = strconv.ParseInt(revStr, 10, 64)
		}

		paths = append(paths, ChangedPath{
			Action:       action,
			Path:         tagTextAfterOpen(fragment),
			CopyFromPath: copyFromPath,
			CopyFromRev:  copyFromRev,
			HasCopyFrom:  hasCopyFrom,
		})
	}
	return paths
}

// StatusEntry is one line of `svn status` plain-text output.
type StatusEntry struct {
	Status string // first status column: "M", "A", "D", "?", "!", "C", ...
	Path   string
}

// ParseSvnStatusEntries parses the plain-text output of `svn status`:
// each line's first column is the item's status, followed by six more
// single-character columns (history, switched, lock, tree-conflict,
// and so on) reproduced verbatim by the CLI, then whitespace, then the
// path. Blank lines are skipped. ParseSvnStatus (status.go) is the
// add/delete split the sync engine uses.
func ParseSvnStatusEntries(out string) []StatusEntry {
	var entries []StatusEntry
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 8 {
			continue
		}
		status := string(line[0])
		if status == " " {
			continue
		}
		path := strings.TrimSpace(line[7:])
		if path == "" {
			continue
		}
		entries = append(entries, StatusEntry{Status: status, Path: path})
	}
	return entries
}

// splitSkipFirst splits s on sep and drops the leading chunk before
// the first separator, matching the original's `split(sep).skip(1)`.
func splitSkipFirst(s, sep string) []string {
	parts := strings.Split(s, sep)
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

// tagTextAfterOpen returns the trimmed text following the first '>'
// in fragment — the element's text content once its opening tag (with
// attributes) has been consumed.
func tagTextAfterOpen(fragment string) string {
	pos := strings.IndexByte(fragment, '>')
	if pos < 0 {
		return ""
	}
	return strings.TrimSpace(fragment[pos+1:])
}

// extractTagContent finds the first <tag>...</tag> (or <tag attr="...">...</tag>)
// in xml, skipping false prefix matches like <urlencoded> when looking
// for <url>, and returns its unescaped text content.
func extractTagContent(xml, tag string) (string, bool) {
	open := "<" + tag
	closeTag := "</" + tag + ">"
	searchFrom := 0

	for {
		relPos := strings.Index(xml[searchFrom:], open)
		if relPos < 0 {
			return "", false
		}
		startPos := searchFrom + relPos
		afterOpen := xml[startPos+len(open):]

		if len(afterOpen) > 0 {
			ch := afterOpen[0]
			if ch != '>' && !isASCIISpace(ch) {
				searchFrom = startPos + len(open)
				continue
			}
		}

		gtPos := strings.IndexByte(afterOpen, '>')
		if gtPos < 0 {
			return "", false
		}
		content := afterOpen[gtPos+1:]
		endPos := strings.Index(content, closeTag)
		if endPos < 0 {
			return "", false
		}
		return xmlUnescape(strings.TrimSpace(content[:endPos])), true
	}
}

func isASCIISpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// xmlUnescape unescapes the five standard XML entities.
func xmlUnescape(s string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(s)
}

// extractAttribute finds the first <tag ...> element in xml and
// returns the value of attr within its opening tag.
func extractAttribute(xml, tag, attr string) (string, bool) {
	open := "<" + tag
	startPos := strings.Index(xml, open)
	if startPos < 0 {
		return "", false
	}
	afterTag := xml[startPos+len(open):]
	tagEnd := strings.IndexByte(afterTag, '>')
	if tagEnd < 0 {
		return "", false
	}
	return extractAttrFromStr(afterTag[:tagEnd], attr)
}

func extractAttributeFromFragment(fragment, attr string) (string, bool) {
	return extractAttrFromStr(fragment, attr)
}

// extractAttrFromStr looks for attr="..." or attr='...' within s.
func extractAttrFromStr(s, attr string) (string, bool) {
	patternDQ := attr + `="`
	if pos := strings.Index(s, patternDQ); pos >= 0 {
		after := s[pos+len(patternDQ):]
		if end := strings.IndexByte(after, '"'); end >= 0 {
			return after[:end], true
		}
		return "", false
	}
	patternSQ := attr + `='`
	if pos := strings.Index(s, patternSQ); pos >= 0 {
		after := s[pos+len(patternSQ):]
		if end := strings.IndexByte(after, '\''); end >= 0 {
			return after[:end], true
		}
		return "", false
	}
	return "", false
}
