// Package scoring turns raw issue and pull-request snapshots into point
// values. Extraction and calculation are pure functions; persistence lives in
// the ledger.
package scoring

import (
	"regexp"
	"strconv"

	"github.com/contribscore/internal/domain"
)

// issueRefPattern is the wire contract for issue references: '#' followed by
// one or more digits, terminated at a word boundary. Downstream scoring
// depends on this pattern byte-for-byte.
var issueRefPattern = regexp.MustCompile(`#(\d+)\b`)

// LevelRef ties a referenced issue to its difficulty level and point value.
type LevelRef struct {
	Issue  int
	Level  string
	Points int64
}

// IssueIndex maps scorable issue numbers to their level. Built once per
// orchestrator pass from the issue snapshot.
type IssueIndex map[int]LevelRef

// ExtractIssueRefs scans body then title for issue references and returns the
// distinct referenced numbers in first-occurrence order. References are
// deduplicated by numeric value, so "#7" and "#007" collapse. Digit runs that
// do not parse as a positive integer are dropped, never fatal. A nil body is
// passed as the empty string.
func ExtractIssueRefs(body, title string) []int {
	seen := make(map[int]struct{})
	var refs []int
	for _, text := range []string{body, title} {
		for _, match := range issueRefPattern.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(match[1])
			if err != nil || n <= 0 {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			refs = append(refs, n)
		}
	}
	return refs
}

// BuildIssueIndex filters an issue snapshot to the scorable set: issues that
// are not pull requests and carry a recognized level label. When an issue has
// several level labels the first one in its label sequence wins.
func BuildIssueIndex(issues []domain.Issue, levels map[string]int64) IssueIndex {
	index := make(IssueIndex)
	for _, issue := range issues {
		if issue.IsPullRequest {
			continue
		}
		for _, label := range issue.Labels {
			points, ok := levels[label.Name]
			if !ok {
				continue
			}
			index[issue.Number] = LevelRef{
				Issue:  issue.Number,
				Level:  label.Name,
				Points: points,
			}
			break
		}
	}
	return index
}

// Match intersects extracted references with the scorable issue set,
// preserving reference order and discarding numbers with no scorable issue.
func (idx IssueIndex) Match(refs []int) []LevelRef {
	var matches []LevelRef
	for _, ref := range refs {
		if lr, ok := idx[ref]; ok {
			matches = append(matches, lr)
		}
	}
	return matches
}
