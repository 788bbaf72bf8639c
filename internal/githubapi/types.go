package githubapi

// Commit is the summary shape returned by the commits-list and
// PR-commits endpoints.
type Commit struct {
	SHA    string       `json:"sha"`
	Commit CommitDetail `json:"commit"`
	Author *UserSummary `json:"author"`
}

// CommitDetail is the nested `commit` object of a Commit.
type CommitDetail struct {
	Message   string  `json:"message"`
	Author    GitActor `json:"author"`
	Committer GitActor `json:"committer"`
}

// GitActor is a raw name/email/date tuple as recorded in a Git commit
// object, as opposed to a resolved platform User.
type GitActor struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Date  *string `json:"date,omitempty"`
}

// UserSummary is the abbreviated user shape embedded in commit
// responses.
type UserSummary struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// User is the full user resource.
type User struct {
	Login     string  `json:"login"`
	ID        int64   `json:"id"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	AvatarURL *string `json:"avatar_url"`
}

// RateLimit is the `core` entry of the `/rate_limit` response, enough
// to tell a cycle-start warm-up whether the token is about to be
// throttled.
type RateLimit struct {
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
	Reset     int64 `json:"reset"`
}

type rateLimitResponse struct {
	Resources struct {
		Core RateLimit `json:"core"`
	} `json:"resources"`
}

// PullRequest is the resource returned by the pulls endpoints.
type PullRequest struct {
	Number         int64       `json:"number"`
	Title          string      `json:"title"`
	HTMLURL        string      `json:"html_url"`
	State          string      `json:"state"`
	Head           PullRequestRef `json:"head"`
	Base           PullRequestRef `json:"base"`
	Merged         *bool       `json:"merged"`
	MergeCommitSHA *string     `json:"merge_commit_sha"`
	MergedAt       *string     `json:"merged_at"`
}

// PullRequestRef is the head/base branch pointer embedded in a PullRequest.
type PullRequestRef struct {
	RefName string `json:"ref"`
	SHA     string `json:"sha"`
}

// CommitDetail2 is the detailed commit shape from
// GET /repos/{owner}/{repo}/commits/{sha}, including parents — needed
// to tell a merge commit from a squash/rebase replay by parent count.
type CommitDetail2 struct {
	SHA     string           `json:"sha"`
	Commit  CommitDetail     `json:"commit"`
	Author  *UserSummary     `json:"author"`
	Parents []CommitParent   `json:"parents"`
}

// CommitParent is one parent reference in a CommitDetail2.
type CommitParent struct {
	SHA string `json:"sha"`
}

// CommitStatusState is the state reported for a commit status check.
type CommitStatusState string

const (
	StatusPending CommitStatusState = "pending"
	StatusSuccess CommitStatusState = "success"
	StatusFailure CommitStatusState = "failure"
	StatusError   CommitStatusState = "error"
)
