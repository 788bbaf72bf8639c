// Package githubapi is a hand-rolled REST client for the GitHub-style
// remote API (commits, pull requests, webhooks, commit statuses). It
// speaks plain net/http rather than wrapping an SDK, since the bridge
// only needs a fixed, small set of endpoints and a generic SDK would
// bring far more surface than it uses.
package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/chriscase/gitsvnsync/internal/coreerrors"
)

var debugAPI = os.Getenv("GITSVNSYNC_DEBUG_API") != ""

const apiVersion = "2022-11-28"
const userAgent = "gitsvnsync/0.1"

// Client talks to a GitHub-compatible REST API (github.com or a GitHub
// Enterprise Server tenant) on behalf of one repository.
type Client struct {
	baseURL    string // e.g. https://api.github.com or https://ghes.example.com/api/v3
	owner      string
	repo       string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New constructs a Client. baseURL is the API root (no trailing
// slash expected but tolerated); owner/repo identify the repository
// all calls operate against.
func New(baseURL, owner, repo, token string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		owner:      owner,
		repo:       repo,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// GitHub's primary rate limit is 5000/hour for authenticated
		// REST calls; ~1.2/sec sustained with burst for cold caches.
		limiter: rate.NewLimiter(rate.Limit(1.2), 20),
	}
}

func (c *Client) repoPath() string {
	return fmt.Sprintf("%s/repos/%s/%s", c.baseURL, c.owner, c.repo)
}

func (c *Client) do(ctx context.Context, method, url string, body any, out any) (*http.Response, error) {
	if debugAPI {
		log.Printf("[githubapi] %s %s", method, url)
	}

	if tokens := c.limiter.Tokens(); tokens <= 0 {
		log.Printf("[githubapi] ratelimit: token bucket empty, %s %s will block until tokens replenish", method, url)
	}
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	if wait := time.Since(waitStart); wait > 100*time.Millisecond {
		log.Printf("[githubapi] ratelimit: %s %s waited %s", method, url, wait.Round(time.Millisecond))
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return resp, err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp, nil
}

// checkResponse classifies a non-2xx response into a typed
// coreerrors value, extracting diagnostics (request id, rate-limit
// reset) before the body is consumed or discarded.
func (c *Client) checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	requestID := resp.Header.Get("x-github-request-id")

	if resp.StatusCode == http.StatusTooManyRequests {
		resetAt := resp.Header.Get("x-ratelimit-reset")
		resetUnix, _ := strconv.ParseInt(resetAt, 10, 64)
		resetStr := time.Unix(resetUnix, 0).UTC().Format(time.RFC3339)
		log.Printf("[githubapi] ratelimit: 429 received, reset at %s request_id=%s", resetStr, requestID)
		return &coreerrors.APIRateLimited{ResetAt: resetStr}
	}

	body := extractSafeBody(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &coreerrors.APIAuthenticationFailed{
			Detail: fmt.Sprintf("HTTP %d, request-id %s: %s", resp.StatusCode, requestID, body),
		}
	}

	return &coreerrors.APIError{
		Status:    resp.StatusCode,
		RequestID: requestID,
		Body:      body,
	}
}

const maxSafeBodyBytes = 512

// extractSafeBody reads the response body, redacts any secrets that
// leaked into an error message, and truncates it so error logs can't
// balloon on a verbose HTML error page.
func extractSafeBody(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxSafeBodyBytes+1))
	if err != nil {
		return ""
	}
	redacted := redactSecrets(string(raw))
	if len(redacted) > maxSafeBodyBytes {
		return redacted[:maxSafeBodyBytes] + "...(truncated)"
	}
	return redacted
}

// GetCommits lists commits newest first as returned by the API,
// starting from sinceSHA (passed as the sha parameter, so a SHA or
// branch name) or from the default branch when it is empty. Only the
// first page of up to 100 commits is fetched.
func (c *Client) GetCommits(ctx context.Context, sinceSHA string) ([]Commit, error) {
	url := fmt.Sprintf("%s/commits?per_page=100", c.repoPath())
	if sinceSHA != "" {
		url += "&sha=" + sinceSHA
	}
	var commits []Commit
	if _, err := c.do(ctx, http.MethodGet, url, nil, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

// GetCommit fetches a single commit with its parent list, used to
// distinguish a merge commit from a squash/rebase replay by parent
// count.
func (c *Client) GetCommit(ctx context.Context, sha string) (*CommitDetail2, error) {
	url := fmt.Sprintf("%s/commits/%s", c.repoPath(), sha)
	var detail CommitDetail2
	if _, err := c.do(ctx, http.MethodGet, url, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetPRCommits lists the commits that make up a pull request.
func (c *Client) GetPRCommits(ctx context.Context, number int64) ([]Commit, error) {
	url := fmt.Sprintf("%s/pulls/%d/commits?per_page=100", c.repoPath(), number)
	var commits []Commit
	if _, err := c.do(ctx, http.MethodGet, url, nil, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

// GetPullRequest fetches a single pull request by number.
func (c *Client) GetPullRequest(ctx context.Context, number int64) (*PullRequest, error) {
	url := fmt.Sprintf("%s/pulls/%d", c.repoPath(), number)
	var pr PullRequest
	if _, err := c.do(ctx, http.MethodGet, url, nil, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// GetMergedPullRequests lists pull requests merged into base since
// the given time, filtering client-side since the API's closed-PR
// listing doesn't support a merged-since query directly.
func (c *Client) GetMergedPullRequests(ctx context.Context, base string, since time.Time) ([]PullRequest, error) {
	url := fmt.Sprintf("%s/pulls?state=closed&base=%s&per_page=50&sort=updated&direction=desc", c.repoPath(), base)
	var prs []PullRequest
	if _, err := c.do(ctx, http.MethodGet, url, nil, &prs); err != nil {
		return nil, err
	}

	merged := make([]PullRequest, 0, len(prs))
	for _, pr := range prs {
		if pr.Merged == nil || !*pr.Merged || pr.MergedAt == nil {
			continue
		}
		mergedAt, err := time.Parse(time.RFC3339, *pr.MergedAt)
		if err != nil {
			continue
		}
		if mergedAt.Before(since) {
			continue
		}
		merged = append(merged, pr)
	}
	return merged, nil
}

// CreatePullRequest opens a pull request from head into base.
func (c *Client) CreatePullRequest(ctx context.Context, title, head, base, body string) (*PullRequest, error) {
	url := fmt.Sprintf("%s/pulls", c.repoPath())
	payload := map[string]string{"title": title, "head": head, "base": base, "body": body}
	var pr PullRequest
	if _, err := c.do(ctx, http.MethodPost, url, payload, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// MergePullRequest merges a pull request using the given merge
// method ("merge", "squash", or "rebase").
func (c *Client) MergePullRequest(ctx context.Context, number int64, mergeMethod string) error {
	url := fmt.Sprintf("%s/pulls/%d/merge", c.repoPath(), number)
	payload := map[string]string{"merge_method": mergeMethod}
	_, err := c.do(ctx, http.MethodPut, url, payload, nil)
	return err
}

// PostCommitStatus reports a commit status check against sha.
func (c *Client) PostCommitStatus(ctx context.Context, sha string, state CommitStatusState, context_, description, targetURL string) error {
	url := fmt.Sprintf("%s/statuses/%s", c.repoPath(), sha)
	payload := map[string]string{
		"state":       string(state),
		"context":     context_,
		"description": description,
		"target_url":  targetURL,
	}
	_, err := c.do(ctx, http.MethodPost, url, payload, nil)
	return err
}

// GetUser fetches a platform user by login.
func (c *Client) GetUser(ctx context.Context, login string) (*User, error) {
	url := fmt.Sprintf("%s/users/%s", c.baseURL, login)
	var user User
	if _, err := c.do(ctx, http.MethodGet, url, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAuthenticatedUser fetches the user identified by this client's
// token, used at startup to confirm the token is valid.
func (c *Client) GetAuthenticatedUser(ctx context.Context) (*User, error) {
	url := c.baseURL + "/user"
	var user User
	if _, err := c.do(ctx, http.MethodGet, url, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetRateLimit fetches the token's current core rate-limit status,
// used at cycle start to warn early when a cycle is about to run into
// throttling rather than discovering it mid-phase.
func (c *Client) GetRateLimit(ctx context.Context) (*RateLimit, error) {
	url := c.baseURL + "/rate_limit"
	var resp rateLimitResponse
	if _, err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Resources.Core, nil
}

// RepoExists reports whether the configured repository exists and is
// reachable with this token, via a lightweight HEAD request.
func (c *Client) RepoExists(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.repoPath(), nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)

	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, nil
	}
	return false, c.checkResponse(resp)
}

// CreateRepo creates the configured repository under the
// authenticated user's account or an organization.
func (c *Client) CreateRepo(ctx context.Context, org string, private bool) error {
	url := c.baseURL + "/user/repos"
	if org != "" {
		url = fmt.Sprintf("%s/orgs/%s/repos", c.baseURL, org)
	}
	payload := map[string]any{"name": c.repo, "private": private}
	_, err := c.do(ctx, http.MethodPost, url, payload, nil)
	return err
}

// CreateWebhook registers a push+pull_request webhook pointed at
// targetURL, signed with secret.
func (c *Client) CreateWebhook(ctx context.Context, targetURL, secret string) error {
	url := fmt.Sprintf("%s/hooks", c.repoPath())
	payload := map[string]any{
		"name":   "web",
		"active": true,
		"events": []string{"push", "pull_request"},
		"config": map[string]string{
			"url":          targetURL,
			"content_type": "json",
			"secret":       secret,
		},
	}
	_, err := c.do(ctx, http.MethodPost, url, payload, nil)
	return err
}
