package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/moeeztaher/budget-tracker/internal/config"
	log "github.com/sirupsen/logrus"
)

// Issue is a work item as returned by the Jira search API.
type Issue struct {
	Key     string
	Summary string
	Type    string
}

// User is a member of a project role.
type User struct {
	Name         string
	DisplayName  string
	EmailAddress string
}

// Client is a read-only gateway to the Jira work-item hierarchy and to
// project role membership. All methods may fail with a query error; callers
// must fold failures to an empty result instead of propagating them.
type Client interface {
	FindEpics(ctx context.Context, projectKey string) ([]Issue, error)         // /rest/api/2/search
	FindEpicIssues(ctx context.Context, epicKey string) ([]Issue, error)       // /rest/api/2/search
	IsEpic(ctx context.Context, issueKey string) (bool, error)                 // /rest/api/2/search
	FindProjectRoleUsers(ctx context.Context, projectKey, roleName string) ([]User, error) // /rest/api/2/project/{key}/role
}

type ClientImpl struct {
	cfg        config.Jira
	httpClient *http.Client
}

func NewClient(cfg config.Jira) *ClientImpl {
	return &ClientImpl{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type searchResponse struct {
	Issues []struct {
		Key    string `json:"key"`
		Fields struct {
			Summary   string `json:"summary"`
			IssueType struct {
				Name string `json:"name"`
			} `json:"issuetype"`
		} `json:"fields"`
	} `json:"issues"`
}

// search runs a JQL query and returns the matching issues.
func (c *ClientImpl) search(ctx context.Context, jql string) ([]Issue, error) {
	searchUrl := fmt.Sprintf("%s/rest/api/2/search?jql=%s&fields=summary,issuetype",
		c.cfg.BaseUrl, url.QueryEscape(jql))
	req, err := http.NewRequestWithContext(ctx, "GET", searchUrl, nil)
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return nil, err
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.ApiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Errorf("Failed to execute request: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("Jira API returned non-OK status: %d", resp.StatusCode)
		log.Error(err)
		return nil, err
	}

	var response searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		log.Errorf("Failed to decode response: %v", err)
		return nil, err
	}

	issues := make([]Issue, 0, len(response.Issues))
	for _, issue := range response.Issues {
		issues = append(issues, Issue{
			Key:     issue.Key,
			Summary: issue.Fields.Summary,
			Type:    issue.Fields.IssueType.Name,
		})
	}
	return issues, nil
}

// FindEpics returns all epics of a project.
func (c *ClientImpl) FindEpics(ctx context.Context, projectKey string) ([]Issue, error) {
	return c.search(ctx, fmt.Sprintf("project = %s AND issuetype = Epic", projectKey))
}

// FindEpicIssues returns the issues linked to an epic.
func (c *ClientImpl) FindEpicIssues(ctx context.Context, epicKey string) ([]Issue, error) {
	return c.search(ctx, fmt.Sprintf("'Epic Link' = %s", epicKey))
}

// IsEpic reports whether the given issue key identifies an epic.
func (c *ClientImpl) IsEpic(ctx context.Context, issueKey string) (bool, error) {
	issues, err := c.search(ctx, fmt.Sprintf("key = %s AND issuetype = Epic", issueKey))
	if err != nil {
		return false, err
	}
	return len(issues) > 0, nil
}

// FindProjectRoleUsers returns the users holding the named role in a project.
func (c *ClientImpl) FindProjectRoleUsers(ctx context.Context, projectKey, roleName string) ([]User, error) {
	rolesUrl := fmt.Sprintf("%s/rest/api/2/project/%s/role", c.cfg.BaseUrl, url.PathEscape(projectKey))
	roles := map[string]string{}
	if err := c.getJSON(ctx, rolesUrl, &roles); err != nil {
		return nil, err
	}

	roleUrl, ok := roles[roleName]
	if !ok {
		log.Debugf("role %q not configured for project %s", roleName, projectKey)
		return []User{}, nil
	}

	var role struct {
		Actors []struct {
			Name        string `json:"name"`
			DisplayName string `json:"displayName"`
			ActorUser   struct {
				EmailAddress string `json:"emailAddress"`
			} `json:"actorUser"`
		} `json:"actors"`
	}
	if err := c.getJSON(ctx, roleUrl, &role); err != nil {
		return nil, err
	}

	users := make([]User, 0, len(role.Actors))
	for _, actor := range role.Actors {
		users = append(users, User{
			Name:         actor.Name,
			DisplayName:  actor.DisplayName,
			EmailAddress: actor.ActorUser.EmailAddress,
		})
	}
	return users, nil
}

func (c *ClientImpl) getJSON(ctx context.Context, requestUrl string, target any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", requestUrl, nil)
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return err
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.ApiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Errorf("Failed to execute request: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("Jira API returned non-OK status: %d", resp.StatusCode)
		log.Error(err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		log.Errorf("Failed to decode response: %v", err)
		return err
	}
	return nil
}
