package jira

import (
	"context"
	"sync"
)

type ClientStub struct {
	mu                      sync.RWMutex
	epics                   map[string][]Issue // projectKey -> epics
	epicIssues              map[string][]Issue // epicKey -> linked issues
	roleUsers               map[string][]User  // projectKey -> role users
	findEpicsErr            error
	findEpicIssuesErr       error
	isEpicErr               error
	findProjectRoleUsersErr error
}

func NewClientStub() *ClientStub {
	return &ClientStub{
		epics:      make(map[string][]Issue),
		epicIssues: make(map[string][]Issue),
		roleUsers:  make(map[string][]User),
	}
}

func (c *ClientStub) FindEpics(ctx context.Context, projectKey string) ([]Issue, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.findEpicsErr != nil {
		return nil, c.findEpicsErr
	}

	epics, exists := c.epics[projectKey]
	if !exists {
		return []Issue{}, nil
	}

	result := make([]Issue, len(epics))
	copy(result, epics)
	return result, nil
}

func (c *ClientStub) FindEpicIssues(ctx context.Context, epicKey string) ([]Issue, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.findEpicIssuesErr != nil {
		return nil, c.findEpicIssuesErr
	}

	issues, exists := c.epicIssues[epicKey]
	if !exists {
		return []Issue{}, nil
	}

	result := make([]Issue, len(issues))
	copy(result, issues)
	return result, nil
}

func (c *ClientStub) IsEpic(ctx context.Context, issueKey string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.isEpicErr != nil {
		return false, c.isEpicErr
	}

	for _, epics := range c.epics {
		for _, epic := range epics {
			if epic.Key == issueKey {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *ClientStub) FindProjectRoleUsers(ctx context.Context, projectKey, roleName string) ([]User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.findProjectRoleUsersErr != nil {
		return nil, c.findProjectRoleUsersErr
	}

	users, exists := c.roleUsers[projectKey]
	if !exists {
		return []User{}, nil
	}

	result := make([]User, len(users))
	copy(result, users)
	return result, nil
}

// Helper methods for test setup

func (c *ClientStub) SetEpics(projectKey string, epics []Issue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epics[projectKey] = make([]Issue, len(epics))
	copy(c.epics[projectKey], epics)
}

func (c *ClientStub) SetEpicIssues(epicKey string, issues []Issue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epicIssues[epicKey] = make([]Issue, len(issues))
	copy(c.epicIssues[epicKey], issues)
}

func (c *ClientStub) SetRoleUsers(projectKey string, users []User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roleUsers[projectKey] = make([]User, len(users))
	copy(c.roleUsers[projectKey], users)
}

func (c *ClientStub) SetFindEpicsErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findEpicsErr = err
}

func (c *ClientStub) SetFindEpicIssuesErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findEpicIssuesErr = err
}

func (c *ClientStub) SetIsEpicErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isEpicErr = err
}

func (c *ClientStub) SetFindProjectRoleUsersErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.findProjectRoleUsersErr = err
}

func (c *ClientStub) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epics = make(map[string][]Issue)
	c.epicIssues = make(map[string][]Issue)
	c.roleUsers = make(map[string][]User)
	c.findEpicsErr = nil
	c.findEpicIssuesErr = nil
	c.isEpicErr = nil
	c.findProjectRoleUsersErr = nil
}
