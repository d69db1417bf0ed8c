package models

import "time"

// ArchitectureRequest represents the request for repository metadata
type ArchitectureRequest struct {
	RepoURL string `json:"repoURL"`
}

// ArchitectureResponse summarizes a repository's public metadata
type ArchitectureResponse struct {
	RepoName        string    `json:"repoName"`
	Owner           string    `json:"owner"`
	Description     string    `json:"description"`
	Stars           int       `json:"stars"`
	Forks           int       `json:"forks"`
	Language        string    `json:"language"`
	License         string    `json:"license"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	OpenIssuesCount int       `json:"openIssuesCount"`
	WatchersCount   int       `json:"watchersCount"`
}

// MessageResponse is the error shape of the architecture endpoint
type MessageResponse struct {
	Message string `json:"message"`
}
