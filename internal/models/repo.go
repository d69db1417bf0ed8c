package models

import (
	"github.com/denysvitali/repo-analyzer-go/pkg/manifest"
	"github.com/denysvitali/repo-analyzer-go/pkg/walker"
)

// AnalyzeRequest represents the request to analyze a repository
type AnalyzeRequest struct {
	RepoURL string `json:"repoUrl"`
}

// AnalyzeResponse wraps a successful analysis
type AnalyzeResponse struct {
	Success  bool      `json:"success"`
	RepoInfo *RepoInfo `json:"repoInfo"`
}

// RepoInfo is everything extracted from one repository. Every field is
// always present; absent files are reported with their NotFound sentinels.
type RepoInfo struct {
	ReadmeContent      string           `json:"readmeContent" yaml:"readmeContent"`
	PackageJSON        any              `json:"packageJson" yaml:"packageJson"`
	FileStructure      []*walker.Node   `json:"fileStructure" yaml:"fileStructure"`
	DirectoryGraph     string           `json:"directoryGraph" yaml:"directoryGraph"`
	TreeStructure      string           `json:"treeStructure" yaml:"treeStructure"`
	ImportantLibraries manifest.Summary `json:"importantLibraries" yaml:"importantLibraries"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}
