package api

// Known project lifecycle states. The enumeration is owned by the server;
// unrecognized states are passed through, never rejected.
const (
	StatusCreated   = "created"
	StatusAnalyzing = "analyzing"
	StatusAnalyzed  = "analyzed"
	StatusError     = "error"
)

// Project is the server's record of an analysis target. The tool only ever
// holds a transient copy fetched per request.
type Project struct {
	ID        string        `json:"id"`
	RootPath  string        `json:"rootPath"`
	Status    string        `json:"status"`
	CreatedAt string        `json:"createdAt,omitempty"`
	Stats     *ProjectStats `json:"stats,omitempty"`
}

// ProjectStats summarizes what the server has seen of a project so far.
type ProjectStats struct {
	TotalFiles      int `json:"totalFiles"`
	TotalComponents int `json:"totalComponents"`
	AnalyzedFiles   int `json:"analyzedFiles"`
}

// MigrationRule is a named transformation rule exposed by the server for
// informational listing.
type MigrationRule struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	RootPath        string   `json:"rootPath"`
	Blacklist       []string `json:"blacklist"`
	IncludePatterns []string `json:"includePatterns"`
	IgnorePatterns  []string `json:"ignorePatterns"`
}
