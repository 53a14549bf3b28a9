package config

import "time"

// Default connection URLs. The API lives under /api on the same server
// that carries the WebSocket push channel.
const (
	DefaultAPIBaseURL = "http://localhost:3000/api"
	DefaultWSURL      = "ws://localhost:3000"
)

// Analysis polling bounds: the project is re-fetched every DefaultPollInterval
// until its status leaves "analyzing", for at most DefaultPollLimit polls.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultPollLimit    = 60
)

// Default file pattern sets sent with a create-project request.
var (
	DefaultBlacklist       = []string{"node_modules", ".git", "dist", "build"}
	DefaultIncludePatterns = []string{"**/*.jsx", "**/*.tsx", "**/*.js", "**/*.ts"}
	DefaultIgnorePatterns  = []string{"**/*.test.*", "**/*.spec.*"}
)
