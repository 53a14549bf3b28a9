package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/c360studio/migr8-smoke/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoReturnsJSONBodyOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"bad path"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	resp, err := client.Do(context.Background(), http.MethodPost, "/projects", map[string]string{"rootPath": "/nope"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.JSONEq(t, `{"success":false,"error":"bad path"}`, string(resp.Data))
	assert.Empty(t, resp.Error)
}

func TestDoReturnsRawTextWhenBodyNotJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	resp, err := client.Do(context.Background(), http.MethodGet, "/projects", nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.Nil(t, resp.Data)
	assert.Equal(t, "upstream exploded", resp.Error)
}

func TestDoTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	client := api.NewClient(server.URL)
	_, err := client.Do(context.Background(), http.MethodGet, "/projects", nil)
	assert.Error(t, err)
}

func TestCreateProject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req api.CreateProjectRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/srv/fixtures/react-app", req.RootPath)
		assert.Contains(t, req.Blacklist, "node_modules")
		assert.Contains(t, req.IncludePatterns, "**/*.jsx")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"proj-1","rootPath":"/srv/fixtures/react-app","status":"created","createdAt":"2025-11-02T10:00:00Z"}}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	project, err := client.CreateProject(context.Background(), api.CreateProjectRequest{
		RootPath:        "/srv/fixtures/react-app",
		Blacklist:       []string{"node_modules", ".git", "dist", "build"},
		IncludePatterns: []string{"**/*.jsx", "**/*.tsx", "**/*.js", "**/*.ts"},
		IgnorePatterns:  []string{"**/*.test.*", "**/*.spec.*"},
	})
	require.NoError(t, err)

	assert.Equal(t, "proj-1", project.ID)
	assert.Equal(t, api.StatusCreated, project.Status)
	assert.Nil(t, project.Stats)
}

func TestCreateProjectServerRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"error":"bad path"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	_, err := client.CreateProject(context.Background(), api.CreateProjectRequest{RootPath: "/nope"})
	require.Error(t, err)

	apiErr, ok := api.AsAPIError(err)
	require.True(t, ok, "expected an APIError, got %v", err)
	assert.Equal(t, "bad path", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "bad path", apiErr.Error())
}

func TestGetProjectWithStats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/proj-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"proj-1","rootPath":"/srv/fixtures/react-app","status":"analyzed","stats":{"totalFiles":42,"totalComponents":17,"analyzedFiles":42}}}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	project, err := client.GetProject(context.Background(), "proj-1")
	require.NoError(t, err)

	assert.Equal(t, api.StatusAnalyzed, project.Status)
	require.NotNil(t, project.Stats)
	assert.Equal(t, 42, project.Stats.TotalFiles)
	assert.Equal(t, 17, project.Stats.TotalComponents)
	assert.Equal(t, 42, project.Stats.AnalyzedFiles)
}

func TestListProjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[{"id":"proj-1","status":"created"},{"id":"proj-2","status":"analyzed"}]}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	projects, err := client.ListProjects(context.Background())
	require.NoError(t, err)

	require.Len(t, projects, 2)
	assert.Equal(t, "proj-1", projects[0].ID)
	assert.Equal(t, "proj-2", projects[1].ID)
}

func TestStartAnalysis(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects/proj-1/analyze", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"message":"analysis started"}}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	assert.NoError(t, client.StartAnalysis(context.Background(), "proj-1"))
}

func TestMigrationRules(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/migration/rules", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[{"name":"class-to-function","description":"Rewrite class components as function components"},{"name":"proptypes-to-ts","description":"Replace PropTypes with TypeScript types"}]}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	rules, err := client.MigrationRules(context.Background())
	require.NoError(t, err)

	require.Len(t, rules, 2)
	assert.Equal(t, "class-to-function", rules[0].Name)
	assert.NotEmpty(t, rules[1].Description)
}

func TestErrorBodyWithoutEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"no such project"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL)
	_, err := client.GetProject(context.Background(), "ghost")
	require.Error(t, err)

	apiErr, ok := api.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestHealthProbe(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "healthy", status: http.StatusOK, wantErr: false},
		{name: "no content still healthy", status: http.StatusNoContent, wantErr: false},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
		{name: "service unavailable", status: http.StatusServiceUnavailable, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// The probe targets the server root, above the /api base.
				assert.Equal(t, "/", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := api.NewClient(server.URL + "/api")
			err := client.Health(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
