package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readDoc(t *testing.T) map[string]interface{} {
	t.Helper()
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &parsed))
	return parsed
}

func TestSwaggerInfoMetadata(t *testing.T) {
	assert.Equal(t, "Review Service API", SwaggerInfo.Title)
	assert.Equal(t, "1.0", SwaggerInfo.Version)
	assert.Equal(t, "/", SwaggerInfo.BasePath)
	assert.Equal(t, "swagger", SwaggerInfo.InfoInstanceName)
	assert.NotEmpty(t, SwaggerInfo.Description)
}

func TestSwaggerInfoReadDoc(t *testing.T) {
	parsed := readDoc(t)

	info, ok := parsed["info"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Review Service API", info["title"])
	assert.Equal(t, "/", parsed["basePath"])
	assert.Equal(t, "2.0", parsed["swagger"])

	security, ok := parsed["securityDefinitions"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, security, "InternalAPIKey")
}

func TestSwaggerInfoHasEndpoints(t *testing.T) {
	paths, ok := readDoc(t)["paths"].(map[string]interface{})
	require.True(t, ok)

	expected := map[string][]string{
		"/health":                             {"get"},
		"/internal/rankings":                  {"get"},
		"/internal/rankings/{businessId}":     {"get"},
		"/internal/achievements/{businessId}": {"get"},
		"/internal/achievements/{id}/revoke":  {"post"},
		"/internal/sync/bulk":                 {"post"},
		"/internal/sync/{businessId}":         {"post"},
		"/internal/sync/batches/{batchId}":    {"get"},
		"/internal/sync/items/{id}":           {"get", "delete"},
		"/internal/sync/items/{id}/retry":     {"post"},
		"/internal/queue/stats":               {"get"},
		"/internal/queue/tasks/{id}":          {"get", "delete"},
		"/internal/jobs":                      {"get"},
		"/internal/jobs/{name}/run":           {"post"},
		"/internal/reports":                   {"get"},
		"/internal/reports/{id}/download":     {"get"},
	}
	for path, methods := range expected {
		item, ok := paths[path].(map[string]interface{})
		if !assert.True(t, ok, "path %s", path) {
			continue
		}
		for _, m := range methods {
			assert.Contains(t, item, m, "%s %s", m, path)
		}
	}
}

func TestSwaggerInfoHasDefinitions(t *testing.T) {
	definitions, ok := readDoc(t)["definitions"].(map[string]interface{})
	require.True(t, ok)

	for _, name := range []string{
		"handlers.ListRankingsResponse",
		"handlers.AchievementsResponse",
		"handlers.SyncResponse",
		"handlers.QueueStatsResponse",
		"handlers.RunJobResponse",
		"syncqueue.BulkResult",
		"syncqueue.BulkProgress",
		"types.Ranking",
		"types.SyncItem",
		"types.Task",
	} {
		assert.Contains(t, definitions, name)
	}
}
