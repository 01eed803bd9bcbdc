package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/cursor-memory-mcp/internal/tools"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *server.MCPServer {
	t.Helper()
	logger := quietLogger()
	s, err := New(tools.NewDefaultRegistry(logger), Options{
		Name:    "cursor-memory-mcp",
		Version: "test",
		Logger:  logger,
	})
	require.NoError(t, err)
	initialize(t, s)
	return s
}

// roundTrip sends one JSON-RPC message and returns the decoded response.
func roundTrip(t *testing.T, s *server.MCPServer, id int, method string, params any) map[string]any {
	t.Helper()
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	reply := s.HandleMessage(context.Background(), msg)
	require.NotNil(t, reply)

	raw, err := json.Marshal(reply)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return decoded
}

func initialize(t *testing.T, s *server.MCPServer) {
	t.Helper()
	resp := roundTrip(t, s, 0, "initialize", map[string]any{
		"protocolVersion": "2025-03-26",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test-client", "version": "1.0"},
	})
	require.Contains(t, resp, "result", "initialize failed: %v", resp)
}

// callTool invokes a tool and returns the parsed text payload and isError flag.
func callTool(t *testing.T, s *server.MCPServer, args map[string]any) (map[string]any, bool) {
	t.Helper()
	resp := roundTrip(t, s, 2, "tools/call", map[string]any{
		"name":      tools.CreateMemoryName,
		"arguments": args,
	})
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, "no result in %v", resp)

	content, ok := result["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 1)
	block := content[0].(map[string]any)
	assert.Equal(t, "text", block["type"])

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(block["text"].(string)), &payload))

	isError, _ := result["isError"].(bool)
	return payload, isError
}

func TestToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := roundTrip(t, s, 1, "tools/list", map[string]any{})

	result := resp["result"].(map[string]any)
	list := result["tools"].([]any)
	require.Len(t, list, 1)

	tool := list[0].(map[string]any)
	assert.Equal(t, "create_cursor_memory", tool["name"])
	assert.Equal(t, "在项目的.cursor/目录中创建任务记忆文件", tool["description"])

	schema := tool["inputSchema"].(map[string]any)
	assert.Equal(t, "object", schema["type"])
	assert.ElementsMatch(t, []any{"task_summary", "task_name", "project_path"}, schema["required"])
	props := schema["properties"].(map[string]any)
	name := props["task_name"].(map[string]any)
	assert.Equal(t, "^[a-zA-Z0-9_-]+$", name["pattern"])
	assert.EqualValues(t, 50, name["maxLength"])
}

func TestToolsCall_Success(t *testing.T) {
	s := newTestServer(t)
	project := t.TempDir()

	payload, isError := callTool(t, s, map[string]any{
		"task_name":        "user_login_implementation",
		"task_summary":     "成功完成了用户登录功能的实现",
		"task_description": "实现用户登录系统",
		"project_path":     project,
	})
	assert.False(t, isError)
	assert.Equal(t, true, payload["success"])

	path := payload["file_path"].(string)
	assert.Equal(t, "user_login_implementation.mdc", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"---\ndescription: \"get the summary of previous step: 实现用户登录系统\"\nglobs:\nalwaysApply: false\n---\n成功完成了用户登录功能的实现",
		string(data))
}

func TestToolsCall_ValidationFailure(t *testing.T) {
	s := newTestServer(t)

	payload, isError := callTool(t, s, map[string]any{
		"task_name":    "invalid name",
		"task_summary": "x",
		"project_path": t.TempDir(),
	})
	assert.True(t, isError)
	assert.NotContains(t, payload, "file_path")
	assert.Contains(t, payload["error"], "参数验证失败")
}

func TestToolsCall_NonexistentProject(t *testing.T) {
	s := newTestServer(t)

	payload, isError := callTool(t, s, map[string]any{
		"task_name":    "x",
		"task_summary": "x",
		"project_path": "/nonexistent/path/xyz",
	})
	assert.True(t, isError)
	assert.Contains(t, payload["error"], "项目路径不存在")
	_, err := os.Stat("/nonexistent/path/xyz")
	assert.True(t, os.IsNotExist(err))
}

func TestToolsCall_NoArguments(t *testing.T) {
	s := newTestServer(t)
	resp := roundTrip(t, s, 3, "tools/call", map[string]any{"name": tools.CreateMemoryName})

	result := resp["result"].(map[string]any)
	assert.Equal(t, true, result["isError"])
	text := result["content"].([]any)[0].(map[string]any)["text"].(string)
	for _, field := range []string{"task_summary", "task_name", "project_path"} {
		assert.Contains(t, text, fmt.Sprintf("%s: ", field))
	}
}

func TestToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)
	resp := roundTrip(t, s, 4, "tools/call", map[string]any{"name": "nope", "arguments": map[string]any{}})
	assert.Contains(t, resp, "error")
	assert.NotContains(t, resp, "result")
}

func TestToolsCall_ConcurrentDistinctNames(t *testing.T) {
	s := newTestServer(t)
	project := t.TempDir()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg, _ := json.Marshal(map[string]any{
				"jsonrpc": "2.0",
				"id":      100 + i,
				"method":  "tools/call",
				"params": map[string]any{
					"name": tools.CreateMemoryName,
					"arguments": map[string]any{
						"task_name":    fmt.Sprintf("task_%d", i),
						"task_summary": "s",
						"project_path": project,
					},
				},
			})
			s.HandleMessage(context.Background(), msg)
		}(i)
	}
	wg.Wait()

	entries, err := os.ReadDir(filepath.Join(project, ".cursor", "rules"))
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

func TestServe_Stdio(t *testing.T) {
	logger := quietLogger()
	s, err := New(tools.NewDefaultRegistry(logger), Options{Name: "cursor-memory-mcp", Version: "test", Logger: logger})
	require.NoError(t, err)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}`,
	}, "\n") + "\n"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, Serve(ctx, s, strings.NewReader(input), &out, logger))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var msg map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &msg), line)
		assert.Equal(t, "2.0", msg["jsonrpc"])
	}
	assert.Contains(t, lines[1], tools.CreateMemoryName)
}
