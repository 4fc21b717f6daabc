package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/folio/internal/profile"
)

// --- mocks ---

type memCache struct {
	doc profile.Document
	ok  bool
}

func (c *memCache) Load() (profile.Document, bool) { return c.doc, c.ok }
func (c *memCache) Save(doc profile.Document)       { c.doc, c.ok = doc, true }

type staticSession string

func (s staticSession) OwnerID() (string, bool) { return string(s), s != "" }

// --- helpers ---

func newTestMCPDeps(t *testing.T, seed string) (MCPDeps, *memCache) {
	t.Helper()
	c := &memCache{}
	if seed != "" {
		doc, err := profile.ParseDocument([]byte(seed))
		if err != nil {
			t.Fatalf("parsing seed: %v", err)
		}
		c.doc, c.ok = doc, true
	}
	mgr := profile.NewManager(c, nil, nil)
	return MCPDeps{Profile: mgr}, c
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func callOK(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), req mcp.CallToolRequest) string {
	t.Helper()
	result, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	return toolText(t, result)
}

func callErr(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), req mcp.CallToolRequest) string {
	t.Helper()
	result, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected tool error, got: %s", toolText(t, result))
	}
	return toolText(t, result)
}

// --- tests ---

func TestNewMCPServer(t *testing.T) {
	deps, _ := newTestMCPDeps(t, "")
	if s := NewMCPServer(deps); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPTool_GetSection(t *testing.T) {
	deps, _ := newTestMCPDeps(t, `{"hero":{"name":"Ada"}}`)
	h := mcpGetSection(deps)

	if got := callOK(t, h, makeCallToolRequest("get_section", map[string]interface{}{"section": "hero"})); got != `{"name":"Ada"}` {
		t.Errorf("hero = %s", got)
	}
	if got := callOK(t, h, makeCallToolRequest("get_section", map[string]interface{}{"section": "experiences"})); got != "[]" {
		t.Errorf("missing list section = %s, want []", got)
	}
	callErr(t, h, makeCallToolRequest("get_section", map[string]interface{}{}))
}

func TestMCPTool_SetSection(t *testing.T) {
	deps, c := newTestMCPDeps(t, `{"hero":{"name":"Ada"},"softSkills":["x"]}`)
	h := mcpSetSection(deps)

	text := callOK(t, h, makeCallToolRequest("set_section", map[string]interface{}{
		"section": "softSkills",
		"value":   `["Listening","Writing"]`,
	}))
	if !strings.Contains(text, "saved locally only") {
		t.Errorf("anonymous edit should say it stayed local: %s", text)
	}
	if got := c.doc.SoftSkills(); len(got) != 2 || got[0] != "Listening" {
		t.Errorf("cached soft skills = %v", got)
	}
	if raw, _ := c.doc.Raw(profile.KeyHero); string(raw) != `{"name":"Ada"}` {
		t.Errorf("hero changed: %s", raw)
	}

	callErr(t, h, makeCallToolRequest("set_section", map[string]interface{}{"section": "experiences", "value": `{"a":1}`}))
	callErr(t, h, makeCallToolRequest("set_section", map[string]interface{}{"section": "hero", "value": `{not json`}))
}

func TestMCPTool_SetHeroField(t *testing.T) {
	deps, c := newTestMCPDeps(t, `{"hero":{"name":"Ada","tagline":"old"}}`)
	deps.Session = staticSession("owner-1")
	h := mcpSetHeroField(deps)

	text := callOK(t, h, makeCallToolRequest("set_hero_field", map[string]interface{}{"field": "tagline", "value": "new"}))
	if !strings.Contains(text, "owner-1") {
		t.Errorf("result = %s", text)
	}
	if hero := c.doc.Hero(); hero.Tagline != "new" || hero.Name != "Ada" {
		t.Errorf("hero = %+v", hero)
	}
	callErr(t, h, makeCallToolRequest("set_hero_field", map[string]interface{}{"field": "favouriteColour", "value": "red"}))
}

func TestMCPTool_SetSkills(t *testing.T) {
	deps, c := newTestMCPDeps(t, `{"technicalSkills":["Go"],"softSkills":["Calm"]}`)
	h := mcpSetSkills(deps)

	callOK(t, h, makeCallToolRequest("set_skills", map[string]interface{}{"technical": "Go, SQL"}))
	if got := c.doc.TechnicalSkills(); len(got) != 2 || got[1] != "SQL" {
		t.Errorf("technical = %v", got)
	}
	if got := c.doc.SoftSkills(); len(got) != 1 || got[0] != "Calm" {
		t.Errorf("soft skills should be kept when omitted: %v", got)
	}
}

func TestMCPTool_ListEdits(t *testing.T) {
	deps, c := newTestMCPDeps(t, `{"petProjects":[{"title":"A"},{"title":"B"},{"title":"C"}]}`)

	callOK(t, mcpRemoveItem(deps), makeCallToolRequest("remove_item", map[string]interface{}{
		"section": "petProjects", "index": 1,
	}))
	if got := callOK(t, mcpGetProject(deps), makeCallToolRequest("get_project", map[string]interface{}{"index": 1})); got != `{"title":"C"}` {
		t.Errorf("project 1 after removal = %s, want C", got)
	}

	text := callOK(t, mcpAppendItem(deps), makeCallToolRequest("append_item", map[string]interface{}{"section": "petProjects"}))
	if !strings.Contains(text, "petProjects[2]") {
		t.Errorf("append result = %s", text)
	}
	callOK(t, mcpSetItemField(deps), makeCallToolRequest("set_item_field", map[string]interface{}{
		"section": "petProjects", "index": 2, "field": "technologies", "value": "Go, SQLite",
	}))
	callOK(t, mcpMoveItem(deps), makeCallToolRequest("move_item", map[string]interface{}{
		"section": "petProjects", "from": 2, "to": 0,
	}))

	projects := c.doc.PetProjects()
	if len(projects) != 3 {
		t.Fatalf("projects = %+v", projects)
	}
	if len(projects[0].Technologies) != 2 || projects[1].Title != "A" || projects[2].Title != "C" {
		t.Errorf("projects = %+v", projects)
	}

	callErr(t, mcpRemoveItem(deps), makeCallToolRequest("remove_item", map[string]interface{}{"section": "petProjects", "index": 9}))
	callErr(t, mcpAppendItem(deps), makeCallToolRequest("append_item", map[string]interface{}{"section": "hero"}))
	callErr(t, mcpAppendItem(deps), makeCallToolRequest("append_item", map[string]interface{}{"section": "nope"}))
	callErr(t, mcpGetProject(deps), makeCallToolRequest("get_project", map[string]interface{}{"index": 7}))
}

func TestMCPTool_ListSections(t *testing.T) {
	deps, _ := newTestMCPDeps(t, `{"experiences":[{},{}]}`)
	text := callOK(t, mcpListSections(deps), makeCallToolRequest("list_sections", nil))

	var sections []struct {
		Key   string `json:"key"`
		Kind  string `json:"kind"`
		Items int    `json:"items"`
	}
	if err := json.Unmarshal([]byte(text), &sections); err != nil {
		t.Fatalf("parsing: %v", err)
	}
	if len(sections) != len(profile.Sections()) {
		t.Fatalf("got %d sections", len(sections))
	}
	for _, s := range sections {
		if s.Key == profile.KeyExperiences && s.Items != 2 {
			t.Errorf("experiences items = %d, want 2", s.Items)
		}
	}
}

func TestMCPResource_Document(t *testing.T) {
	deps, _ := newTestMCPDeps(t, `{"zeta":1,"hero":{"name":"Ada"}}`)
	contents, err := mcpResourceDocument(deps)(context.Background(), makeReadResourceRequest("portfolio://document"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.Text != `{"hero":{"name":"Ada"},"zeta":1}` {
		t.Errorf("document = %s", tc.Text)
	}
}

func TestMCPResource_Summary(t *testing.T) {
	deps, _ := newTestMCPDeps(t, "")
	contents, err := mcpResourceSummary(deps)(context.Background(), makeReadResourceRequest("portfolio://summary"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	if !strings.Contains(tc.Text, profile.DefaultName) {
		t.Errorf("summary = %s", tc.Text)
	}
}

// notifySession is a client session that collects server notifications.
type notifySession struct {
	ch chan mcp.JSONRPCNotification
}

func (s *notifySession) Initialize()                                         {}
func (s *notifySession) Initialized() bool                                   { return true }
func (s *notifySession) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.ch }
func (s *notifySession) SessionID() string                                   { return "test-session" }

var _ server.ClientSession = (*notifySession)(nil)

func TestMCP_EditsNotifyResourceUpdates(t *testing.T) {
	deps, _ := newTestMCPDeps(t, "")
	srv := NewMCPServer(deps)
	sess := &notifySession{ch: make(chan mcp.JSONRPCNotification, 8)}
	if err := srv.RegisterSession(context.Background(), sess); err != nil {
		t.Fatalf("RegisterSession: %v", err)
	}

	if err := deps.Profile.SetHeroField("tagline", "new"); err != nil {
		t.Fatal(err)
	}

	uris := map[string]bool{}
	for i := 0; i < 2; i++ {
		n := <-sess.ch
		if n.Method != mcp.MethodNotificationResourceUpdated {
			t.Fatalf("method = %q", n.Method)
		}
		uri, _ := n.Params.AdditionalFields["uri"].(string)
		uris[uri] = true
	}
	if !uris[documentURI] || !uris[summaryURI] {
		t.Errorf("updated uris = %v, want document and summary", uris)
	}
}
