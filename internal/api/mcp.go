package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/folio/internal/profile"
)

const (
	documentURI = "portfolio://document"
	summaryURI  = "portfolio://summary"
)

// MCPSession reports who is signed in. Implemented by auth.Gate.
type MCPSession interface {
	OwnerID() (string, bool)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profile *profile.Manager
	Session MCPSession // optional; nil reports every edit as local only
	Version string
}

// NewMCPServer creates an MCP server exposing the portfolio document as
// resources and its edit operations as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"folio",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("folio: read and edit a portfolio profile document. Section keys: "+sectionKeys()+"."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("list_sections",
			mcp.WithDescription("List the document's sections with their kind, item count and editable fields."),
		),
		mcpListSections(deps),
	)

	s.AddTool(
		mcp.NewTool("get_section",
			mcp.WithDescription("Return one top-level section of the portfolio document as JSON."),
			mcp.WithString("section", mcp.Description("Section key, e.g. hero or petProjects"), mcp.Required()),
		),
		mcpGetSection(deps),
	)

	s.AddTool(
		mcp.NewTool("set_section",
			mcp.WithDescription("Replace a whole top-level section. Other sections are left untouched."),
			mcp.WithString("section", mcp.Description("Section key"), mcp.Required()),
			mcp.WithString("value", mcp.Description("New section value as JSON"), mcp.Required()),
		),
		mcpSetSection(deps),
	)

	s.AddTool(
		mcp.NewTool("set_hero_field",
			mcp.WithDescription("Set one field of the hero (profile header) section."),
			mcp.WithString("field", mcp.Description("Hero field, e.g. tagline or location"), mcp.Required()),
			mcp.WithString("value", mcp.Description("New value"), mcp.Required()),
		),
		mcpSetHeroField(deps),
	)

	s.AddTool(
		mcp.NewTool("set_skills",
			mcp.WithDescription("Replace the technical and soft skill lists from comma-separated input."),
			mcp.WithString("technical", mcp.Description("Comma-separated technical skills")),
			mcp.WithString("soft", mcp.Description("Comma-separated soft skills")),
		),
		mcpSetSkills(deps),
	)

	s.AddTool(
		mcp.NewTool("append_item",
			mcp.WithDescription("Append a record to a list section. Without item, a blank record is added."),
			mcp.WithString("section", mcp.Description("List section key"), mcp.Required()),
			mcp.WithString("item", mcp.Description("Record as JSON")),
		),
		mcpAppendItem(deps),
	)

	s.AddTool(
		mcp.NewTool("set_item_field",
			mcp.WithDescription("Set one field of the record at index in a list section."),
			mcp.WithString("section", mcp.Description("List section key"), mcp.Required()),
			mcp.WithNumber("index", mcp.Description("Zero-based record position"), mcp.Required()),
			mcp.WithString("field", mcp.Description("Record field"), mcp.Required()),
			mcp.WithString("value", mcp.Description("New value; list fields take comma-separated input, points one per line"), mcp.Required()),
		),
		mcpSetItemField(deps),
	)

	s.AddTool(
		mcp.NewTool("remove_item",
			mcp.WithDescription("Remove the record at index from a list section. Later records shift down by one."),
			mcp.WithString("section", mcp.Description("List section key"), mcp.Required()),
			mcp.WithNumber("index", mcp.Description("Zero-based record position"), mcp.Required()),
		),
		mcpRemoveItem(deps),
	)

	s.AddTool(
		mcp.NewTool("move_item",
			mcp.WithDescription("Move a record within a list section so it ends up at position to."),
			mcp.WithString("section", mcp.Description("List section key"), mcp.Required()),
			mcp.WithNumber("from", mcp.Description("Current position"), mcp.Required()),
			mcp.WithNumber("to", mcp.Description("Target position"), mcp.Required()),
		),
		mcpMoveItem(deps),
	)

	s.AddTool(
		mcp.NewTool("get_project",
			mcp.WithDescription("Return the pet project at index, as addressed by /project/{index}."),
			mcp.WithNumber("index", mcp.Description("Zero-based project position"), mcp.Required()),
		),
		mcpGetProject(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			documentURI,
			"Portfolio Document",
			mcp.WithResourceDescription("The whole portfolio profile document as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDocument(deps),
	)

	s.AddResource(
		mcp.NewResource(
			summaryURI,
			"Portfolio Summary",
			mcp.WithResourceDescription("Plain-text digest of the portfolio"),
			mcp.WithMIMEType("text/plain"),
		),
		mcpResourceSummary(deps),
	)

	// Edits from tools, and documents loaded from the server, change both
	// resources.
	deps.Profile.Subscribe(func(profile.Document) {
		for _, uri := range []string{documentURI, summaryURI} {
			s.SendNotificationToAllClients(mcp.MethodNotificationResourceUpdated, map[string]any{"uri": uri})
		}
	})

	return s
}

func sectionKeys() string {
	keys := make([]string, 0, len(profile.Sections()))
	for _, s := range profile.Sections() {
		keys = append(keys, s.Key)
	}
	return strings.Join(keys, ", ")
}

// edited reports where an edit went. Remote saves happen in the background.
func edited(deps MCPDeps, what string) *mcp.CallToolResult {
	if deps.Session != nil {
		if owner, ok := deps.Session.OwnerID(); ok {
			return mcpText(fmt.Sprintf("%s; saving for owner %s", what, owner))
		}
	}
	return mcpText(what + " (saved locally only: not signed in)")
}

func requireSection(req mcp.CallToolRequest) (profile.SectionInfo, *mcp.CallToolResult) {
	key, err := req.RequireString("section")
	if err != nil {
		return profile.SectionInfo{}, mcpError("section is required")
	}
	info, ok := profile.Lookup(key)
	if !ok {
		return profile.SectionInfo{}, mcpError(fmt.Sprintf("unknown section %q; known sections: %s", key, sectionKeys()))
	}
	return info, nil
}

func requireIndex(req mcp.CallToolRequest, name string) (int, *mcp.CallToolResult) {
	v, err := req.RequireInt(name)
	if err != nil {
		return 0, mcpError(name + " is required")
	}
	return v, nil
}

func mcpListSections(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type sectionResult struct {
			Key    string   `json:"key"`
			Title  string   `json:"title"`
			Kind   string   `json:"kind"`
			Items  int      `json:"items,omitempty"`
			Fields []string `json:"fields,omitempty"`
		}

		doc := deps.Profile.Snapshot()
		results := make([]sectionResult, 0, len(profile.Sections()))
		for _, s := range profile.Sections() {
			r := sectionResult{Key: s.Key, Title: s.Title, Kind: s.Kind.String(), Fields: s.Fields()}
			if s.Kind != profile.KindRecord {
				r.Items = len(profile.RawList(doc, s.Key))
			}
			results = append(results, r)
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal sections: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetSection(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("section")
		if err != nil {
			return mcpError("section is required"), nil
		}
		raw, ok := deps.Profile.Snapshot().Raw(key)
		if !ok {
			if info, known := profile.Lookup(key); known && info.Kind != profile.KindRecord {
				return mcpText("[]"), nil
			}
			return mcpText("{}"), nil
		}
		return mcpText(string(raw)), nil
	}
}

func mcpSetSection(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("section")
		if err != nil {
			return mcpError("section is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		next, err := deps.Profile.Snapshot().With(key, json.RawMessage(value))
		if err != nil {
			return mcpError(fmt.Sprintf("invalid value: %v", err)), nil
		}
		if err := profile.Validate(next); err != nil {
			return mcpError(err.Error()), nil
		}
		deps.Profile.Update(next)
		return edited(deps, fmt.Sprintf("Replaced %s", key)), nil
	}
}

func mcpSetHeroField(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		field, err := req.RequireString("field")
		if err != nil {
			return mcpError("field is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		if err := deps.Profile.SetHeroField(field, value); err != nil {
			return mcpError(fmt.Sprintf("failed to set hero field: %v", err)), nil
		}
		return edited(deps, fmt.Sprintf("Set hero.%s", field)), nil
	}
}

func mcpSetSkills(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		doc := deps.Profile.Snapshot()
		technical := req.GetString("technical", strings.Join(doc.TechnicalSkills(), ", "))
		soft := req.GetString("soft", strings.Join(doc.SoftSkills(), ", "))

		if err := deps.Profile.SetSkills(technical, soft); err != nil {
			return mcpError(fmt.Sprintf("failed to set skills: %v", err)), nil
		}
		doc = deps.Profile.Snapshot()
		return edited(deps, fmt.Sprintf("Skills: %d technical, %d soft", len(doc.TechnicalSkills()), len(doc.SoftSkills()))), nil
	}
}

func mcpAppendItem(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info, errResult := requireSection(req)
		if errResult != nil {
			return errResult, nil
		}

		var item json.RawMessage
		if s := req.GetString("item", ""); s != "" {
			item = json.RawMessage(s)
		}
		index, err := deps.Profile.AppendItem(info.Key, item)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to append: %v", err)), nil
		}
		return edited(deps, fmt.Sprintf("Added %s[%d]", info.Key, index)), nil
	}
}

func mcpSetItemField(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info, errResult := requireSection(req)
		if errResult != nil {
			return errResult, nil
		}
		index, errResult := requireIndex(req, "index")
		if errResult != nil {
			return errResult, nil
		}
		field, err := req.RequireString("field")
		if err != nil {
			return mcpError("field is required"), nil
		}
		input, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		v, err := profile.FieldValue(info.Key, field, input)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		if err := deps.Profile.SetItemField(info.Key, index, field, v); err != nil {
			return mcpError(fmt.Sprintf("failed to set field: %v", err)), nil
		}
		return edited(deps, fmt.Sprintf("Set %s[%d].%s", info.Key, index, field)), nil
	}
}

func mcpRemoveItem(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info, errResult := requireSection(req)
		if errResult != nil {
			return errResult, nil
		}
		index, errResult := requireIndex(req, "index")
		if errResult != nil {
			return errResult, nil
		}

		if err := deps.Profile.RemoveItem(info.Key, index); err != nil {
			return mcpError(fmt.Sprintf("failed to remove: %v", err)), nil
		}
		return edited(deps, fmt.Sprintf("Removed %s[%d]; later items moved up", info.Key, index)), nil
	}
}

func mcpMoveItem(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info, errResult := requireSection(req)
		if errResult != nil {
			return errResult, nil
		}
		from, errResult := requireIndex(req, "from")
		if errResult != nil {
			return errResult, nil
		}
		to, errResult := requireIndex(req, "to")
		if errResult != nil {
			return errResult, nil
		}

		if err := deps.Profile.MoveItem(info.Key, from, to); err != nil {
			return mcpError(fmt.Sprintf("failed to move: %v", err)), nil
		}
		return edited(deps, fmt.Sprintf("Moved %s[%d] to %d", info.Key, from, to)), nil
	}
}

func mcpGetProject(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		index, errResult := requireIndex(req, "index")
		if errResult != nil {
			return errResult, nil
		}

		raw, ok := profile.At(profile.RawList(deps.Profile.Snapshot(), profile.KeyPetProjects), index)
		if !ok {
			return mcpError(fmt.Sprintf("project %d not found", index)), nil
		}
		return mcpText(string(raw)), nil
	}
}

func mcpResourceDocument(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := deps.Profile.Snapshot().MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal document: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceSummary(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/plain",
				Text:     profile.Summary(deps.Profile.Snapshot()),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
