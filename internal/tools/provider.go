// Package tools exposes Zoho CRM operations as MCP tools. Each tool is a
// thin translation from arguments to one CRM API call; handlers always
// return a well formed tool result, never a protocol level error.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"zohomcp/internal/crm"
	"zohomcp/internal/oauth"
	"zohomcp/internal/tokenstore"
)

// maxPerPage is Zoho's hard cap for list endpoints.
const maxPerPage = 200

// maxBulkRecords is Zoho's hard cap for one insert call.
const maxBulkRecords = 100

// CRMClient is the API surface the tools need. Implemented by crm.Client.
type CRMClient interface {
	Call(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error)
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
}

// AuthFlow is the authentication surface the tools need. Implemented by
// oauth.Flow.
type AuthFlow interface {
	Authorize(ctx context.Context) (*tokenstore.Record, error)
	EnsureRecord(ctx context.Context) (*tokenstore.Record, error)
	Revoke(ctx context.Context) error
}

// Provider registers the Zoho CRM tool set on an MCP server.
type Provider struct {
	crm  CRMClient
	auth AuthFlow

	// interactive gates the browser based authorization flow. When the
	// server runs headless, authenticate_zoho reports instructions instead
	// of trying to open a browser that is not there.
	interactive bool
}

// NewProvider creates a tool provider over the given CRM client and auth
// flow. interactive enables the browser based flow from authenticate_zoho.
func NewProvider(crmClient CRMClient, auth AuthFlow, interactive bool) *Provider {
	return &Provider{
		crm:         crmClient,
		auth:        auth,
		interactive: interactive,
	}
}

// Register adds all Zoho CRM tools to the MCP server.
func (p *Provider) Register(s *server.MCPServer) {
	p.registerAuthTools(s)
	p.registerMetadataTools(s)
	p.registerRecordTools(s)
	p.registerRelationTools(s)
}

// jsonResult renders a success envelope as a text tool result.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult maps client errors onto tool error results with actionable
// messages. Faults never escape as protocol errors.
func errorResult(err error) (*mcp.CallToolResult, error) {
	switch {
	case errors.Is(err, oauth.ErrNotAuthenticated):
		return mcp.NewToolResultError("Not authenticated with Zoho CRM. Use the authenticate_zoho tool or run 'zohomcp auth login' to sign in."), nil
	case errors.Is(err, oauth.ErrReauthRequired):
		return mcp.NewToolResultError("Zoho CRM authorization has expired or been revoked. Use the authenticate_zoho tool or run 'zohomcp auth login' to sign in again."), nil
	}

	var rateErr *crm.RateLimitedError
	if errors.As(err, &rateErr) {
		if rateErr.RetryAfter > 0 {
			return mcp.NewToolResultError(fmt.Sprintf("Zoho CRM rate limit reached. Retry after %s.", rateErr.RetryAfter)), nil
		}
		return mcp.NewToolResultError("Zoho CRM rate limit reached. Retry later."), nil
	}

	var remoteErr *crm.RemoteError
	if errors.As(err, &remoteErr) {
		return mcp.NewToolResultError(remoteErr.Error()), nil
	}

	return mcp.NewToolResultError(err.Error()), nil
}

// pageInfo mirrors Zoho's info block with the request values as fallback.
type pageInfo struct {
	Page        int  `json:"page"`
	PerPage     int  `json:"per_page"`
	Count       int  `json:"count"`
	MoreRecords bool `json:"more_records"`
}

// listPayload is the common shape of Zoho's record list responses.
type listPayload struct {
	Data []map[string]interface{} `json:"data"`
	Info struct {
		Page        int  `json:"page"`
		PerPage     int  `json:"per_page"`
		Count       int  `json:"count"`
		MoreRecords bool `json:"more_records"`
	} `json:"info"`
}

func (l *listPayload) pageInfo(requestedPage, requestedPerPage int) pageInfo {
	info := pageInfo{
		Page:        l.Info.Page,
		PerPage:     l.Info.PerPage,
		Count:       l.Info.Count,
		MoreRecords: l.Info.MoreRecords,
	}
	if info.Page == 0 {
		info.Page = requestedPage
	}
	if info.PerPage == 0 {
		info.PerPage = requestedPerPage
	}
	if info.Count == 0 {
		info.Count = len(l.Data)
	}
	return info
}

func decodeList(raw json.RawMessage) (*listPayload, error) {
	var payload listPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("unexpected CRM response shape: %w", err)
	}
	return &payload, nil
}

// clampPerPage applies the per_page default and Zoho's cap.
func clampPerPage(perPage int) int {
	if perPage <= 0 || perPage > maxPerPage {
		return maxPerPage
	}
	return perPage
}

func pageOrDefault(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// objectArg reads a required object argument from the request.
func objectArg(request mcp.CallToolRequest, key string) (map[string]interface{}, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%s argument is required", key)
	}
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s argument must be an object", key)
	}
	return obj, nil
}

// arrayArg reads a required array-of-objects argument from the request.
func arrayArg(request mcp.CallToolRequest, key string) ([]map[string]interface{}, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%s argument is required", key)
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s argument must be an array of objects", key)
	}
	items := make([]map[string]interface{}, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s[%d] must be an object", key, i)
		}
		items = append(items, obj)
	}
	return items, nil
}
