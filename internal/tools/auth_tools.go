package tools

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"zohomcp/internal/oauth"
	"zohomcp/pkg/logging"
)

func (p *Provider) registerAuthTools(s *server.MCPServer) {
	authenticateTool := mcp.NewTool("authenticate_zoho",
		mcp.WithDescription("Authenticate with Zoho CRM. Opens a browser window for OAuth consent if no valid session exists, then verifies access by fetching the current user."),
	)
	s.AddTool(authenticateTool, p.handleAuthenticate)

	revokeTool := mcp.NewTool("revoke_authentication",
		mcp.WithDescription("Revoke the Zoho CRM authorization and clear stored tokens."),
	)
	s.AddTool(revokeTool, p.handleRevoke)
}

func (p *Provider) handleAuthenticate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, err := p.auth.EnsureRecord(ctx)
	if err != nil {
		if !errors.Is(err, oauth.ErrNotAuthenticated) && !errors.Is(err, oauth.ErrReauthRequired) {
			return errorResult(err)
		}
		if !p.interactive {
			return mcp.NewToolResultError("No valid Zoho CRM session and this server cannot open a browser. Run 'zohomcp auth login' on the host machine, then retry."), nil
		}
		logging.Info("tools", "No valid session, starting interactive authorization")
		if _, err := p.auth.Authorize(ctx); err != nil {
			return errorResult(err)
		}
	}

	// Verify the session end to end with a real API call.
	raw, err := p.crm.Get(ctx, "users", url.Values{"type": {"CurrentUser"}})
	if err != nil {
		return errorResult(err)
	}

	payload, err := decodeUsers(raw)
	if err != nil {
		return errorResult(err)
	}

	envelope := map[string]interface{}{
		"status":  "success",
		"message": "Successfully authenticated with Zoho CRM",
	}
	if len(payload.Users) > 0 {
		user := payload.Users[0]
		envelope["user"] = map[string]interface{}{
			"name":         user.FullName,
			"email":        user.Email,
			"role":         user.Role.Name,
			"organization": user.Org.CompanyName,
		}
	}
	return jsonResult(envelope)
}

func (p *Provider) handleRevoke(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := p.auth.Revoke(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to revoke authentication: %v", err)), nil
	}
	return jsonResult(map[string]interface{}{
		"status":  "success",
		"message": "Authentication revoked successfully",
	})
}
