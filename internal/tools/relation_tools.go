package tools

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (p *Provider) registerRelationTools(s *server.MCPServer) {
	relatedTool := mcp.NewTool("get_related_records",
		mcp.WithDescription("Get records related to a specific CRM record."),
		mcp.WithString("module_name",
			mcp.Required(),
			mcp.Description("Name of the parent module (e.g. 'Accounts')"),
		),
		mcp.WithString("record_id",
			mcp.Required(),
			mcp.Description("ID of the parent record"),
		),
		mcp.WithString("related_module",
			mcp.Required(),
			mcp.Description("Name of the related module (e.g. 'Contacts', 'Deals')"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number (default 1)"),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Records per page (default and max 200)"),
		),
	)
	s.AddTool(relatedTool, p.handleGetRelatedRecords)

	convertTool := mcp.NewTool("convert_lead",
		mcp.WithDescription("Convert a lead into an Account, Contact and optionally a Deal."),
		mcp.WithString("lead_id",
			mcp.Required(),
			mcp.Description("ID of the lead to convert"),
		),
		mcp.WithObject("convert_data",
			mcp.Required(),
			mcp.Description("Conversion options: overwrite, notify_lead_owner, notify_new_entity_owner, and optional Accounts/Contacts/Deals objects"),
		),
	)
	s.AddTool(convertTool, p.handleConvertLead)
}

func (p *Provider) handleGetRelatedRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moduleName, err := request.RequireString("module_name")
	if err != nil {
		return mcp.NewToolResultError("module_name argument is required"), nil
	}
	recordID, err := request.RequireString("record_id")
	if err != nil {
		return mcp.NewToolResultError("record_id argument is required"), nil
	}
	relatedModule, err := request.RequireString("related_module")
	if err != nil {
		return mcp.NewToolResultError("related_module argument is required"), nil
	}
	page := pageOrDefault(request.GetInt("page", 1))
	perPage := clampPerPage(request.GetInt("per_page", maxPerPage))

	query := url.Values{
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	raw, err := p.crm.Get(ctx, moduleName+"/"+recordID+"/"+relatedModule, query)
	if err != nil {
		return errorResult(err)
	}

	payload, err := decodeList(raw)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(map[string]interface{}{
		"status":          "success",
		"module":          moduleName,
		"record_id":       recordID,
		"related_module":  relatedModule,
		"count":           len(payload.Data),
		"page_info":       payload.pageInfo(page, perPage),
		"related_records": payload.Data,
	})
}

func (p *Provider) handleConvertLead(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	leadID, err := request.RequireString("lead_id")
	if err != nil {
		return mcp.NewToolResultError("lead_id argument is required"), nil
	}
	convertData, err := objectArg(request, "convert_data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{"data": []map[string]interface{}{convertData}}
	raw, err := p.crm.Call(ctx, http.MethodPost, "Leads/"+leadID+"/actions/convert", nil, body)
	if err != nil {
		return errorResult(err)
	}

	payload, err := decodeList(raw)
	if err != nil {
		return errorResult(err)
	}

	var conversion map[string]interface{}
	if len(payload.Data) > 0 {
		conversion = payload.Data[0]
	}
	return jsonResult(map[string]interface{}{
		"status":            "success",
		"lead_id":           leadID,
		"message":           "Lead converted successfully",
		"conversion_result": conversion,
	})
}
