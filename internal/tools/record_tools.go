package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (p *Provider) registerRecordTools(s *server.MCPServer) {
	getRecordsTool := mcp.NewTool("get_records",
		mcp.WithDescription("Get records from a CRM module, paginated and sorted."),
		mcp.WithString("module_name",
			mcp.Required(),
			mcp.Description("Name of the module (e.g. 'Leads', 'Contacts', 'Deals')"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number (default 1)"),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Records per page (default and max 200)"),
		),
		mcp.WithString("sort_order",
			mcp.Description("Sort order 'asc' or 'desc' (default 'desc')"),
		),
		mcp.WithString("sort_by",
			mcp.Description("Field to sort by (default 'Modified_Time')"),
		),
	)
	s.AddTool(getRecordsTool, p.handleGetRecords)

	getRecordTool := mcp.NewTool("get_record_by_id",
		mcp.WithDescription("Get a single CRM record by its ID."),
		mcp.WithString("module_name",
			mcp.Required(),
			mcp.Description("Name of the module"),
		),
		mcp.WithString("record_id",
			mcp.Required(),
			mcp.Description("ID of the record to retrieve"),
		),
	)
	s.AddTool(getRecordTool, p.handleGetRecordByID)

	searchTool := mcp.NewTool("search_records",
		mcp.WithDescription("Search records in a CRM module using Zoho criteria syntax."),
		mcp.WithString("module_name",
			mcp.Required(),
			mcp.Description("Name of the module"),
		),
		mcp.WithString("criteria",
			mcp.Required(),
			mcp.Description("Search criteria, e.g. '(Email:equals:john@example.com)'"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number (default 1)"),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Records per page (default and max 200)"),
		),
	)
	s.AddTool(searchTool, p.handleSearchRecords)

	createTool := mcp.NewTool("create_record",
		mcp.WithDescription("Create a new record in a CRM module."),
		mcp.WithString("module_name",
			mcp.Required(),
			mcp.Description("Name of the module"),
		),
		mcp.WithObject("record_data",
			mcp.Required(),
			mcp.Description("Record fields and values"),
		),
		mcp.WithBoolean("trigger_workflow",
			mcp.Description("Whether Zoho automations run for this change (default true)"),
		),
	)
	s.AddTool(createTool, p.handleCreateRecord)

	updateTool := mcp.NewTool("update_record",
		mcp.WithDescription("Update an existing record in a CRM module."),
		mcp.WithString("module_name",
			mcp.Required(),
			mcp.Description("Name of the module"),
		),
		mcp.WithString("record_id",
			mcp.Required(),
			mcp.Description("ID of the record to update"),
		),
		mcp.WithObject("record_data",
			mcp.Required(),
			mcp.Description("Fields to update and their new values"),
		),
		mcp.WithBoolean("trigger_workflow",
			mcp.Description("Whether Zoho automations run for this change (default true)"),
		),
	)
	s.AddTool(updateTool, p.handleUpdateRecord)

	deleteTool := mcp.NewTool("delete_record",
		mcp.WithDescription("Delete a record from a CRM module."),
		mcp.WithString("module_name",
			mcp.Required(),
			mcp.Description("Name of the module"),
		),
		mcp.WithString("record_id",
			mcp.Required(),
			mcp.Description("ID of the record to delete"),
		),
	)
	s.AddTool(deleteTool, p.handleDeleteRecord)

	bulkCreateTool := mcp.NewTool("bulk_create_records",
		mcp.WithDescription("Create up to 100 records in a CRM module in one call."),
		mcp.WithString("module_name",
			mcp.Required(),
			mcp.Description("Name of the module"),
		),
		mcp.WithArray("records_data",
			mcp.Required(),
			mcp.Description("List of record objects (max 100)"),
		),
		mcp.WithBoolean("trigger_workflow",
			mcp.Description("Whether Zoho automations run for this change (default true)"),
		),
	)
	s.AddTool(bulkCreateTool, p.handleBulkCreateRecords)

	countTool := mcp.NewTool("get_record_count",
		mcp.WithDescription("Get the number of records in a CRM module, optionally filtered by criteria."),
		mcp.WithString("module_name",
			mcp.Required(),
			mcp.Description("Name of the module"),
		),
		mcp.WithString("criteria",
			mcp.Description("Optional search criteria to filter records"),
		),
	)
	s.AddTool(countTool, p.handleGetRecordCount)
}

func (p *Provider) handleGetRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moduleName, err := request.RequireString("module_name")
	if err != nil {
		return mcp.NewToolResultError("module_name argument is required"), nil
	}
	page := pageOrDefault(request.GetInt("page", 1))
	perPage := clampPerPage(request.GetInt("per_page", maxPerPage))
	sortOrder := request.GetString("sort_order", "desc")
	sortBy := request.GetString("sort_by", "Modified_Time")

	query := url.Values{
		"page":       {strconv.Itoa(page)},
		"per_page":   {strconv.Itoa(perPage)},
		"sort_order": {sortOrder},
		"sort_by":    {sortBy},
	}
	raw, err := p.crm.Get(ctx, moduleName, query)
	if err != nil {
		return errorResult(err)
	}

	payload, err := decodeList(raw)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(map[string]interface{}{
		"status":    "success",
		"module":    moduleName,
		"count":     len(payload.Data),
		"page_info": payload.pageInfo(page, perPage),
		"records":   payload.Data,
	})
}

func (p *Provider) handleGetRecordByID(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moduleName, err := request.RequireString("module_name")
	if err != nil {
		return mcp.NewToolResultError("module_name argument is required"), nil
	}
	recordID, err := request.RequireString("record_id")
	if err != nil {
		return mcp.NewToolResultError("record_id argument is required"), nil
	}

	raw, err := p.crm.Get(ctx, moduleName+"/"+recordID, nil)
	if err != nil {
		return errorResult(err)
	}

	payload, err := decodeList(raw)
	if err != nil {
		return errorResult(err)
	}

	var record map[string]interface{}
	if len(payload.Data) > 0 {
		record = payload.Data[0]
	}
	return jsonResult(map[string]interface{}{
		"status":    "success",
		"module":    moduleName,
		"record_id": recordID,
		"record":    record,
	})
}

func (p *Provider) handleSearchRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moduleName, err := request.RequireString("module_name")
	if err != nil {
		return mcp.NewToolResultError("module_name argument is required"), nil
	}
	criteria, err := request.RequireString("criteria")
	if err != nil {
		return mcp.NewToolResultError("criteria argument is required"), nil
	}
	page := pageOrDefault(request.GetInt("page", 1))
	perPage := clampPerPage(request.GetInt("per_page", maxPerPage))

	query := url.Values{
		"criteria": {criteria},
		"page":     {strconv.Itoa(page)},
		"per_page": {strconv.Itoa(perPage)},
	}
	raw, err := p.crm.Get(ctx, moduleName+"/search", query)
	if err != nil {
		return errorResult(err)
	}

	payload, err := decodeList(raw)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(map[string]interface{}{
		"status":    "success",
		"module":    moduleName,
		"criteria":  criteria,
		"count":     len(payload.Data),
		"page_info": payload.pageInfo(page, perPage),
		"records":   payload.Data,
	})
}

// writeBody builds Zoho's insert/update body. trigger_workflow=false maps
// to an empty trigger list, which tells Zoho to run no automations.
func writeBody(records []map[string]interface{}, triggerWorkflow bool) map[string]interface{} {
	body := map[string]interface{}{"data": records}
	if !triggerWorkflow {
		body["trigger"] = []string{}
	}
	return body
}

func (p *Provider) handleCreateRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moduleName, err := request.RequireString("module_name")
	if err != nil {
		return mcp.NewToolResultError("module_name argument is required"), nil
	}
	recordData, err := objectArg(request, "record_data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	triggerWorkflow := request.GetBool("trigger_workflow", true)

	raw, err := p.crm.Call(ctx, http.MethodPost, moduleName, nil,
		writeBody([]map[string]interface{}{recordData}, triggerWorkflow))
	if err != nil {
		return errorResult(err)
	}

	payload, err := decodeList(raw)
	if err != nil {
		return errorResult(err)
	}

	var created map[string]interface{}
	if len(payload.Data) > 0 {
		created = payload.Data[0]
	}
	return jsonResult(map[string]interface{}{
		"status":         "success",
		"module":         moduleName,
		"message":        "Record created successfully",
		"created_record": created,
	})
}

func (p *Provider) handleUpdateRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moduleName, err := request.RequireString("module_name")
	if err != nil {
		return mcp.NewToolResultError("module_name argument is required"), nil
	}
	recordID, err := request.RequireString("record_id")
	if err != nil {
		return mcp.NewToolResultError("record_id argument is required"), nil
	}
	recordData, err := objectArg(request, "record_data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	triggerWorkflow := request.GetBool("trigger_workflow", true)

	recordData["id"] = recordID
	raw, err := p.crm.Call(ctx, http.MethodPut, moduleName+"/"+recordID, nil,
		writeBody([]map[string]interface{}{recordData}, triggerWorkflow))
	if err != nil {
		return errorResult(err)
	}

	payload, err := decodeList(raw)
	if err != nil {
		return errorResult(err)
	}

	var updated map[string]interface{}
	if len(payload.Data) > 0 {
		updated = payload.Data[0]
	}
	return jsonResult(map[string]interface{}{
		"status":         "success",
		"module":         moduleName,
		"record_id":      recordID,
		"message":        "Record updated successfully",
		"updated_record": updated,
	})
}

func (p *Provider) handleDeleteRecord(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moduleName, err := request.RequireString("module_name")
	if err != nil {
		return mcp.NewToolResultError("module_name argument is required"), nil
	}
	recordID, err := request.RequireString("record_id")
	if err != nil {
		return mcp.NewToolResultError("record_id argument is required"), nil
	}

	raw, err := p.crm.Call(ctx, http.MethodDelete, moduleName+"/"+recordID, nil, nil)
	if err != nil {
		return errorResult(err)
	}

	payload, err := decodeList(raw)
	if err != nil {
		return errorResult(err)
	}

	var deleted map[string]interface{}
	if len(payload.Data) > 0 {
		deleted = payload.Data[0]
	}
	return jsonResult(map[string]interface{}{
		"status":         "success",
		"module":         moduleName,
		"record_id":      recordID,
		"message":        "Record deleted successfully",
		"deleted_record": deleted,
	})
}

func (p *Provider) handleBulkCreateRecords(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moduleName, err := request.RequireString("module_name")
	if err != nil {
		return mcp.NewToolResultError("module_name argument is required"), nil
	}
	records, err := arrayArg(request, "records_data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(records) > maxBulkRecords {
		return mcp.NewToolResultError(fmt.Sprintf("Maximum %d records allowed per bulk operation", maxBulkRecords)), nil
	}
	triggerWorkflow := request.GetBool("trigger_workflow", true)

	raw, err := p.crm.Call(ctx, http.MethodPost, moduleName, nil, writeBody(records, triggerWorkflow))
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
		"message":         fmt.Sprintf("%d records created successfully", len(payload.Data)),
		"created_records": payload.Data,
	})
}

func (p *Provider) handleGetRecordCount(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moduleName, err := request.RequireString("module_name")
	if err != nil {
		return mcp.NewToolResultError("module_name argument is required"), nil
	}
	criteria := request.GetString("criteria", "")

	query := url.Values{}
	if criteria != "" {
		query.Set("criteria", criteria)
	}
	raw, err := p.crm.Get(ctx, moduleName+"/actions/count", query)
	if err != nil {
		return errorResult(err)
	}

	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errorResult(fmt.Errorf("unexpected CRM response shape: %w", err))
	}

	envelope := map[string]interface{}{
		"status": "success",
		"module": moduleName,
		"count":  payload.Count,
	}
	if criteria != "" {
		envelope["criteria"] = criteria
	}
	return jsonResult(envelope)
}
