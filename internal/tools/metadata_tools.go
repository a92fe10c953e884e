package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (p *Provider) registerMetadataTools(s *server.MCPServer) {
	modulesTool := mcp.NewTool("get_modules",
		mcp.WithDescription("Get all available modules in Zoho CRM with their access metadata."),
	)
	s.AddTool(modulesTool, p.handleGetModules)

	fieldsTool := mcp.NewTool("get_module_fields",
		mcp.WithDescription("Get field definitions for a specific CRM module."),
		mcp.WithString("module_name",
			mcp.Required(),
			mcp.Description("Name of the module (e.g. 'Leads', 'Contacts', 'Deals')"),
		),
	)
	s.AddTool(fieldsTool, p.handleGetModuleFields)

	orgTool := mcp.NewTool("get_organization_info",
		mcp.WithDescription("Get information about the Zoho CRM organization."),
	)
	s.AddTool(orgTool, p.handleGetOrganizationInfo)

	usersTool := mcp.NewTool("get_users",
		mcp.WithDescription("Get information about CRM users."),
		mcp.WithString("type_filter",
			mcp.Description("Type of users to retrieve: AllUsers, ActiveUsers, DeactiveUsers, ConfirmedUsers, NotConfirmedUsers, DeletedUsers, ActiveConfirmedUsers, AdminUsers or ActiveConfirmedAdmins (default AllUsers)"),
		),
	)
	s.AddTool(usersTool, p.handleGetUsers)
}

type modulesPayload struct {
	Modules []struct {
		APIName       string `json:"api_name"`
		SingularLabel string `json:"singular_label"`
		PluralLabel   string `json:"plural_label"`
		ModuleName    string `json:"module_name"`
		Creatable     bool   `json:"creatable"`
		Editable      bool   `json:"editable"`
		Deletable     bool   `json:"deletable"`
		Viewable      bool   `json:"viewable"`
	} `json:"modules"`
}

func (p *Provider) handleGetModules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := p.crm.Get(ctx, "settings/modules", nil)
	if err != nil {
		return errorResult(err)
	}

	var payload modulesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errorResult(fmt.Errorf("unexpected CRM response shape: %w", err))
	}

	modules := make([]map[string]interface{}, 0, len(payload.Modules))
	for _, m := range payload.Modules {
		modules = append(modules, map[string]interface{}{
			"api_name":       m.APIName,
			"singular_label": m.SingularLabel,
			"plural_label":   m.PluralLabel,
			"module_name":    m.ModuleName,
			"creatable":      m.Creatable,
			"editable":       m.Editable,
			"deletable":      m.Deletable,
			"viewable":       m.Viewable,
		})
	}

	return jsonResult(map[string]interface{}{
		"status":  "success",
		"count":   len(modules),
		"modules": modules,
	})
}

type fieldsPayload struct {
	Fields []struct {
		APIName        string          `json:"api_name"`
		FieldLabel     string          `json:"field_label"`
		DataType       string          `json:"data_type"`
		Required       bool            `json:"required"`
		ReadOnly       bool            `json:"read_only"`
		Visible        bool            `json:"visible"`
		Length         int             `json:"length"`
		PickListValues json.RawMessage `json:"pick_list_values"`
	} `json:"fields"`
}

func (p *Provider) handleGetModuleFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	moduleName, err := request.RequireString("module_name")
	if err != nil {
		return mcp.NewToolResultError("module_name argument is required"), nil
	}

	raw, err := p.crm.Get(ctx, "settings/fields", url.Values{"module": {moduleName}})
	if err != nil {
		return errorResult(err)
	}

	var payload fieldsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errorResult(fmt.Errorf("unexpected CRM response shape: %w", err))
	}

	fields := make([]map[string]interface{}, 0, len(payload.Fields))
	for _, f := range payload.Fields {
		entry := map[string]interface{}{
			"api_name":    f.APIName,
			"field_label": f.FieldLabel,
			"data_type":   f.DataType,
			"required":    f.Required,
			"read_only":   f.ReadOnly,
			"visible":     f.Visible,
			"length":      f.Length,
		}
		// Picklist options only make sense for picklist fields.
		if f.DataType == "picklist" && len(f.PickListValues) > 0 {
			entry["pick_list_values"] = f.PickListValues
		}
		fields = append(fields, entry)
	}

	return jsonResult(map[string]interface{}{
		"status": "success",
		"module": moduleName,
		"count":  len(fields),
		"fields": fields,
	})
}

type orgPayload struct {
	Org []struct {
		ID           string `json:"id"`
		CompanyName  string `json:"company_name"`
		PrimaryEmail string `json:"primary_email"`
		Website      string `json:"website"`
		Phone        string `json:"phone"`
		Country      string `json:"country"`
		TimeZone     string `json:"time_zone"`
		Currency     string `json:"currency"`
		MCStatus     bool   `json:"mc_status"`
		GappsEnabled bool   `json:"gapps_enabled"`
	} `json:"org"`
}

func (p *Provider) handleGetOrganizationInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := p.crm.Get(ctx, "org", nil)
	if err != nil {
		return errorResult(err)
	}

	var payload orgPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errorResult(fmt.Errorf("unexpected CRM response shape: %w", err))
	}
	if len(payload.Org) == 0 {
		return errorResult(fmt.Errorf("CRM returned no organization data"))
	}

	org := payload.Org[0]
	return jsonResult(map[string]interface{}{
		"status": "success",
		"organization": map[string]interface{}{
			"org_id":        org.ID,
			"company_name":  org.CompanyName,
			"primary_email": org.PrimaryEmail,
			"website":       org.Website,
			"phone":         org.Phone,
			"country":       org.Country,
			"time_zone":     org.TimeZone,
			"currency":      org.Currency,
			"mc_status":     org.MCStatus,
			"gapps_enabled": org.GappsEnabled,
		},
	})
}

type usersPayload struct {
	Users []struct {
		ID       string `json:"id"`
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Role     struct {
			Name string `json:"name"`
		} `json:"role"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
		Org struct {
			CompanyName string `json:"company_name"`
		} `json:"org"`
		Status       string `json:"status"`
		CreatedTime  string `json:"created_time"`
		ModifiedTime string `json:"modified_time"`
	} `json:"users"`
}

func decodeUsers(raw json.RawMessage) (*usersPayload, error) {
	var payload usersPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("unexpected CRM response shape: %w", err)
	}
	return &payload, nil
}

func (p *Provider) handleGetUsers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeFilter := request.GetString("type_filter", "AllUsers")

	raw, err := p.crm.Get(ctx, "users", url.Values{"type": {typeFilter}})
	if err != nil {
		return errorResult(err)
	}

	payload, err := decodeUsers(raw)
	if err != nil {
		return errorResult(err)
	}

	users := make([]map[string]interface{}, 0, len(payload.Users))
	for _, u := range payload.Users {
		users = append(users, map[string]interface{}{
			"id":            u.ID,
			"full_name":     u.FullName,
			"email":         u.Email,
			"role":          u.Role.Name,
			"profile":       u.Profile.Name,
			"status":        u.Status,
			"created_time":  u.CreatedTime,
			"modified_time": u.ModifiedTime,
		})
	}

	return jsonResult(map[string]interface{}{
		"status":      "success",
		"type_filter": typeFilter,
		"count":       len(users),
		"users":       users,
	})
}
