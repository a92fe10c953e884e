package tools

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zohomcp/internal/oauth"
	"zohomcp/internal/tokenstore"
)

// fakeCRM records the last request and returns a canned response.
type fakeCRM struct {
	lastMethod string
	lastPath   string
	lastQuery  url.Values
	lastBody   interface{}
	response   json.RawMessage
	err        error
}

func (f *fakeCRM) Call(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	f.lastMethod = method
	f.lastPath = path
	f.lastQuery = query
	f.lastBody = body
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeCRM) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return f.Call(ctx, "GET", path, query, nil)
}

type fakeAuth struct {
	record       *tokenstore.Record
	ensureErr    error
	authorizeErr error
	authorized   bool
	revoked      bool
	revokeErr    error
}

func (f *fakeAuth) Authorize(ctx context.Context) (*tokenstore.Record, error) {
	f.authorized = true
	if f.authorizeErr != nil {
		return nil, f.authorizeErr
	}
	return f.record, nil
}

func (f *fakeAuth) EnsureRecord(ctx context.Context) (*tokenstore.Record, error) {
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	return f.record, nil
}

func (f *fakeAuth) Revoke(ctx context.Context) error {
	f.revoked = true
	return f.revokeErr
}

func newRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content")
	return text.Text
}

func resultEnvelope(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.False(t, result.IsError, "unexpected error result: %s", resultText(t, result))
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &envelope))
	return envelope
}

func newTestProvider(crmResponse string) (*Provider, *fakeCRM, *fakeAuth) {
	crmClient := &fakeCRM{response: json.RawMessage(crmResponse)}
	auth := &fakeAuth{record: &tokenstore.Record{AccessToken: "token"}}
	return NewProvider(crmClient, auth, true), crmClient, auth
}

func TestGetRecords(t *testing.T) {
	provider, crmClient, _ := newTestProvider(
		`{"data":[{"id":"1","Last_Name":"Doe"}],"info":{"page":1,"per_page":200,"count":1,"more_records":true}}`)

	result, err := provider.handleGetRecords(context.Background(), newRequest(map[string]interface{}{
		"module_name": "Leads",
	}))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.Equal(t, "success", envelope["status"])
	assert.Equal(t, "Leads", envelope["module"])
	assert.EqualValues(t, 1, envelope["count"])

	pageInfo := envelope["page_info"].(map[string]interface{})
	assert.EqualValues(t, 1, pageInfo["page"])
	assert.Equal(t, true, pageInfo["more_records"])

	assert.Equal(t, "Leads", crmClient.lastPath)
	assert.Equal(t, "1", crmClient.lastQuery.Get("page"))
	assert.Equal(t, "200", crmClient.lastQuery.Get("per_page"))
	assert.Equal(t, "desc", crmClient.lastQuery.Get("sort_order"))
	assert.Equal(t, "Modified_Time", crmClient.lastQuery.Get("sort_by"))
}

func TestGetRecordsClampsPerPage(t *testing.T) {
	provider, crmClient, _ := newTestProvider(`{"data":[]}`)

	_, err := provider.handleGetRecords(context.Background(), newRequest(map[string]interface{}{
		"module_name": "Leads",
		"per_page":    float64(5000),
		"page":        float64(3),
	}))
	require.NoError(t, err)
	assert.Equal(t, "200", crmClient.lastQuery.Get("per_page"))
	assert.Equal(t, "3", crmClient.lastQuery.Get("page"))
}

func TestGetRecordsMissingModule(t *testing.T) {
	provider, _, _ := newTestProvider(`{}`)

	result, err := provider.handleGetRecords(context.Background(), newRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "module_name")
}

func TestGetRecordByID(t *testing.T) {
	provider, crmClient, _ := newTestProvider(`{"data":[{"id":"42","Email":"a@b.c"}]}`)

	result, err := provider.handleGetRecordByID(context.Background(), newRequest(map[string]interface{}{
		"module_name": "Contacts",
		"record_id":   "42",
	}))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.Equal(t, "42", envelope["record_id"])
	record := envelope["record"].(map[string]interface{})
	assert.Equal(t, "a@b.c", record["Email"])
	assert.Equal(t, "Contacts/42", crmClient.lastPath)
}

func TestSearchRecords(t *testing.T) {
	provider, crmClient, _ := newTestProvider(`{"data":[{"id":"1"}],"info":{"more_records":false}}`)

	result, err := provider.handleSearchRecords(context.Background(), newRequest(map[string]interface{}{
		"module_name": "Leads",
		"criteria":    "(Email:equals:john@example.com)",
	}))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.Equal(t, "(Email:equals:john@example.com)", envelope["criteria"])
	assert.Equal(t, "Leads/search", crmClient.lastPath)
	assert.Equal(t, "(Email:equals:john@example.com)", crmClient.lastQuery.Get("criteria"))
}

func TestCreateRecord(t *testing.T) {
	provider, crmClient, _ := newTestProvider(`{"data":[{"code":"SUCCESS","details":{"id":"100"}}]}`)

	result, err := provider.handleCreateRecord(context.Background(), newRequest(map[string]interface{}{
		"module_name": "Leads",
		"record_data": map[string]interface{}{"Last_Name": "Doe"},
	}))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.Equal(t, "Record created successfully", envelope["message"])
	assert.Equal(t, "POST", crmClient.lastMethod)
	assert.Equal(t, "Leads", crmClient.lastPath)

	body := crmClient.lastBody.(map[string]interface{})
	assert.NotContains(t, body, "trigger")
	data := body["data"].([]map[string]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "Doe", data[0]["Last_Name"])
}

func TestCreateRecordSuppressesWorkflows(t *testing.T) {
	provider, crmClient, _ := newTestProvider(`{"data":[]}`)

	_, err := provider.handleCreateRecord(context.Background(), newRequest(map[string]interface{}{
		"module_name":      "Leads",
		"record_data":      map[string]interface{}{"Last_Name": "Doe"},
		"trigger_workflow": false,
	}))
	require.NoError(t, err)

	body := crmClient.lastBody.(map[string]interface{})
	// An empty trigger list tells Zoho to run no automations.
	assert.Equal(t, []string{}, body["trigger"])
}

func TestUpdateRecordInjectsID(t *testing.T) {
	provider, crmClient, _ := newTestProvider(`{"data":[{"code":"SUCCESS"}]}`)

	_, err := provider.handleUpdateRecord(context.Background(), newRequest(map[string]interface{}{
		"module_name": "Deals",
		"record_id":   "7",
		"record_data": map[string]interface{}{"Stage": "Closed Won"},
	}))
	require.NoError(t, err)

	assert.Equal(t, "PUT", crmClient.lastMethod)
	assert.Equal(t, "Deals/7", crmClient.lastPath)
	body := crmClient.lastBody.(map[string]interface{})
	data := body["data"].([]map[string]interface{})
	assert.Equal(t, "7", data[0]["id"])
}

func TestDeleteRecord(t *testing.T) {
	provider, crmClient, _ := newTestProvider(`{"data":[{"code":"SUCCESS"}]}`)

	result, err := provider.handleDeleteRecord(context.Background(), newRequest(map[string]interface{}{
		"module_name": "Leads",
		"record_id":   "9",
	}))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.Equal(t, "Record deleted successfully", envelope["message"])
	assert.Equal(t, "DELETE", crmClient.lastMethod)
	assert.Equal(t, "Leads/9", crmClient.lastPath)
}

func TestBulkCreateRecordsLimit(t *testing.T) {
	provider, _, _ := newTestProvider(`{"data":[]}`)

	records := make([]interface{}, maxBulkRecords+1)
	for i := range records {
		records[i] = map[string]interface{}{"Last_Name": "Doe"}
	}

	result, err := provider.handleBulkCreateRecords(context.Background(), newRequest(map[string]interface{}{
		"module_name":  "Leads",
		"records_data": records,
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Maximum 100 records")
}

func TestBulkCreateRecords(t *testing.T) {
	provider, crmClient, _ := newTestProvider(`{"data":[{"code":"SUCCESS"},{"code":"SUCCESS"}]}`)

	result, err := provider.handleBulkCreateRecords(context.Background(), newRequest(map[string]interface{}{
		"module_name": "Leads",
		"records_data": []interface{}{
			map[string]interface{}{"Last_Name": "One"},
			map[string]interface{}{"Last_Name": "Two"},
		},
	}))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.Equal(t, "2 records created successfully", envelope["message"])
	body := crmClient.lastBody.(map[string]interface{})
	assert.Len(t, body["data"], 2)
}

func TestGetRecordCount(t *testing.T) {
	provider, crmClient, _ := newTestProvider(`{"count":1234}`)

	result, err := provider.handleGetRecordCount(context.Background(), newRequest(map[string]interface{}{
		"module_name": "Leads",
		"criteria":    "(Lead_Status:equals:New)",
	}))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.EqualValues(t, 1234, envelope["count"])
	assert.Equal(t, "Leads/actions/count", crmClient.lastPath)
	assert.Equal(t, "(Lead_Status:equals:New)", crmClient.lastQuery.Get("criteria"))
}

func TestGetModules(t *testing.T) {
	provider, crmClient, _ := newTestProvider(
		`{"modules":[{"api_name":"Leads","singular_label":"Lead","plural_label":"Leads","module_name":"Leads","creatable":true,"editable":true,"deletable":true,"viewable":true}]}`)

	result, err := provider.handleGetModules(context.Background(), newRequest(nil))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.EqualValues(t, 1, envelope["count"])
	modules := envelope["modules"].([]interface{})
	module := modules[0].(map[string]interface{})
	assert.Equal(t, "Leads", module["api_name"])
	assert.Equal(t, true, module["creatable"])
	assert.Equal(t, "settings/modules", crmClient.lastPath)
}

func TestGetModuleFields(t *testing.T) {
	provider, crmClient, _ := newTestProvider(
		`{"fields":[{"api_name":"Lead_Status","field_label":"Lead Status","data_type":"picklist","pick_list_values":[{"display_value":"New"}]},{"api_name":"Email","field_label":"Email","data_type":"email"}]}`)

	result, err := provider.handleGetModuleFields(context.Background(), newRequest(map[string]interface{}{
		"module_name": "Leads",
	}))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	fields := envelope["fields"].([]interface{})
	require.Len(t, fields, 2)

	picklist := fields[0].(map[string]interface{})
	assert.Contains(t, picklist, "pick_list_values")
	plain := fields[1].(map[string]interface{})
	assert.NotContains(t, plain, "pick_list_values")

	assert.Equal(t, "settings/fields", crmClient.lastPath)
	assert.Equal(t, "Leads", crmClient.lastQuery.Get("module"))
}

func TestGetOrganizationInfo(t *testing.T) {
	provider, _, _ := newTestProvider(
		`{"org":[{"id":"123","company_name":"Acme","primary_email":"ops@acme.test","country":"US","time_zone":"UTC","currency":"USD"}]}`)

	result, err := provider.handleGetOrganizationInfo(context.Background(), newRequest(nil))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	org := envelope["organization"].(map[string]interface{})
	assert.Equal(t, "Acme", org["company_name"])
	assert.Equal(t, "123", org["org_id"])
}

func TestGetUsers(t *testing.T) {
	provider, crmClient, _ := newTestProvider(
		`{"users":[{"id":"u1","full_name":"Jane Doe","email":"jane@acme.test","role":{"name":"CEO"},"profile":{"name":"Administrator"},"status":"active"}]}`)

	result, err := provider.handleGetUsers(context.Background(), newRequest(map[string]interface{}{
		"type_filter": "ActiveUsers",
	}))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.Equal(t, "ActiveUsers", envelope["type_filter"])
	users := envelope["users"].([]interface{})
	user := users[0].(map[string]interface{})
	assert.Equal(t, "CEO", user["role"])
	assert.Equal(t, "ActiveUsers", crmClient.lastQuery.Get("type"))
}

func TestGetRelatedRecords(t *testing.T) {
	provider, crmClient, _ := newTestProvider(`{"data":[{"id":"c1"}],"info":{"more_records":false}}`)

	result, err := provider.handleGetRelatedRecords(context.Background(), newRequest(map[string]interface{}{
		"module_name":    "Accounts",
		"record_id":      "a1",
		"related_module": "Contacts",
	}))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.Equal(t, "Contacts", envelope["related_module"])
	assert.EqualValues(t, 1, envelope["count"])
	assert.Equal(t, "Accounts/a1/Contacts", crmClient.lastPath)
}

func TestConvertLead(t *testing.T) {
	provider, crmClient, _ := newTestProvider(`{"data":[{"Contacts":"c9","Accounts":"a9"}]}`)

	result, err := provider.handleConvertLead(context.Background(), newRequest(map[string]interface{}{
		"lead_id":      "l1",
		"convert_data": map[string]interface{}{"overwrite": true},
	}))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.Equal(t, "Lead converted successfully", envelope["message"])
	conversion := envelope["conversion_result"].(map[string]interface{})
	assert.Equal(t, "c9", conversion["Contacts"])
	assert.Equal(t, "POST", crmClient.lastMethod)
	assert.Equal(t, "Leads/l1/actions/convert", crmClient.lastPath)
}

func TestAuthenticateWithValidSession(t *testing.T) {
	provider, _, auth := newTestProvider(
		`{"users":[{"full_name":"Jane Doe","email":"jane@acme.test","role":{"name":"CEO"},"org":{"company_name":"Acme"}}]}`)

	result, err := provider.handleAuthenticate(context.Background(), newRequest(nil))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.Equal(t, "Successfully authenticated with Zoho CRM", envelope["message"])
	user := envelope["user"].(map[string]interface{})
	assert.Equal(t, "Jane Doe", user["name"])
	assert.Equal(t, "Acme", user["organization"])
	assert.False(t, auth.authorized, "no interactive flow needed for a valid session")
}

func TestAuthenticateRunsInteractiveFlow(t *testing.T) {
	provider, _, auth := newTestProvider(`{"users":[{"full_name":"Jane Doe"}]}`)
	auth.ensureErr = oauth.ErrNotAuthenticated

	result, err := provider.handleAuthenticate(context.Background(), newRequest(nil))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	assert.True(t, auth.authorized)
}

func TestAuthenticateHeadless(t *testing.T) {
	crmClient := &fakeCRM{response: json.RawMessage(`{}`)}
	auth := &fakeAuth{ensureErr: oauth.ErrNotAuthenticated}
	provider := NewProvider(crmClient, auth, false)

	result, err := provider.handleAuthenticate(context.Background(), newRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "zohomcp auth login")
	assert.False(t, auth.authorized)
}

func TestRevokeAuthentication(t *testing.T) {
	provider, _, auth := newTestProvider(`{}`)

	result, err := provider.handleRevoke(context.Background(), newRequest(nil))
	require.NoError(t, err)

	envelope := resultEnvelope(t, result)
	assert.Equal(t, "Authentication revoked successfully", envelope["message"])
	assert.True(t, auth.revoked)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		contains string
	}{
		{"not authenticated", oauth.ErrNotAuthenticated, "authenticate_zoho"},
		{"reauth required", oauth.ErrReauthRequired, "expired"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider, crmClient, _ := newTestProvider(`{}`)
			crmClient.err = tc.err

			result, err := provider.handleGetModules(context.Background(), newRequest(nil))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tc.contains)
		})
	}
}
