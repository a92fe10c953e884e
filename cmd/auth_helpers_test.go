package cmd

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{30 * time.Second, "< 1 minute"},
		{1 * time.Minute, "1 minute"},
		{45 * time.Minute, "45 minutes"},
		{1 * time.Hour, "1 hour"},
		{5 * time.Hour, "5 hours"},
		{24 * time.Hour, "1 day"},
		{72 * time.Hour, "3 days"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.in); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatExpiryWithDirection(t *testing.T) {
	future := formatExpiryWithDirection(time.Now().Add(2 * time.Hour))
	if !strings.HasPrefix(future, "in ") {
		t.Errorf("future expiry = %q, want 'in ...' prefix", future)
	}

	past := formatExpiryWithDirection(time.Now().Add(-2 * time.Hour))
	if !strings.Contains(past, "expired") || !strings.Contains(past, "ago") {
		t.Errorf("past expiry = %q, want 'expired ... ago'", past)
	}
}

func TestBuildStackFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ZOHO_CLIENT_ID", "1000.ABC")
	t.Setenv("ZOHO_CLIENT_SECRET", "secret")
	t.Setenv("TOKEN_FILE_PATH", filepath.Join(dir, "tokens", "zoho.json"))

	st, err := buildStack(dir)
	if err != nil {
		t.Fatalf("buildStack failed: %v", err)
	}
	if st.flow == nil || st.crm == nil || st.store == nil {
		t.Fatal("buildStack returned incomplete stack")
	}
	if st.config.Zoho.ClientID != "1000.ABC" {
		t.Errorf("ClientID = %q, want value from env", st.config.Zoho.ClientID)
	}
}

func TestBuildStackMissingCredentials(t *testing.T) {
	t.Setenv("ZOHO_CLIENT_ID", "")
	t.Setenv("ZOHO_CLIENT_SECRET", "")

	_, err := buildStack(t.TempDir())
	if err == nil {
		t.Fatal("buildStack should fail without client credentials")
	}
}
