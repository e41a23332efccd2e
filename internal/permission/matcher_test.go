package permission

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/api/Account/GetList", "/api/account/getlist"},
		{"api/account/getlist", "/api/account/getlist"},
		{"/api/account/getlist/", "/api/account/getlist"},
		{"/api/account/getlist?page=1&size=20", "/api/account/getlist"},
		{"/api/account/getlist#top", "/api/account/getlist"},
		{"/", "/"},
		{"", "/"},
		{"//", "/"},
	}
	for _, c := range cases {
		if got := NormalizePath(c.in); got != c.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizePathIdempotent(t *testing.T) {
	paths := []string{"/api/Videos/123/Detail/", "api/a?b=c", "/", "", "/API/x#frag"}
	for _, p := range paths {
		once := NormalizePath(p)
		if twice := NormalizePath(once); twice != once {
			t.Errorf("NormalizePath not idempotent for %q: %q then %q", p, once, twice)
		}
	}
}

func TestMatchExactURLAndMethod(t *testing.T) {
	perms := []MenuPermission{
		{MenuID: 10, Code: "account", URL: "/api/account/getlist", AllowedMethods: []string{"POST"}},
	}
	if !Match(perms, "/api/account/getList", "POST") {
		t.Error("POST /api/account/getList should be allowed")
	}
	if Match(perms, "/api/account/getList", "GET") {
		t.Error("GET /api/account/getList should be denied")
	}
}

func TestMatchWildcard(t *testing.T) {
	perms := []MenuPermission{
		{MenuID: 20, Code: "videos", URL: "/api/videos/*", AllowedMethods: nil, IsWildcard: true},
	}
	if !Match(perms, "/api/videos/123/detail", "GET") {
		t.Error("wildcard should cover /api/videos/123/detail")
	}
	if Match(perms, "/api/orders/1", "GET") {
		t.Error("wildcard should not cover /api/orders/1")
	}
}

func TestMatchFirstMatchWins(t *testing.T) {
	// The scan is order-dependent: the broad prefix entry decides the verdict
	// even though a later entry is more specific for the same path.
	perms := []MenuPermission{
		{MenuID: 1, Code: "orders", URL: "/api/orders", AllowedMethods: []string{"GET"}},
		{MenuID: 2, Code: "orders-export", URL: "/api/orders/export", AllowedMethods: []string{"POST"}},
	}
	if Match(perms, "/api/orders/export", "POST") {
		t.Error("first matching entry only allows GET; POST must be denied despite the later POST entry")
	}
	if !Match(perms, "/api/orders/export", "GET") {
		t.Error("GET should be allowed by the first matching entry")
	}
}

func TestMatchEmptyMethodsAllowAny(t *testing.T) {
	perms := []MenuPermission{
		{MenuID: 3, Code: "report", URL: "/api/report", AllowedMethods: []string{}},
	}
	for _, m := range []string{"GET", "POST", "DELETE", "PATCH"} {
		if !Match(perms, "/api/report", m) {
			t.Errorf("empty method list should allow %s", m)
		}
	}
}

func TestMatchNoPermissionDenies(t *testing.T) {
	if Match(nil, "/api/anything", "GET") {
		t.Error("empty permission list must deny")
	}
	perms := []MenuPermission{{MenuID: 4, Code: "a", URL: "/api/a"}}
	if Match(perms, "/api/b", "GET") {
		t.Error("unmatched path must deny")
	}
}

func TestMatchNormalizesRequestPath(t *testing.T) {
	perms := []MenuPermission{
		{MenuID: 5, Code: "acct", URL: "/api/account/getlist", AllowedMethods: []string{"POST"}},
	}
	if !Match(perms, "/API/Account/GetList/?page=2", "post") {
		t.Error("path should be normalized before matching")
	}
}
