package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
)

type statusBody struct {
	Status       string  `json:"status" validate:"required,job_status"`
	ProposedDate *string `json:"proposed_date,omitempty" validate:"omitempty,day"`
}

func decode(t *testing.T, body string) (statusBody, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest statusBody
	err := DecodeJSONBody(req, &dest)
	return dest, err
}

func fieldDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %#v", typed.Details())
	}
	return details
}

func TestDecodeAcceptsStatusTokensAndDays(t *testing.T) {
	for _, body := range []string{
		`{"status":"En Route"}`,
		`{"status":"en_route","proposed_date":"2024-03-09"}`,
		`{"status":"completed","proposed_date":"2024-03-09T08:00:00-05:00"}`,
		`{"status":"Scheduled","proposed_date":""}`,
	} {
		if _, err := decode(t, body); err != nil {
			t.Fatalf("body %s: %v", body, err)
		}
	}
}

func TestDecodeRejectsUnknownStatus(t *testing.T) {
	_, err := decode(t, `{"status":"teleported"}`)
	details := fieldDetails(t, err)
	if msg := details["status"]; !strings.HasPrefix(msg, "must be one of Scheduled") {
		t.Fatalf("unexpected status message %q", msg)
	}
}

func TestDecodeRejectsMalformedDay(t *testing.T) {
	_, err := decode(t, `{"status":"Scheduled","proposed_date":"03/09/2024"}`)
	details := fieldDetails(t, err)
	if details["proposed_date"] != "must be formatted as yyyy-mm-dd" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := decode(t, `{"status":"Scheduled","plate":"p1"}`)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now := func() time.Time { return time.Date(2024, 3, 5, 3, 0, 0, 0, time.UTC) }

	req := httptest.NewRequest(http.MethodGet, "/?date=2024-03-09", nil)
	day, err := ParseQueryDay(req, "date", loc, now)
	if err != nil {
		t.Fatalf("ParseQueryDay: %v", err)
	}
	if !day.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected day %v", day)
	}

	day, err = ParseQueryDay(httptest.NewRequest(http.MethodGet, "/", nil), "date", loc, now)
	if err != nil {
		t.Fatalf("ParseQueryDay default: %v", err)
	}
	if day.Day() != 4 || day.Location() != loc {
		t.Fatalf("expected the local calendar day, got %v", day)
	}

	_, err = ParseQueryDay(httptest.NewRequest(http.MethodGet, "/?date=tomorrow", nil), "date", loc, now)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseOptionalDay(t *testing.T) {
	if day, err := ParseOptionalDay(nil, "new_date", time.UTC); err != nil || day != nil {
		t.Fatalf("expected nil day, got %v %v", day, err)
	}
	blank := "  "
	if day, err := ParseOptionalDay(&blank, "new_date", time.UTC); err != nil || day != nil {
		t.Fatalf("expected blank to mean no day, got %v %v", day, err)
	}
	bad := "soon"
	_, err := ParseOptionalDay(&bad, "new_date", time.UTC)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if details, _ := typed.Details().(map[string]any); details["field"] != "new_date" {
		t.Fatalf("unexpected details %v", typed.Details())
	}
}

func TestParseQueryList(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?topics=Jobs,%20plates,,jobs", nil)
	got := ParseQueryList(req, "topics")
	if len(got) != 2 || got[0] != "jobs" || got[1] != "plates" {
		t.Fatalf("unexpected topics %v", got)
	}
	if got := ParseQueryList(httptest.NewRequest(http.MethodGet, "/", nil), "topics"); got != nil {
		t.Fatalf("expected no topics, got %v", got)
	}
}

func TestSanitizeString(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{in: "  customer away \t", max: 0, want: "customer away"},
		{in: "gate\x00 code\x07 4471", max: 0, want: "gate code 4471"},
		{in: "line one\nline two", max: 0, want: "line one\nline two"},
		{in: "señor ñandú", max: 7, want: "señor ñ"},
		{in: "abc def", max: 4, want: "abc"},
	}
	for _, tc := range cases {
		if got := SanitizeString(tc.in, tc.max); got != tc.want {
			t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}
