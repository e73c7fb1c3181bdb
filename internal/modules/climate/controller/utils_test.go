package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func Test_parseDateParam(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		strict  bool
		want    string
		wantErr bool
	}{
		{name: "lenient passes anything", value: "not-a-date", want: "not-a-date"},
		{name: "lenient passes empty", value: "", want: ""},
		{name: "strict valid", value: "2016-08-23", strict: true, want: "2016-08-23"},
		{name: "strict leap day", value: "2016-02-29", strict: true, want: "2016-02-29"},
		{name: "strict non leap day", value: "2017-02-29", strict: true, wantErr: true},
		{name: "strict timestamp", value: "2016-08-23T00:00:00Z", strict: true, wantErr: true},
		{name: "strict slashes", value: "2016/08/23", strict: true, wantErr: true},
		{name: "strict empty", value: "", strict: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.SetPathValue("start", tt.value)

			got, err := parseDateParam(r, "start", tt.strict)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseDateParam(%q) error = nil, want non-nil", tt.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDateParam(%q) error = %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("parseDateParam(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
