package auth

import "testing"

func TestParseFragment(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Fragment
		wantErr bool
	}{
		{
			name: "bare",
			raw:  "access_token=abc.def.ghi&refresh_token=r1&expires_in=3600&token_type=bearer",
			want: Fragment{AccessToken: "abc.def.ghi", RefreshToken: "r1", ExpiresIn: "3600"},
		},
		{
			name: "leading hash",
			raw:  "#access_token=abc&expires_in=10",
			want: Fragment{AccessToken: "abc", ExpiresIn: "10"},
		},
		{
			name: "whole url",
			raw:  "https://example.com/auth/callback#access_token=abc&refresh_token=r2&expires_in=60",
			want: Fragment{AccessToken: "abc", RefreshToken: "r2", ExpiresIn: "60"},
		},
		{
			name:    "no access token",
			raw:     "refresh_token=r1",
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFragment(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseFragment() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFragment() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("ParseFragment() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
