package config

import "testing"

func TestEnv_Bool(t *testing.T) {
	tests := []struct {
		raw     string
		present bool
		want    bool
		wantSet bool
	}{
		{"1", true, true, true},
		{"true", true, true, true},
		{"YES", true, true, true},
		{" on ", true, true, true},
		{"0", true, false, true},
		{"false", true, false, true},
		{"nope", true, false, true},
		{"", true, false, false},
		{"", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			env := Env{}
			if tt.present {
				env[EnvIgnoreGlobal] = tt.raw
			}
			got, set := env.Bool(EnvIgnoreGlobal)
			if got != tt.want || set != tt.wantSet {
				t.Errorf("Bool(%q) = (%v, %v), want (%v, %v)", tt.raw, got, set, tt.want, tt.wantSet)
			}
		})
	}
}

func TestEnv_Proxy(t *testing.T) {
	tests := []struct {
		name string
		env  Env
		want string
	}{
		{"none", Env{}, ""},
		{"explicit_wins", Env{EnvProxy: "http://a:1", "HTTPS_PROXY": "http://b:2"}, "http://a:1"},
		{"https_before_http", Env{"HTTP_PROXY": "http://c:3", "HTTPS_PROXY": "http://b:2"}, "http://b:2"},
		{"lowercase", Env{"http_proxy": "http://d:4"}, "http://d:4"},
		{"all_proxy", Env{"ALL_PROXY": "socks5://e:5"}, "socks5://e:5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.env.proxy(); got != tt.want {
				t.Errorf("proxy() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnvFromOS(t *testing.T) {
	t.Setenv(EnvVendorDir, "/tmp/somewhere")

	env := EnvFromOS()
	if got := env.Get(EnvVendorDir); got != "/tmp/somewhere" {
		t.Errorf("Get(%s) = %q", EnvVendorDir, got)
	}
}
