package release

import "testing"

func names(list ...string) []Asset {
	assets := make([]Asset, len(list))
	for i, n := range list {
		assets[i] = Asset{ID: int64(i + 1), Name: n, Size: 100}
	}
	return assets
}

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Platform
	}{
		{"mac safari", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15", Platform{OSMac, ArchX64}},
		{"darwin arm", "darwin-arm64", Platform{OSMac, ArchARM64}},
		{"apple silicon", "Mac Apple Silicon", Platform{OSMac, ArchARM64}},
		{"windows x64", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", Platform{OSWindows, ArchX64}},
		{"windows wow64", "Mozilla/5.0 (Windows NT 6.1; WOW64)", Platform{OSWindows, ArchARM64}},
		{"windows arm", "Windows NT 10.0; ARM64", Platform{OSWindows, ArchARM64}},
		{"windows 32", "Mozilla/5.0 (Windows NT 10.0)", Platform{OSWindows, ArchX86}},
		{"linux x86_64", "Mozilla/5.0 (X11; Linux x86_64)", Platform{OSLinux, ArchX64}},
		{"linux aarch64", "Mozilla/5.0 (X11; Linux aarch64)", Platform{OSLinux, ArchARM64}},
		{"linux i686", "Mozilla/5.0 (X11; Linux i686)", Platform{OSLinux, ArchX86}},
		{"unknown", "curl/8.1.2", Platform{OSUnknown, ArchUnknown}},
		{"empty", "", Platform{OSUnknown, ArchUnknown}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DetectPlatform(c.in); got != c.want {
				t.Errorf("DetectPlatform(%q) = %+v, want %+v", c.in, got, c.want)
			}
		})
	}
}

func TestSelectAsset(t *testing.T) {
	cases := []struct {
		name     string
		platform string
		assets   []Asset
		want     string
	}{
		{
			name:     "darwin picks the mac build",
			platform: "Darwin",
			assets:   names("app-win.exe", "app-mac-arm64.dmg", "app-linux.AppImage"),
			want:     "app-mac-arm64.dmg",
		},
		{
			name:     "windows without windows asset falls back to first",
			platform: "Windows",
			assets:   names("app-mac.dmg", "app-linux.deb"),
			want:     "app-mac.dmg",
		},
		{
			name:     "mac arm prefers arm token",
			platform: "Macintosh; ARM Mac OS X",
			assets:   names("app-x64.dmg", "app-arm64.dmg"),
			want:     "app-arm64.dmg",
		},
		{
			name:     "mac defaults to intel",
			platform: "Macintosh; Intel Mac OS X 10_15_7",
			assets:   names("app-arm64.dmg", "app-intel.dmg"),
			want:     "app-intel.dmg",
		},
		{
			name:     "linux x64 matches amd64",
			platform: "X11; Linux x86_64",
			assets:   names("app-setup.exe", "app_arm64.deb", "app_amd64.deb"),
			want:     "app_amd64.deb",
		},
		{
			name:     "suffix match is case insensitive",
			platform: "X11; Linux i686",
			assets:   names("App.dmg", "App.AppImage"),
			want:     "App.AppImage",
		},
		{
			name:     "x86 has no tokens so first os candidate wins",
			platform: "Windows NT 10.0",
			assets:   names("app.dmg", "app-x64.msi", "app-ia32.exe"),
			want:     "app-x64.msi",
		},
		{
			name:     "unknown os applies no filter",
			platform: "curl/8.1.2",
			assets:   names("app.tar.gz", "app.exe"),
			want:     "app.tar.gz",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := SelectAsset(c.platform, c.assets)
			if got == nil {
				t.Fatal("SelectAsset returned nil")
			}
			if got.Name != c.want {
				t.Errorf("SelectAsset(%q) = %q, want %q", c.platform, got.Name, c.want)
			}
		})
	}
}

func TestSelectAssetEmpty(t *testing.T) {
	for _, platform := range []string{"", "Darwin", "Windows", "Linux", "garbage"} {
		if got := SelectAsset(platform, nil); got != nil {
			t.Errorf("SelectAsset(%q, nil) = %+v, want nil", platform, got)
		}
		if got := SelectAsset(platform, []Asset{}); got != nil {
			t.Errorf("SelectAsset(%q, []) = %+v, want nil", platform, got)
		}
	}
}

func TestSelectAssetNeverNil(t *testing.T) {
	platforms := []string{"", "Darwin", "Windows; Win64", "Linux aarch64", "PlayStation", "mac arm"}
	lists := [][]Asset{
		names("only.zip"),
		names("a.exe", "b.dmg"),
		names("checksums.txt", "notes.md", "source.zip"),
	}
	for _, p := range platforms {
		for _, assets := range lists {
			got := SelectAsset(p, assets)
			if got == nil {
				t.Fatalf("SelectAsset(%q, %v) = nil", p, assets)
			}
			found := false
			for i := range assets {
				if &assets[i] == got {
					found = true
				}
			}
			if !found {
				t.Errorf("SelectAsset(%q) returned an asset outside the input", p)
			}
		}
	}
}
