package platform

import (
	"errors"
	"reflect"
	"testing"
)

func TestKeyString(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "linux with variant",
			key:  Key{OS: "linux", Arch: "x86_64", Variant: "musl"},
			want: "linux-x86_64-musl",
		},
		{
			name: "macos without variant",
			key:  Key{OS: "macos", Arch: "aarch64"},
			want: "macos-aarch64",
		},
		{
			name: "windows",
			key:  Key{OS: "windows", Arch: "i686"},
			want: "windows-i686",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("Key.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		goos    string
		goarch  string
		libc    string
		want    Key
		wantErr bool
	}{
		{
			name:   "linux amd64 gnu",
			goos:   "linux",
			goarch: "amd64",
			libc:   "gnu",
			want:   Key{OS: "linux", Arch: "x86_64", Variant: "gnu"},
		},
		{
			name:   "linux arm64 musl",
			goos:   "linux",
			goarch: "arm64",
			libc:   "musl",
			want:   Key{OS: "linux", Arch: "aarch64", Variant: "musl"},
		},
		{
			name:   "darwin maps to macos",
			goos:   "darwin",
			goarch: "arm64",
			want:   Key{OS: "macos", Arch: "aarch64"},
		},
		{
			name:   "windows 386",
			goos:   "windows",
			goarch: "386",
			want:   Key{OS: "windows", Arch: "i686"},
		},
		{
			name:    "unknown architecture",
			goos:    "linux",
			goarch:  "s390x",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detect(tt.goos, tt.goarch, tt.libc)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedPlatform) {
					t.Fatalf("detect() error = %v, want ErrUnsupportedPlatform", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("detect() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeArch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"amd64", "x86_64"},
		{"x64", "x86_64"},
		{"x86_64", "x86_64"},
		{"arm64", "aarch64"},
		{"aarch64", "aarch64"},
		{"armv7l", "armv7"},
		{"i386", "i686"},
		{"386", "i686"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeArch(tt.in)
			if err != nil {
				t.Fatalf("NormalizeArch(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeArch(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if _, err := NormalizeArch("mips64"); !errors.Is(err, ErrUnsupportedPlatform) {
		t.Errorf("NormalizeArch(mips64) error = %v, want ErrUnsupportedPlatform", err)
	}
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want []string
	}{
		{
			name: "linux musl",
			key:  Key{OS: "linux", Arch: "x86_64", Variant: "musl"},
			want: []string{"linux-x86_64-musl", "linux-x86_64", "linux-x86_64-gnu"},
		},
		{
			name: "linux gnu",
			key:  Key{OS: "linux", Arch: "aarch64", Variant: "gnu"},
			want: []string{"linux-aarch64-gnu", "linux-aarch64", "linux-aarch64-musl"},
		},
		{
			name: "macos has no variants",
			key:  Key{OS: "macos", Arch: "aarch64"},
			want: []string{"macos-aarch64"},
		},
		{
			name: "windows has no variants",
			key:  Key{OS: "windows", Arch: "x86_64"},
			want: []string{"windows-x86_64"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.Candidates(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Candidates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVariantPreference(t *testing.T) {
	linux := Key{OS: "linux", Arch: "x86_64", Variant: "musl"}
	if got := linux.VariantPreference(); !reflect.DeepEqual(got, []string{"musl", "gnu", ""}) {
		t.Errorf("VariantPreference() = %v", got)
	}

	gnu := Key{OS: "linux", Arch: "x86_64", Variant: "gnu"}
	if got := gnu.VariantPreference(); !reflect.DeepEqual(got, []string{"gnu", "musl", ""}) {
		t.Errorf("VariantPreference() = %v", got)
	}

	mac := Key{OS: "macos", Arch: "aarch64"}
	if got := mac.VariantPreference(); !reflect.DeepEqual(got, []string{""}) {
		t.Errorf("VariantPreference() = %v", got)
	}
}
