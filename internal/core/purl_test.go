package core

import (
	"testing"
)

func TestParsePURL(t *testing.T) {
	tests := []struct {
		input    string
		wantNS   string
		wantName string
		wantVer  string
		wantFull string
		wantErr  bool
	}{
		{"pkg:npm/lodash", "", "lodash", "", "lodash", false},
		{"pkg:npm/lodash@4.17.21", "", "lodash", "4.17.21", "lodash", false},
		{"pkg:npm/%40babel/core", "@babel", "core", "", "@babel/core", false},
		{"pkg:npm/%40babel/core@7.24.0", "@babel", "core", "7.24.0", "@babel/core", false},
		{"npm/lodash", "", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParsePURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParsePURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}

			if p.Type != "npm" {
				t.Errorf("Type = %q, want %q", p.Type, "npm")
			}
			if p.Namespace != tt.wantNS {
				t.Errorf("Namespace = %q, want %q", p.Namespace, tt.wantNS)
			}
			if p.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", p.Name, tt.wantName)
			}
			if p.Version != tt.wantVer {
				t.Errorf("Version = %q, want %q", p.Version, tt.wantVer)
			}
			if p.FullName() != tt.wantFull {
				t.Errorf("FullName() = %q, want %q", p.FullName(), tt.wantFull)
			}
		})
	}
}

func TestParsePackageRef(t *testing.T) {
	tests := []struct {
		input       string
		wantName    string
		wantVersion string
		wantErr     bool
	}{
		{"react", "react", "", false},
		{"react@18.3.1", "react", "18.3.1", false},
		{" react-dom@18.3.1 ", "react-dom", "18.3.1", false},
		{"@babel/core", "@babel/core", "", false},
		{"@babel/core@7.24.0", "@babel/core", "7.24.0", false},
		{"pkg:npm/%40babel/core@7.24.0", "@babel/core", "7.24.0", false},
		{"pkg:npm/lodash", "lodash", "", false},
		{"", "", "", true},
		{"@scope/@1.0.0", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, version, err := ParsePackageRef(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePackageRef(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if name != tt.wantName {
				t.Errorf("name = %q, want %q", name, tt.wantName)
			}
			if version != tt.wantVersion {
				t.Errorf("version = %q, want %q", version, tt.wantVersion)
			}
		})
	}
}

func TestPackageURL(t *testing.T) {
	tests := []struct {
		name, version string
		want          string
	}{
		{"react", "18.3.1", "pkg:npm/react@18.3.1"},
		{"@types/react", "18.2.0", "pkg:npm/%40types/react@18.2.0"},
		{"left-pad", "", "pkg:npm/left-pad"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := PackageURL(tt.name, tt.version)
			if got != tt.want {
				t.Fatalf("PackageURL(%q, %q) = %q, want %q", tt.name, tt.version, got, tt.want)
			}
			name, version, err := ParsePackageRef(got)
			if err != nil || name != tt.name || version != tt.version {
				t.Errorf("ParsePackageRef(%q) = %q, %q, %v", got, name, version, err)
			}
		})
	}
}
