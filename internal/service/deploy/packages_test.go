package deploy

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestExtractDeployedPackages(t *testing.T) {
	tests := []struct {
		name string
		log  string
		want []string
	}{
		{
			name: "success with install lines",
			log: strings.Join([]string{
				"[INFO] Installing package /tmp/mysite.ui.apps-1.0.0.zip",
				"[INFO] Installed package mysite.all-1.0.0.zip on server",
				"[INFO] BUILD SUCCESS",
			}, "\n"),
			want: []string{"mysite.ui.apps-1.0.0.zip", "mysite.all-1.0.0.zip"},
		},
		{
			name: "no build success marker",
			log:  "Installing package foo.zip\nBUILD FAILURE",
			want: nil,
		},
		{
			name: "duplicate package listed once",
			log: strings.Join([]string{
				"Installing package foo.zip",
				"Installed package foo.zip",
				"BUILD SUCCESS",
			}, "\n"),
			want: []string{"foo.zip"},
		},
		{
			name: "install lines without zip token",
			log:  "Installing package bundle\nBUILD SUCCESS",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractDeployedPackages(tt.log)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocatePackagePrefersAllModule(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "ui.apps", "target", "ui.apps.zip"), "z")
	mustWrite(t, filepath.Join(root, "all", "target", "all.zip"), "z")

	path, err := locatePackage(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "all.zip" {
		t.Fatalf("expected all package, got %q", path)
	}
}

func TestLocatePackageFallsBackToAnyTargetZip(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "ui.apps", "target", "ui.apps.zip"), "z")

	path, err := locatePackage(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != "ui.apps.zip" {
		t.Fatalf("unexpected package %q", path)
	}
}

func TestLocatePackageIgnoresZipsOutsideTarget(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "ui.apps", "src", "assets.zip"), "z")

	if _, err := locatePackage(root); err == nil {
		t.Fatal("expected error when no target packages exist")
	}
}
