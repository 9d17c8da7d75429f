package pathguard_test

import (
	"testing"

	"github.com/parcelio/parcel/internal/pathguard"
)

func TestNormalize(t *testing.T) {
	// path.Clean("/"+p) is always a rooted, already-collapsed path, so a
	// leading ".." can never survive it -- Normalize's own ".." check is
	// defensive rather than load-bearing, but every input below must still
	// land inside root rather than erroring.
	var tests = []struct {
		in, want string
	}{
		{"/", ""},
		{"", ""},
		{"/foo", "foo"},
		{"/foo/bar", "foo/bar"},
		{"/foo/../bar", "bar"},
		{"/../foo", "foo"},
		{"/foo/../../bar", "bar"},
	}

	for _, test := range tests {
		got, err := pathguard.Normalize(test.in)
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error %v", test.in, err)
			continue
		}
		if got != test.want {
			t.Errorf("Normalize(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestResolveStaysUnderRoot(t *testing.T) {
	root := "/srv/parcel"

	got, err := pathguard.Resolve(root, "/a/b")
	if err != nil {
		t.Fatal(err)
	}
	if want := "/srv/parcel/a/b"; got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}

	// a client attempting to climb above root lands back inside it instead
	// of erroring (spec §4.B / P1): path.Clean collapses the excess "..".
	got, err = pathguard.Resolve(root, "/../../etc/passwd")
	if err != nil {
		t.Fatal(err)
	}
	if want := "/srv/parcel/etc/passwd"; got != want {
		t.Errorf("Resolve = %q, want %q", got, want)
	}
}

func TestValidName(t *testing.T) {
	var tests = []struct {
		name string
		want bool
	}{
		{"", false},
		{"foo.bin", true},
		{"a b", true},
		{".", true},
		{"..", true},
		{"a/b", false},
		{"a\\b", false},
		{"a|b", false},
		{"a?b", false},
		{"a*b", false},
		{`a"b`, false},
		{"a<b", false},
		{"a>b", false},
		{"a:b", false},
	}

	for _, test := range tests {
		if got := pathguard.ValidName(test.name); got != test.want {
			t.Errorf("ValidName(%q) = %v, want %v", test.name, got, test.want)
		}
	}
}

func TestIsAbsoluteClientPath(t *testing.T) {
	if !pathguard.IsAbsoluteClientPath("/foo") {
		t.Error("expected /foo to be absolute")
	}
	if pathguard.IsAbsoluteClientPath("foo") {
		t.Error("expected foo to not be absolute")
	}
}
